// Package decl tokenizes a TypeScript declaration file just far enough
// to drive the namespacing rewriter (§4.G): it locates top-level module
// blocks, the import/export specifiers and triple-slash references
// inside them, and export-equals statements, and returns everything as
// byte-offset ranges into the original text rather than a syntax tree.
// The patch-list model mirrors a byte-range splitter repurposed from
// describing upload chunks to describing a sorted list of
// non-overlapping text edits.
package decl

import (
	"fmt"
	"regexp"
	"strings"
)

// SpecifierKind distinguishes the surface form a module specifier
// appeared in.
type SpecifierKind int

const (
	SpecifierImportFrom SpecifierKind = iota
	SpecifierImportBare
	SpecifierExportFrom
	SpecifierRequire
)

// Specifier is a single quoted module name occurring in an import,
// export-from, or `import X = require(...)` form. Start and End bound
// the specifier text itself, excluding the surrounding quotes.
type Specifier struct {
	Kind  SpecifierKind
	Start int
	End   int
	Value string
}

// Reference is a triple-slash reference directive.
type Reference struct {
	Start int
	End   int
	Kind  string // "path" or "types"
	Value string
}

// ExportEquals is an `export = EXPR;` statement at the start of any
// line, including one inside a module block's body. It is
// recognized but never rewritten in place; its span is used only so
// the rewriter can tell a node's entry uses the export-equals form.
type ExportEquals struct {
	Start int
	End   int
}

// ModuleBlock is a top-level `declare module "NAME" { ... }`,
// `module NAME { ... }`, or `declare namespace NAME { ... }` construct.
// Ambient is true for the quoted-string-name form (an ambient module
// declaration); false for the bare-identifier form (a namespace, which
// must be preserved verbatim and is never renamespaced by the
// rewriter).
type ModuleBlock struct {
	Name      string
	Ambient   bool
	Start     int // start of the line's leading whitespace before the "declare"/"module"/"namespace" keyword
	End       int // position just past the closing brace
	BodyStart int // start of the body, just past the opening brace
	BodyEnd   int // end of the body, just before the closing brace
}

// Document is the tokenized result of parsing one declaration file's
// source text.
type Document struct {
	Source        string
	Modules       []ModuleBlock
	Specifiers    []Specifier
	References    []Reference
	ExportEquals  []ExportEquals
}

var (
	moduleKeywordRe = regexp.MustCompile(`(?m)^[ \t]*(?:declare[ \t]+)?(?:module|namespace)[ \t]+`)
	referenceRe     = regexp.MustCompile(`(?m)^[ \t]*///[ \t]*<reference[ \t]+(path|types)=["']([^"']+)["'][ \t]*/>[ \t]*\r?\n?`)
	exportEqualsRe = regexp.MustCompile(`(?m)^[ \t]*export[ \t]*=[ \t]*[^;\r\n]+;`)

	importFromRe = regexp.MustCompile(`\bimport\b[^'";]*?\bfrom\b\s*["']([^"']+)["']`)
	importBareRe = regexp.MustCompile(`\bimport\s*["']([^"']+)["']\s*;`)
	exportFromRe = regexp.MustCompile(`\bexport\b[^'";]*?\bfrom\b\s*["']([^"']+)["']`)
	requireRe    = regexp.MustCompile(`\bimport\s+[\w$]+\s*=\s*require\(\s*["']([^"']+)["']\s*\)`)
)

// Parse tokenizes source into a Document.
func Parse(source string) (*Document, error) {
	doc := &Document{Source: source}

	if err := parseModules(doc); err != nil {
		return nil, err
	}
	parseReferences(doc, 0, len(source))
	parseExportEquals(doc, 0, len(source))

	// Specifiers are scanned across the whole file: a block's own body
	// is just a sub-range, so scanning globally and letting the
	// rewriter intersect ranges with each block is simpler than
	// re-scanning per block and risking double matches at boundaries.
	parseSpecifiers(doc, 0, len(source))

	return doc, nil
}

// parseModules finds top-level module/namespace blocks. The keyword
// itself is located by regexp; the name and opening brace are parsed
// by hand since Go's RE2 engine can't backreference a quote character,
// and the body's matching close brace needs depth counting regardless.
func parseModules(doc *Document) error {
	src := doc.Source
	pos := 0
	for {
		loc := moduleKeywordRe.FindStringIndex(src[pos:])
		if loc == nil {
			return nil
		}
		headerStart := pos + loc[0]
		cursor := pos + loc[1]

		name, ambient, next, ok := scanModuleName(src, cursor)
		if !ok {
			pos = cursor
			continue
		}
		braceIdx, ok := scanToOpenBrace(src, next)
		if !ok {
			pos = cursor
			continue
		}

		closeIdx, err := matchingBrace(src, braceIdx)
		if err != nil {
			return fmt.Errorf("decl: unterminated module block %q: %w", name, err)
		}

		doc.Modules = append(doc.Modules, ModuleBlock{
			Name:      name,
			Ambient:   ambient,
			Start:     headerStart,
			End:       closeIdx + 1,
			BodyStart: braceIdx + 1,
			BodyEnd:   closeIdx,
		})

		pos = closeIdx + 1
	}
}

// scanModuleName parses a quoted ambient-module name or a bare
// namespace identifier (including dotted forms like "A.B") starting at
// pos, returning the name, whether it was quoted, and the index just
// past it.
func scanModuleName(src string, pos int) (name string, ambient bool, next int, ok bool) {
	if pos >= len(src) {
		return "", false, pos, false
	}
	c := src[pos]
	if c == '"' || c == '\'' || c == '`' {
		end := skipQuoted(src, pos)
		if end <= pos+1 {
			return "", false, pos, false
		}
		return src[pos+1 : end-1], true, end, true
	}

	start := pos
	for pos < len(src) && isIdentifierPathChar(src[pos]) {
		pos++
	}
	if pos == start {
		return "", false, pos, false
	}
	return src[start:pos], false, pos, true
}

func isIdentifierPathChar(c byte) bool {
	return c == '_' || c == '$' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// scanToOpenBrace skips whitespace from pos and reports the index of
// the next '{' if that's all that follows; false if anything else
// (a semicolon, another token) intervenes first, meaning this wasn't
// a block-form module declaration.
func scanToOpenBrace(src string, pos int) (int, bool) {
	for pos < len(src) && (src[pos] == ' ' || src[pos] == '\t' || src[pos] == '\r' || src[pos] == '\n') {
		pos++
	}
	if pos < len(src) && src[pos] == '{' {
		return pos, true
	}
	return pos, false
}

// matchingBrace returns the index of the '{' at openIdx's matching
// close, skipping over string, template, and comment contents so stray
// braces inside them don't throw off the depth count.
func matchingBrace(src string, openIdx int) (int, error) {
	depth := 0
	i := openIdx
	for i < len(src) {
		c := src[i]
		switch {
		case c == '{':
			depth++
			i++
		case c == '}':
			depth--
			if depth == 0 {
				return i, nil
			}
			i++
		case c == '"', c == '\'', c == '`':
			end := skipQuoted(src, i)
			i = end
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i = i + 2 + end + 2
			}
		default:
			i++
		}
	}
	return 0, fmt.Errorf("no matching closing brace")
}

// skipQuoted returns the index just past the closing quote matching
// src[start], honoring backslash escapes.
func skipQuoted(src string, start int) int {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		if src[i] == '\\' {
			i += 2
			continue
		}
		if src[i] == quote {
			return i + 1
		}
		i++
	}
	return i
}

func parseReferences(doc *Document, from, to int) {
	for _, loc := range referenceRe.FindAllStringSubmatchIndex(doc.Source[from:to], -1) {
		doc.References = append(doc.References, Reference{
			Start: from + loc[0],
			End:   from + loc[1],
			Kind:  doc.Source[from+loc[2] : from+loc[3]],
			Value: doc.Source[from+loc[4] : from+loc[5]],
		})
	}
}

func parseExportEquals(doc *Document, from, to int) {
	for _, loc := range exportEqualsRe.FindAllStringIndex(doc.Source[from:to], -1) {
		doc.ExportEquals = append(doc.ExportEquals, ExportEquals{Start: from + loc[0], End: from + loc[1]})
	}
}

func parseSpecifiers(doc *Document, from, to int) {
	text := doc.Source[from:to]

	add := func(kind SpecifierKind, loc []int, groupStart, groupEnd int) {
		doc.Specifiers = append(doc.Specifiers, Specifier{
			Kind:  kind,
			Start: from + loc[groupStart],
			End:   from + loc[groupEnd],
			Value: text[loc[groupStart]:loc[groupEnd]],
		})
	}

	for _, loc := range requireRe.FindAllStringSubmatchIndex(text, -1) {
		add(SpecifierRequire, loc, 2, 3)
	}
	for _, loc := range importFromRe.FindAllStringSubmatchIndex(text, -1) {
		add(SpecifierImportFrom, loc, 2, 3)
	}
	for _, loc := range importBareRe.FindAllStringSubmatchIndex(text, -1) {
		add(SpecifierImportBare, loc, 2, 3)
	}
	for _, loc := range exportFromRe.FindAllStringSubmatchIndex(text, -1) {
		add(SpecifierExportFrom, loc, 2, 3)
	}
}

// Patch is a single replacement of source[Start:End] with Replacement.
type Patch struct {
	Start       int
	End         int
	Replacement string
}

// Apply applies patches (which must be non-overlapping) to source,
// sorted by Start, and returns the patched text.
func Apply(source string, patches []Patch) string {
	sorted := make([]Patch, len(patches))
	copy(sorted, patches)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Start > sorted[j].Start; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	var b strings.Builder
	cursor := 0
	for _, p := range sorted {
		if p.Start < cursor {
			continue // overlapping patch, caller error; skip rather than corrupt output
		}
		b.WriteString(source[cursor:p.Start])
		b.WriteString(p.Replacement)
		cursor = p.End
	}
	b.WriteString(source[cursor:])
	return b.String()
}
