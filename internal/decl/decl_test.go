package decl

import "testing"

func TestParseFindsAmbientModuleBlock(t *testing.T) {
	src := `declare module "lodash" {
	export function map(): void;
}
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Modules) != 1 {
		t.Fatalf("Modules = %d, want 1", len(doc.Modules))
	}
	m := doc.Modules[0]
	if m.Name != "lodash" || !m.Ambient {
		t.Errorf("unexpected module: %+v", m)
	}
	if src[m.BodyStart:m.BodyEnd] != "\n\texport function map(): void;\n" {
		t.Errorf("body = %q", src[m.BodyStart:m.BodyEnd])
	}
}

func TestParseDistinguishesNamespaceFromAmbientModule(t *testing.T) {
	src := `namespace Foo {
	export const x: number;
}
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Modules) != 1 {
		t.Fatalf("Modules = %d, want 1", len(doc.Modules))
	}
	if doc.Modules[0].Ambient {
		t.Error("bare namespace name must not be marked ambient")
	}
	if doc.Modules[0].Name != "Foo" {
		t.Errorf("Name = %q, want Foo", doc.Modules[0].Name)
	}
}

func TestParseHandlesNestedBraces(t *testing.T) {
	src := `declare module "pkg" {
	export interface Options {
		nested: { a: number };
	}
}
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Modules) != 1 {
		t.Fatalf("Modules = %d, want 1", len(doc.Modules))
	}
	wantEnd := len(src) - 1 // just past the final closing brace
	if doc.Modules[0].End != wantEnd {
		t.Errorf("End = %d, want %d", doc.Modules[0].End, wantEnd)
	}
}

func TestParseIgnoresBracesInsideStringsAndComments(t *testing.T) {
	src := "declare module \"pkg\" {\n\t// a stray } in a comment\n\texport const s: string; // and \"a }quoted} string\"\n}\n"
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Modules) != 1 {
		t.Fatalf("Modules = %d, want 1", len(doc.Modules))
	}
}

func TestParseCollectsImportExportAndRequireSpecifiers(t *testing.T) {
	src := `declare module "a" {
	import { x } from "b";
	import y = require("c");
	export { z } from "d";
}
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	values := map[string]bool{}
	for _, s := range doc.Specifiers {
		values[s.Value] = true
	}
	for _, want := range []string{"b", "c", "d"} {
		if !values[want] {
			t.Errorf("missing specifier %q, got %+v", want, doc.Specifiers)
		}
	}
}

func TestParseCollectsTripleSlashReferences(t *testing.T) {
	src := "/// <reference path=\"./other.d.ts\" />\n/// <reference types=\"node\" />\ndeclare module \"a\" {}\n"
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.References) != 2 {
		t.Fatalf("References = %d, want 2", len(doc.References))
	}
	if doc.References[0].Kind != "path" || doc.References[0].Value != "./other.d.ts" {
		t.Errorf("unexpected reference[0]: %+v", doc.References[0])
	}
	if doc.References[1].Kind != "types" || doc.References[1].Value != "node" {
		t.Errorf("unexpected reference[1]: %+v", doc.References[1])
	}
}

func TestParseCollectsExportEquals(t *testing.T) {
	src := `declare module "a" {
	function main(): void;
	export = main;
}
`
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.ExportEquals) != 1 {
		t.Fatalf("ExportEquals = %d, want 1", len(doc.ExportEquals))
	}
}

func TestApplyRewritesInPlace(t *testing.T) {
	src := `import { x } from "b";`
	start := len(`import { x } from "`)
	end := start + len("b")
	patches := []Patch{{Start: start, End: end, Replacement: "renamed"}}
	got := Apply(src, patches)
	want := `import { x } from "renamed";`
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}
