// Package assemble joins a rewriter's block stream into the final
// output text (§4.I). It is a pure function of an already-materialized
// block stream: it never suspends or retries, unlike the queued upload
// stage it's modeled on.
package assemble

import "strings"

// EOL is the line terminator joining blocks and ending the output.
const EOL = "\n"

// Output is the compiled result for both compile targets.
type Output struct {
	Main    string
	Browser string
}

// Join concatenates blocks, separated by a blank line, each one
// terminated by EOL, matching §4.H's "single blank line between
// blocks" ordering rule.
func Join(blocks []string) string {
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, EOL+EOL) + EOL
}
