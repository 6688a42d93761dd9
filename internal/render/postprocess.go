package render

import (
	"regexp"
	"strings"

	"github.com/hargabyte/bindgen/internal/policy"
)

// identifierRe matches whole identifier-shaped words, so renames never
// touch substrings of longer identifiers. Pointer suffixes (Name*, Name**)
// sit after the matched word and survive the replacement untouched.
var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// ApplyFinalRenames runs the rename rules once more over rendered output
// as a safety net for names that leaked through unresolved pointer types
// or cross-file references.
//
// Matching is word-boundary safe and applies the first matching rule per
// word, in declaration order. A word immediately preceded by a double
// quote is left alone: that is the position of EntryPoint strings and
// other literals that designate the real exported symbol name, which must
// never be rewritten.
//
// The structural rename logic in the generation core applies the same
// rules; this pass must stay behaviorally aligned with it or renames risk
// double application.
func ApplyFinalRenames(text string, renames []policy.RenameRule) string {
	if len(renames) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range identifierRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		word := text[start:end]

		if start > 0 && text[start-1] == '"' {
			continue
		}

		replaced := word
		for _, rule := range renames {
			if out, ok := policy.ApplyRenameRule(rule, word); ok {
				replaced = out
				break
			}
		}
		if replaced == word {
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString(replaced)
		last = end
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}
