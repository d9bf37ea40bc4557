package parser

import (
	"strings"
	"unicode"
)

const fence = "```"

// CleanContent strips markdown code-fence wrapping from captured action
// content:
//  1. trim surrounding whitespace
//  2. drop one leading fence line (```, optional language word, optional newline)
//  3. drop one trailing fence (optional newline, ```)
//  4. trim stray backticks and whitespace from both ends
//
// CleanContent is idempotent.
func CleanContent(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, fence) {
		i := len(fence)
		for i < len(s) && isWordByte(s[i]) {
			i++
		}
		if i < len(s) && s[i] == '\n' {
			i++
		}
		s = s[i:]
	}

	if strings.HasSuffix(s, fence) {
		s = strings.TrimSuffix(s[:len(s)-len(fence)], "\n")
	}

	return strings.TrimFunc(s, func(r rune) bool {
		return r == '`' || unicode.IsSpace(r)
	})
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
