package parser

import "strings"

// extractAttr returns the value of name="..." or name='...' inside a raw tag.
// Double quotes are tried first, so a single-quoted value may contain '"'
// and vice versa. The attribute name must follow whitespace.
func extractAttr(tag, name string) (string, bool) {
	if v, ok := scanAttr(tag, name, '"'); ok {
		return v, true
	}
	return scanAttr(tag, name, '\'')
}

func scanAttr(tag, name string, quote byte) (string, bool) {
	needle := name + "=" + string(quote)
	from := 0
	for from < len(tag) {
		idx := strings.Index(tag[from:], needle)
		if idx < 0 {
			return "", false
		}
		start := from + idx
		if start > 0 && isSpace(tag[start-1]) {
			valueStart := start + len(needle)
			end := strings.IndexByte(tag[valueStart:], quote)
			if end < 0 {
				return "", false
			}
			return tag[valueStart : valueStart+end], true
		}
		from = start + 1
	}
	return "", false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
