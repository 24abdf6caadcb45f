package llm

import "strings"

// LocateJSON returns the first balanced {...} object in content, ignoring prose or a
// markdown fence around it. Braces inside string literals are skipped. When no
// complete object is present the trimmed content is returned unchanged so the
// caller's decoder reports the error.
func LocateJSON(content string) string {
	content = strings.TrimSpace(content)

	start := strings.IndexByte(content, '{')
	if start < 0 {
		return content
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return content
}
