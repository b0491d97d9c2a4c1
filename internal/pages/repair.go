package pages

import (
	"fmt"
	"strings"
)

// RepairJSON fixes recoverable syntax errors in Graph page payloads before
// decoding. The page-content API occasionally returns raw control
// characters (newlines, tabs) inside string values, which encoding/json
// rejects; those are re-escaped here. Payloads that still fail to decode
// afterwards are treated as unrecoverable by the caller.
func RepairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}

		switch {
		case inString && c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = !inString
			b.WriteByte(c)
		case inString && c < 0x20:
			writeEscapedControl(&b, c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// writeEscapedControl writes the JSON escape sequence for a control byte.
func writeEscapedControl(b *strings.Builder, c byte) {
	switch c {
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	case '\b':
		b.WriteString(`\b`)
	case '\f':
		b.WriteString(`\f`)
	default:
		fmt.Fprintf(b, `\u%04x`, c)
	}
}
