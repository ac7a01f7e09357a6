package override

import (
	"net/url"
	"strings"
)

// NameCodec converts between a session name and a filesystem-safe token.
type NameCodec interface {
	Encode(name string) string
	Decode(token string) (string, bool)
}

// EscapeCodec percent-encodes every byte outside [A-Za-z0-9 _-].
type EscapeCodec struct{}

const hexDigits = "0123456789ABCDEF"

// Encode returns the filesystem-safe token for name.
func (EscapeCodec) Encode(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// Decode reverses Encode. Malformed escapes report false.
func (EscapeCodec) Decode(token string) (string, bool) {
	name, err := url.PathUnescape(token)
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

func isSafe(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == ' ' || c == '-' || c == '_'
}
