package image

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/arth-1/socialpost/internal/platform/errors"
)

var dataURIPattern = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// DataURI is a decoded data: URI.
type DataURI struct {
	MIME string
	Data []byte
}

// IsDataURI reports whether s should be treated as an inline payload rather
// than a remote URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURI decodes a base64 data URI of the form data:<mime>;base64,<payload>.
func ParseDataURI(s string) (*DataURI, error) {
	m := dataURIPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.New(errors.KindDecoding, "datauri.parse", "Invalid data URI")
	}

	payload := m[2]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, errors.Wrap(errors.KindDecoding, "datauri.decode", "invalid base64 payload", err)
		}
		data = raw
	}
	if len(data) == 0 {
		return nil, errors.New(errors.KindDecoding, "datauri.decode", "empty data URI payload")
	}

	return &DataURI{MIME: m[1], Data: data}, nil
}

func EncodeDataURI(mime string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// formatFromMIME turns image/png into png; image/jpg is normalised to jpeg.
func formatFromMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	format := strings.TrimPrefix(mime, "image/")
	if format == mime {
		return ""
	}
	if format == "jpg" {
		return "jpeg"
	}
	return format
}
