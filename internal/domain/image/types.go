package image

// ValidationResult captures the outcome of security validation.
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	Error        error
	SecurityRisk string
}

// Result is one finished compression: the last JPEG encoding produced and
// the parameters that produced it.
type Result struct {
	Data    []byte  `json:"-"`
	DataURI string  `json:"imageDataUri"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Quality float64 `json:"quality"`
	Passes  int     `json:"passes"`
	SizeKB  float64 `json:"sizeKB"`
	// OverCap is set when even the quality floor could not reach the cap.
	OverCap bool `json:"overCap"`
}

// Options tunes the compressor. Qualities are in (0, 1].
type Options struct {
	MaxDimension     int
	InitialQuality   float64
	MinQuality       float64
	QualityStep      float64
	DefaultMaxSizeKB float64
}

func DefaultOptions() Options {
	return Options{
		MaxDimension:     1024,
		InitialQuality:   0.9,
		MinQuality:       0.1,
		QualityStep:      0.1,
		DefaultMaxSizeKB: 1000,
	}
}

var formatMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// MIMEForFormat maps a decoder format name to its MIME type.
func MIMEForFormat(format string) string {
	if mime, ok := formatMIME[format]; ok {
		return mime
	}
	return "application/octet-stream"
}
