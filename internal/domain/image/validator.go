package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/arth-1/socialpost/internal/platform/config"
	"github.com/arth-1/socialpost/internal/utils"
)

// SecurityValidator checks untrusted image bytes before they are fully decoded.
type SecurityValidator struct {
	config config.SecurityConfig
	logger *utils.Logger
}

func NewSecurityValidator(cfg config.SecurityConfig, logger *utils.Logger) *SecurityValidator {
	return &SecurityValidator{
		config: withSecurityDefaults(cfg),
		logger: logger,
	}
}

func withSecurityDefaults(cfg config.SecurityConfig) config.SecurityConfig {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 16 << 20
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 8192
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = 8192
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = int64(cfg.MaxWidth) * int64(cfg.MaxHeight)
	}
	return cfg
}

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
}

// executable and archive headers that must never be treated as images
var suspiciousPrefixes = [][]byte{
	{0x4D, 0x5A},
	{0x25, 0x50, 0x44, 0x46},
	{0x50, 0x4B, 0x03, 0x04},
	{0x1F, 0x8B, 0x08},
}

// ValidateBytes validates raw bytes; declaredFormat may be empty.
func (v *SecurityValidator) ValidateBytes(raw []byte, declaredFormat string) ValidationResult {
	result := ValidationResult{Format: declaredFormat}

	if len(raw) == 0 {
		result.Error = fmt.Errorf("empty image payload")
		return result
	}

	if int64(len(raw)) > v.config.MaxFileSize {
		result.Error = fmt.Errorf("file size exceeds limit: %d bytes (max %d bytes)", len(raw), v.config.MaxFileSize)
		result.SecurityRisk = "file too large"
		v.logger.WarnTag("压缩", "detected oversized image: size=%d max_size=%d", len(raw), v.config.MaxFileSize)
		return result
	}

	if declaredFormat != "" && !v.isFormatAllowed(declaredFormat) {
		result.Error = fmt.Errorf("unsupported format: %s", declaredFormat)
		result.SecurityRisk = "unapproved format"
		return result
	}

	for _, prefix := range suspiciousPrefixes {
		if bytes.HasPrefix(raw, prefix) {
			result.Error = fmt.Errorf("potential malicious content detected")
			result.SecurityRisk = "suspicious content"
			v.logger.WarnTag("压缩", "detected non-image signature: %x", prefix)
			return result
		}
	}

	cfg, actual, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if declaredFormat != "" && !v.signatureMatches(raw, declaredFormat) {
			v.logger.WarnTag("压缩", "file signature mismatch: declared_format=%s actual_header=%x",
				declaredFormat, raw[:min(len(raw), 16)])
		}
		result.Error = fmt.Errorf("decode image config: %w", err)
		result.SecurityRisk = "corrupted image data"
		return result
	}
	result.Format = actual

	if !v.isFormatAllowed(actual) {
		result.Error = fmt.Errorf("unsupported format: %s", actual)
		result.SecurityRisk = "unapproved format"
		return result
	}

	if cfg.Width > v.config.MaxWidth || cfg.Height > v.config.MaxHeight {
		result.Error = fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, v.config.MaxWidth, v.config.MaxHeight)
		result.SecurityRisk = "dimensions too large"
		return result
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > v.config.MaxPixels {
		result.Error = fmt.Errorf("pixel count exceeds limit: %d (max %d)", pixels, v.config.MaxPixels)
		result.SecurityRisk = "pixel count too high"
		return result
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	result.FileSize = int64(len(raw))

	v.logger.DebugTag("压缩", "image validation success: format=%s width=%d height=%d size=%d",
		result.Format, result.Width, result.Height, result.FileSize)
	return result
}

func (v *SecurityValidator) isFormatAllowed(format string) bool {
	if len(v.config.AllowedFormats) == 0 || format == "" {
		return true
	}
	format = strings.ToLower(format)
	if format == "jpg" {
		format = "jpeg"
	}
	for _, allowed := range v.config.AllowedFormats {
		allowed = strings.ToLower(allowed)
		if allowed == "jpg" {
			allowed = "jpeg"
		}
		if allowed == format {
			return true
		}
	}
	return false
}

func (v *SecurityValidator) signatureMatches(raw []byte, format string) bool {
	signature, ok := imageSignatures[strings.ToLower(format)]
	if !ok {
		return true
	}
	return bytes.HasPrefix(raw, signature)
}
