package image

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/platform/observability"
	"github.com/arth-1/socialpost/internal/utils"
)

// ErrInvalidMaxSize is returned when the size cap is not strictly positive.
var ErrInvalidMaxSize = errors.New(errors.KindValidation, "image.compress", "max size must be greater than zero")

// Compressor downsizes an image to fit the configured bounding box and
// searches JPEG quality downward until the data URI fits under a size cap.
type Compressor struct {
	opts     Options
	pipeline *Pipeline
	logger   *utils.Logger
}

func NewCompressor(opts Options, pipeline *Pipeline, logger *utils.Logger) *Compressor {
	def := DefaultOptions()
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.InitialQuality <= 0 || opts.InitialQuality > 1 {
		opts.InitialQuality = def.InitialQuality
	}
	if opts.MinQuality <= 0 || opts.MinQuality > opts.InitialQuality {
		opts.MinQuality = def.MinQuality
	}
	if opts.QualityStep <= 0 {
		opts.QualityStep = def.QualityStep
	}
	if opts.DefaultMaxSizeKB <= 0 {
		opts.DefaultMaxSizeKB = def.DefaultMaxSizeKB
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	if pipeline == nil {
		pipeline = NewPipeline(PipelineOptions{Logger: logger})
	}
	return &Compressor{opts: opts, pipeline: pipeline, logger: logger}
}

// Options returns the effective options after defaults were applied.
func (c *Compressor) Options() Options {
	return c.opts
}

// TargetDimensions scales (w, h) so the longer side is at most maxDim,
// keeping the aspect ratio with rounding. Sizes already within the box are
// returned unchanged.
func TargetDimensions(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w > h {
		h = int(math.Round(float64(h) * float64(maxDim) / float64(w)))
		w = maxDim
	} else {
		w = int(math.Round(float64(w) * float64(maxDim) / float64(h)))
		h = maxDim
	}
	return max(w, 1), max(h, 1)
}

// Compress renders img into the target box and re-encodes it as JPEG,
// lowering quality one step at a time while the data URI is larger than
// maxSizeKB. When the floor is reached the last encoding is returned with
// OverCap set.
func (c *Compressor) Compress(ctx context.Context, img image.Image, maxSizeKB float64) (result *Result, err error) {
	if maxSizeKB <= 0 || math.IsNaN(maxSizeKB) {
		return nil, ErrInvalidMaxSize
	}
	if img == nil {
		return nil, errors.New(errors.KindValidation, "image.compress", "image is required")
	}

	ctx, end := observability.StartSpan(ctx, "image", "compress")
	defer func() { end(err) }()

	bounds := img.Bounds()
	tw, th := TargetDimensions(bounds.Dx(), bounds.Dy(), c.opts.MaxDimension)
	canvas := render(img, tw, th)

	quality := toPercent(c.opts.InitialQuality)
	floor := toPercent(c.opts.MinQuality)
	step := max(toPercent(c.opts.QualityStep), 1)

	var buf bytes.Buffer
	passes := 0
	var dataURI string
	var sizeKB float64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		buf.Reset()
		if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
			return nil, errors.Wrap(errors.KindDecoding, "image.encode", "jpeg encoding failed", err)
		}
		passes++
		dataURI = EncodeDataURI("image/jpeg", buf.Bytes())
		sizeKB = float64(len(dataURI)) / 1024

		if sizeKB <= maxSizeKB || quality <= floor {
			break
		}
		quality = max(quality-step, floor)
	}

	result = &Result{
		Data:    append([]byte(nil), buf.Bytes()...),
		DataURI: dataURI,
		Width:   tw,
		Height:  th,
		Quality: float64(quality) / 100,
		Passes:  passes,
		SizeKB:  sizeKB,
		OverCap: sizeKB > maxSizeKB,
	}

	outcome := "fit"
	if result.OverCap {
		outcome = "over_cap"
		c.logger.WarnTag("压缩", "quality floor reached, result still over cap: size=%.1fKB max=%.1fKB", sizeKB, maxSizeKB)
	} else {
		c.logger.InfoTag("压缩", "compressed %dx%d -> %dx%d quality=%.1f passes=%d size=%.1fKB",
			bounds.Dx(), bounds.Dy(), tw, th, result.Quality, passes, sizeKB)
	}
	observability.RecordMetric(ctx, "compress_passes", float64(passes), map[string]string{"outcome": outcome})
	return result, nil
}

// CompressDataURI decodes an inline image (jpeg, png, gif or webp) and
// compresses it. A zero maxSizeKB falls back to the configured default and
// a negative one is rejected.
func (c *Compressor) CompressDataURI(ctx context.Context, dataURI string, maxSizeKB float64) (*Result, error) {
	if maxSizeKB == 0 {
		maxSizeKB = c.opts.DefaultMaxSizeKB
	}
	if maxSizeKB < 0 {
		return nil, ErrInvalidMaxSize
	}
	parsed, err := ParseDataURI(dataURI)
	if err != nil {
		return nil, err
	}
	img, _, err := c.pipeline.Decode(ctx, Input{
		Reader:         bytes.NewReader(parsed.Data),
		DeclaredFormat: formatFromMIME(parsed.MIME),
		Source:         "data_uri",
	})
	if err != nil {
		return nil, err
	}
	return c.Compress(ctx, img, maxSizeKB)
}

// render draws src onto an opaque black canvas of w x h, matching how a
// browser canvas exports transparent pixels to JPEG.
func render(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

func toPercent(q float64) int {
	return int(math.Round(q * 100))
}
