package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/arth-1/socialpost/internal/platform/config"
	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/utils"
)

// Pipeline reads an untrusted image stream under a size cap, validates it
// and optionally decodes it.
type Pipeline struct {
	validator *SecurityValidator
	logger    *utils.Logger
	maxSize   int64
}

// PipelineOptions configures the pipeline behaviour.
type PipelineOptions struct {
	Security config.SecurityConfig
	Logger   *utils.Logger
}

// Input describes a streaming image payload.
type Input struct {
	Reader         io.Reader
	DeclaredFormat string
	Source         string
}

// Output contains the validated payload.
type Output struct {
	Bytes      []byte
	Format     string
	MIME       string
	Validation ValidationResult
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	validator := NewSecurityValidator(opts.Security, opts.Logger)
	return &Pipeline{
		validator: validator,
		logger:    opts.Logger,
		maxSize:   validator.config.MaxFileSize,
	}
}

// Process streams the input through the size cap and security validation.
func (p *Pipeline) Process(ctx context.Context, input Input) (*Output, error) {
	if input.Reader == nil {
		return nil, errors.New(errors.KindValidation, "image.pipeline", "image reader is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limited := &io.LimitedReader{R: input.Reader, N: p.maxSize + 1}
	buf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	if _, err := io.Copy(buf, limited); err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "image.pipeline", "stream image bytes", err)
	}
	if limited.N <= 0 {
		return nil, errors.New(errors.KindValidation, "image.pipeline",
			fmt.Sprintf("image exceeds maximum size of %d bytes", p.maxSize))
	}

	validation := p.validator.ValidateBytes(buf.Bytes(), input.DeclaredFormat)
	if !validation.IsValid {
		kind := errors.KindDecoding
		if validation.SecurityRisk != "" && validation.SecurityRisk != "corrupted image data" {
			kind = errors.KindValidation
		}
		p.logger.WarnTag("压缩", "image rejected: source=%s risk=%s", input.Source, validation.SecurityRisk)
		return nil, errors.Wrap(kind, "image.validate", "image validation failed", validation.Error)
	}

	return &Output{
		Bytes:      buf.Bytes(),
		Format:     validation.Format,
		MIME:       MIMEForFormat(validation.Format),
		Validation: validation,
	}, nil
}

// Decode runs Process and decodes the validated bytes into a raster.
func (p *Pipeline) Decode(ctx context.Context, input Input) (image.Image, *Output, error) {
	out, err := p.Process(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(out.Bytes))
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindDecoding, "image.decode", "failed to decode image", err)
	}
	return img, out, nil
}
