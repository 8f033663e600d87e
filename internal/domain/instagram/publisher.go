package instagram

import (
	"bytes"
	"context"
	stdimage "image"
	"strings"
	"sync"
	"time"

	"github.com/arth-1/socialpost/internal/domain/eventbus"
	"github.com/arth-1/socialpost/internal/domain/image"
	"github.com/arth-1/socialpost/internal/platform/config"
	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/platform/observability"
	"github.com/arth-1/socialpost/internal/utils"
)

// Options wires the publisher. Only Config is required; the rest default to
// the production implementations.
type Options struct {
	Config     config.InstagramConfig
	NewClient  ClientFactory
	Fetcher    Fetcher
	Pipeline   *image.Pipeline
	Compressor *image.Compressor
	Events     EventPublisher
	Logger     *utils.Logger
}

// Publisher runs the device, pre-login, login, post-login, decode and
// upload sequence for one photo at a time per call. Calls are independent
// and may run concurrently.
type Publisher struct {
	cfg        config.InstagramConfig
	defaults   Credentials
	newClient  ClientFactory
	fetcher    Fetcher
	pipeline   *image.Pipeline
	compressor *image.Compressor
	events     EventPublisher
	logger     *utils.Logger
	background sync.WaitGroup
}

func NewPublisher(opts Options) *Publisher {
	cfg := opts.Config
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	if opts.NewClient == nil {
		opts.NewClient = NewClientFactory(ClientOptions{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.RequestTimeout,
			Logger:  opts.Logger,
		})
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewRemoteFetcher(cfg.RequestTimeout, cfg.MaxImageBytes, opts.Logger)
	}
	if opts.Pipeline == nil {
		opts.Pipeline = image.NewPipeline(image.PipelineOptions{
			Security: config.SecurityConfig{MaxFileSize: cfg.MaxImageBytes},
			Logger:   opts.Logger,
		})
	}
	return &Publisher{
		cfg:        cfg,
		defaults:   Credentials{Username: cfg.Username, Password: cfg.Password},
		newClient:  opts.NewClient,
		fetcher:    opts.Fetcher,
		pipeline:   opts.Pipeline,
		compressor: opts.Compressor,
		events:     opts.Events,
		logger:     opts.Logger,
	}
}

type publishRun struct {
	state      State
	step       string
	username   string
	source     string
	imageBytes int
}

func (r *publishRun) enter(step string) {
	r.step = step
}

func (r *publishRun) advance(state State) {
	r.state = state
}

// Publish posts req.Image with req.Caption. Failures are terminal and are
// never retried.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	start := time.Now()
	run := &publishRun{state: StateIdle, source: imageSource(req.Image)}

	result, err := p.publish(ctx, req, run)
	duration := time.Since(start)

	evt := eventbus.PublishEventData{
		Username:    run.username,
		Caption:     req.Caption,
		ImageSource: run.source,
		ImageBytes:  run.imageBytes,
		Duration:    duration,
		OccurredAt:  time.Now(),
	}
	if err != nil {
		failedAt := run.step
		p.logger.ErrorTag(logTag, "publish failed at %s (state %s) after %s: %v", failedAt, run.state, duration, err)
		run.advance(StateFailed)
		evt.Status = eventbus.PublishStatusFailed
		evt.FailedAt = failedAt
		evt.ErrorKind = string(errors.KindOf(err))
		evt.Error = err.Error()
		p.emit(eventbus.EventInstagramFailed, evt)
		return nil, err
	}

	result.Duration = duration
	evt.Status = eventbus.PublishStatusPublished
	evt.MediaID = result.MediaID
	p.logger.InfoTag(logTag, "published media %s for %s in %s", result.MediaID, result.Username, duration)
	p.emit(eventbus.EventInstagramPublished, evt)
	return result, nil
}

func (p *Publisher) publish(ctx context.Context, req PublishRequest, run *publishRun) (result *PublishResult, err error) {
	run.enter("validate")
	if strings.TrimSpace(req.Image) == "" || strings.TrimSpace(req.Caption) == "" {
		return nil, errors.New(errors.KindValidation, "instagram.publish", "missing image or caption")
	}

	run.enter("credentials")
	creds, err := ResolveCredentials(req, p.defaults)
	if err != nil {
		return nil, err
	}
	run.username = creds.Username

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()
	ctx, end := observability.StartSpan(ctx, "instagram", "publish")
	defer func() { end(err) }()

	client := p.newClient()

	run.enter("device")
	device := client.GenerateDevice(creds.Username)
	run.advance(StateDeviceInitialized)
	p.logger.DebugTag(logTag, "device ready: %s", device.DeviceString)

	run.enter("pre_login")
	if err := traced(ctx, "pre_login", client.PreLoginFlow); err != nil {
		return nil, err
	}
	run.advance(StatePreLoginDone)

	run.enter("login")
	var session *Session
	if err := traced(ctx, "login", func(ctx context.Context) error {
		var loginErr error
		session, loginErr = client.Login(ctx, creds)
		return loginErr
	}); err != nil {
		return nil, err
	}
	run.advance(StateAuthenticated)
	p.logger.InfoTag(logTag, "logged in as %s", creds.Username)

	p.simulatePostLogin(client, creds.Username)

	run.enter("decode")
	photo, err := p.loadPhoto(ctx, req.Image)
	if err != nil {
		return nil, err
	}
	run.imageBytes = len(photo.Bytes)
	run.advance(StateImageDecoded)

	run.enter("upload")
	var mediaID string
	if err := traced(ctx, "upload", func(ctx context.Context) error {
		var uploadErr error
		mediaID, uploadErr = client.UploadPhoto(ctx, photo, req.Caption)
		return uploadErr
	}); err != nil {
		return nil, err
	}
	run.advance(StatePublished)

	username := creds.Username
	if session != nil && session.Username != "" {
		username = session.Username
	}
	return &PublishResult{MediaID: mediaID, Username: username}, nil
}

// simulatePostLogin runs the post-login feed requests detached from the
// caller with their own timeout. The outcome is only logged.
func (p *Publisher) simulatePostLogin(client Client, username string) {
	if !p.cfg.PostLoginSimulation {
		return
	}
	timeout := p.cfg.PostLoginTimeout
	if p.cfg.PublishTimeout > 0 {
		timeout = utils.MinDuration(timeout, p.cfg.PublishTimeout)
	}
	p.background.Add(1)
	go func() {
		defer p.background.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.ErrorTag(logTag, "post-login simulation panic for %s: %v", username, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := client.PostLoginFlow(ctx); err != nil {
			p.logger.WarnTag(logTag, "post-login simulation for %s failed (ignored): %v", username, err)
			return
		}
		p.logger.DebugTag(logTag, "post-login simulation for %s done", username)
	}()
}

// Wait blocks until detached post-login simulations have finished.
func (p *Publisher) Wait() {
	p.background.Wait()
}

func (p *Publisher) loadPhoto(ctx context.Context, src string) (Photo, error) {
	var raw []byte
	if image.IsDataURI(src) {
		parsed, err := image.ParseDataURI(src)
		if err != nil {
			return Photo{}, err
		}
		raw = parsed.Data
	} else {
		data, err := p.fetcher.Fetch(ctx, src)
		if err != nil {
			return Photo{}, err
		}
		raw = data
	}

	out, err := p.pipeline.Process(ctx, image.Input{
		Reader: bytes.NewReader(raw),
		Source: imageSource(src),
	})
	if err != nil {
		return Photo{}, err
	}

	photo := Photo{Bytes: out.Bytes, Width: out.Validation.Width, Height: out.Validation.Height}
	if out.Format == "jpeg" || p.compressor == nil {
		return photo, nil
	}

	// feed uploads must be JPEG
	img, _, err := stdimage.Decode(bytes.NewReader(out.Bytes))
	if err != nil {
		return Photo{}, errors.Wrap(errors.KindDecoding, "instagram.decode", "failed to decode image", err)
	}
	res, err := p.compressor.Compress(ctx, img, p.compressor.Options().DefaultMaxSizeKB)
	if err != nil {
		return Photo{}, err
	}
	p.logger.DebugTag(logTag, "transcoded %s to jpeg: %dx%d quality=%.1f", out.Format, res.Width, res.Height, res.Quality)
	return Photo{Bytes: res.Data, Width: res.Width, Height: res.Height}, nil
}

func (p *Publisher) emit(topic string, evt eventbus.PublishEventData) {
	if p.events == nil {
		return
	}
	p.events.PublishAsync(topic, evt)
}

func traced(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	ctx, end := observability.StartSpan(ctx, "instagram", op)
	defer func() { end(err) }()
	return fn(ctx)
}

func imageSource(src string) string {
	if image.IsDataURI(src) {
		return "data_uri"
	}
	return "remote"
}
