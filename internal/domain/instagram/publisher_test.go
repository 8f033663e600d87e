package instagram

import (
	"bytes"
	"context"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/arth-1/socialpost/internal/domain/eventbus"
	"github.com/arth-1/socialpost/internal/domain/image"
	"github.com/arth-1/socialpost/internal/platform/config"
	"github.com/arth-1/socialpost/internal/platform/errors"
)

type mockClient struct {
	mu           sync.Mutex
	calls        []string
	creds        Credentials
	preLoginErr  error
	loginErr     error
	postLoginErr error
	uploadErr    error
	uploaded     Photo
	caption      string
	mediaID      string
}

func (m *mockClient) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockClient) has(call string) bool {
	for _, c := range m.Calls() {
		if c == call {
			return true
		}
	}
	return false
}

func (m *mockClient) GenerateDevice(username string) Device {
	m.record("device")
	return GenerateDevice(username)
}

func (m *mockClient) PreLoginFlow(ctx context.Context) error {
	m.record("pre_login")
	return m.preLoginErr
}

func (m *mockClient) Login(ctx context.Context, creds Credentials) (*Session, error) {
	m.record("login")
	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &Session{UserID: "42", Username: creds.Username}, nil
}

func (m *mockClient) PostLoginFlow(ctx context.Context) error {
	m.record("post_login")
	return m.postLoginErr
}

func (m *mockClient) UploadPhoto(ctx context.Context, photo Photo, caption string) (string, error) {
	m.record("upload")
	m.mu.Lock()
	m.uploaded = photo
	m.caption = caption
	m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if m.mediaID == "" {
		return "1234567890_42", nil
	}
	return m.mediaID, nil
}

type mockFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

type recordedEvent struct {
	topic string
	data  eventbus.PublishEventData
}

type mockEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *mockEvents) PublishAsync(topic string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{topic: topic, data: args[0].(eventbus.PublishEventData)})
}

func testConfig() config.InstagramConfig {
	return config.InstagramConfig{
		Username:            "default_user",
		Password:            "default_pass",
		RequestTimeout:      time.Second,
		PublishTimeout:      5 * time.Second,
		PostLoginTimeout:    time.Second,
		PostLoginSimulation: true,
		MaxImageBytes:       1 << 20,
	}
}

func encodeTestImage(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	var err error
	if format == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func newTestPublisher(client *mockClient, fetcher Fetcher, events EventPublisher, compressor *image.Compressor) *Publisher {
	if fetcher == nil {
		fetcher = &mockFetcher{}
	}
	return NewPublisher(Options{
		Config:     testConfig(),
		NewClient:  func() Client { return client },
		Fetcher:    fetcher,
		Compressor: compressor,
		Events:     events,
	})
}

func TestPublish_DataURISuccess(t *testing.T) {
	client := &mockClient{}
	events := &mockEvents{}
	p := newTestPublisher(client, nil, events, nil)

	jpegBytes := encodeTestImage(t, "jpeg", 40, 30)
	res, err := p.Publish(context.Background(), PublishRequest{
		Image:   image.EncodeDataURI("image/jpeg", jpegBytes),
		Caption: "hello world",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	p.Wait()

	if res.MediaID != "1234567890_42" {
		t.Fatalf("unexpected media id %q", res.MediaID)
	}
	if client.creds != (Credentials{"default_user", "default_pass"}) {
		t.Fatalf("defaults not used: %+v", client.creds)
	}
	if !bytes.Equal(client.uploaded.Bytes, jpegBytes) || client.uploaded.Width != 40 || client.uploaded.Height != 30 {
		t.Fatalf("unexpected uploaded photo: %dx%d %d bytes", client.uploaded.Width, client.uploaded.Height, len(client.uploaded.Bytes))
	}
	if client.caption != "hello world" {
		t.Fatalf("caption = %q", client.caption)
	}

	calls := client.Calls()
	order := []string{}
	for _, c := range calls {
		if c != "post_login" {
			order = append(order, c)
		}
	}
	want := []string{"device", "pre_login", "login", "upload"}
	if len(order) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("calls = %v, want order %v", calls, want)
		}
	}
	if !client.has("post_login") {
		t.Fatal("post-login simulation never ran")
	}

	if len(events.events) != 1 || events.events[0].topic != eventbus.EventInstagramPublished {
		t.Fatalf("unexpected events %+v", events.events)
	}
	evt := events.events[0].data
	if evt.MediaID != res.MediaID || evt.ImageSource != "data_uri" || evt.Username != "default_user" {
		t.Fatalf("unexpected event payload %+v", evt)
	}
}

func TestPublish_LoginFailureNeverUploads(t *testing.T) {
	client := &mockClient{loginErr: errors.New(errors.KindAuthentication, "instagram.login", "bad password")}
	events := &mockEvents{}
	p := newTestPublisher(client, nil, events, nil)

	_, err := p.Publish(context.Background(), PublishRequest{
		Image:   image.EncodeDataURI("image/jpeg", encodeTestImage(t, "jpeg", 8, 8)),
		Caption: "x",
	})
	p.Wait()

	if !errors.IsKind(err, errors.KindAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if client.has("upload") || client.has("post_login") {
		t.Fatalf("unexpected calls after login failure: %v", client.Calls())
	}
	if len(events.events) != 1 || events.events[0].data.FailedAt != "login" {
		t.Fatalf("expected failed event at login, got %+v", events.events)
	}
	if events.events[0].data.ErrorKind != string(errors.KindAuthentication) {
		t.Fatalf("error kind not recorded: %+v", events.events[0].data)
	}
}

func TestPublish_PreLoginFailure(t *testing.T) {
	client := &mockClient{preLoginErr: errors.New(errors.KindNetwork, "instagram.prelogin", "connection reset")}
	p := newTestPublisher(client, nil, nil, nil)

	_, err := p.Publish(context.Background(), PublishRequest{Image: "data:image/jpeg;base64,AAAA", Caption: "x"})
	if !errors.IsKind(err, errors.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if client.has("login") {
		t.Fatal("login attempted after pre-login failure")
	}
}

func TestPublish_MalformedDataURI(t *testing.T) {
	client := &mockClient{}
	p := newTestPublisher(client, nil, nil, nil)

	_, err := p.Publish(context.Background(), PublishRequest{Image: "data:image/png;not-base64", Caption: "x"})
	p.Wait()
	if !errors.IsKind(err, errors.KindDecoding) {
		t.Fatalf("expected decoding error, got %v", err)
	}
	if client.has("upload") {
		t.Fatal("upload attempted with malformed image")
	}
}

func TestPublish_MissingCredentialsMakesNoCalls(t *testing.T) {
	client := &mockClient{}
	cfg := testConfig()
	cfg.Username, cfg.Password = "", ""
	p := NewPublisher(Options{Config: cfg, NewClient: func() Client { return client }, Fetcher: &mockFetcher{}})

	_, err := p.Publish(context.Background(), PublishRequest{Image: "https://example.com/a.jpg", Caption: "x"})
	if !errors.IsKind(err, errors.KindAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if len(client.Calls()) != 0 {
		t.Fatalf("remote called without credentials: %v", client.Calls())
	}
}

func TestPublish_RequestCredentialsOverrideDefaults(t *testing.T) {
	client := &mockClient{}
	p := newTestPublisher(client, nil, nil, nil)

	_, err := p.Publish(context.Background(), PublishRequest{
		Image:    image.EncodeDataURI("image/jpeg", encodeTestImage(t, "jpeg", 8, 8)),
		Caption:  "x",
		Username: "someone",
		Password: "their_pass",
	})
	p.Wait()
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if client.creds != (Credentials{"someone", "their_pass"}) {
		t.Fatalf("request credentials ignored: %+v", client.creds)
	}
}

func TestPublish_RemoteImage(t *testing.T) {
	client := &mockClient{}
	fetcher := &mockFetcher{data: encodeTestImage(t, "jpeg", 16, 9)}
	p := newTestPublisher(client, fetcher, nil, nil)

	if _, err := p.Publish(context.Background(), PublishRequest{Image: "https://cdn.example.com/img.jpg", Caption: "x"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	p.Wait()
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://cdn.example.com/img.jpg" {
		t.Fatalf("fetcher not used: %v", fetcher.urls)
	}
	if client.uploaded.Width != 16 || client.uploaded.Height != 9 {
		t.Fatalf("unexpected dims %dx%d", client.uploaded.Width, client.uploaded.Height)
	}
}

func TestPublish_RemoteFetchFailure(t *testing.T) {
	client := &mockClient{}
	fetcher := &mockFetcher{err: errors.New(errors.KindNetwork, "instagram.fetch", "timeout")}
	p := newTestPublisher(client, fetcher, nil, nil)

	_, err := p.Publish(context.Background(), PublishRequest{Image: "https://cdn.example.com/img.jpg", Caption: "x"})
	p.Wait()
	if !errors.IsKind(err, errors.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if client.has("upload") {
		t.Fatal("upload attempted after fetch failure")
	}
}

func TestPublish_PNGTranscodedToJPEG(t *testing.T) {
	client := &mockClient{}
	compressor := image.NewCompressor(image.DefaultOptions(), nil, nil)
	p := newTestPublisher(client, nil, nil, compressor)

	_, err := p.Publish(context.Background(), PublishRequest{
		Image:   image.EncodeDataURI("image/png", encodeTestImage(t, "png", 2048, 1024)),
		Caption: "x",
	})
	p.Wait()
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(client.uploaded.Bytes)); err != nil {
		t.Fatalf("uploaded bytes are not jpeg: %v", err)
	}
	if client.uploaded.Width != 1024 || client.uploaded.Height != 512 {
		t.Fatalf("unexpected dims %dx%d", client.uploaded.Width, client.uploaded.Height)
	}
}

func TestPublish_PostLoginFailureIgnored(t *testing.T) {
	client := &mockClient{postLoginErr: errors.New(errors.KindNetwork, "instagram.postlogin", "boom")}
	p := newTestPublisher(client, nil, nil, nil)

	res, err := p.Publish(context.Background(), PublishRequest{
		Image:   image.EncodeDataURI("image/jpeg", encodeTestImage(t, "jpeg", 8, 8)),
		Caption: "x",
	})
	p.Wait()
	if err != nil || res.MediaID == "" {
		t.Fatalf("post-login failure leaked into result: %v", err)
	}
}

func TestPublish_MissingCaption(t *testing.T) {
	client := &mockClient{}
	p := newTestPublisher(client, nil, nil, nil)
	_, err := p.Publish(context.Background(), PublishRequest{Image: "data:image/jpeg;base64,AAAA", Caption: "  "})
	if !errors.IsKind(err, errors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(client.Calls()) != 0 {
		t.Fatalf("unexpected calls %v", client.Calls())
	}
}
