package instagram

import (
	"context"
	"time"
)

// State is a step of a single publish operation. Transitions are strictly
// sequential; any failure moves the run to StateFailed.
type State string

const (
	StateIdle              State = "idle"
	StateDeviceInitialized State = "device_initialized"
	StatePreLoginDone      State = "pre_login_done"
	StateAuthenticated     State = "authenticated"
	StateImageDecoded      State = "image_decoded"
	StatePublished         State = "published"
	StateFailed            State = "failed"
)

// PublishRequest is one request to post a photo. Image is either a base64
// data URI or a remote http(s) URL. Blank credentials fall back to the
// configured defaults.
type PublishRequest struct {
	Image    string
	Caption  string
	Username string
	Password string
}

type PublishResult struct {
	MediaID  string
	Username string
	Duration time.Duration
}

type Credentials struct {
	Username string
	Password string
}

// Device is the emulated Android device identity presented to Instagram.
type Device struct {
	DeviceString   string
	AndroidID      string
	UUID           string
	PhoneID        string
	AdID           string
	FamilyDeviceID string
	UserAgent      string
}

// Session is the authenticated state returned by login. It lives for one
// publish and is never persisted.
type Session struct {
	UserID        string
	Username      string
	Authorization string
	CSRFToken     string
}

// Photo is a validated image ready for upload.
type Photo struct {
	Bytes  []byte
	Width  int
	Height int
}

// Client speaks the remote protocol. A client instance holds the device
// and session of exactly one publish.
type Client interface {
	GenerateDevice(username string) Device
	PreLoginFlow(ctx context.Context) error
	Login(ctx context.Context, creds Credentials) (*Session, error)
	PostLoginFlow(ctx context.Context) error
	UploadPhoto(ctx context.Context, photo Photo, caption string) (string, error)
}

// ClientFactory builds a fresh Client for each publish.
type ClientFactory func() Client

// Fetcher downloads remote images.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// EventPublisher receives publish audit events.
type EventPublisher interface {
	PublishAsync(topic string, args ...interface{})
}
