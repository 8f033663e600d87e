package instagram

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/utils"
)

const logTag = "Instagram"

// ClientOptions configures the private API client.
type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	Logger  *utils.Logger
}

// HTTPClient talks to the Instagram mobile private API over HTTPS.
type HTTPClient struct {
	rc     *resty.Client
	logger *utils.Logger

	mu      sync.RWMutex
	device  Device
	session *Session
	csrf    string
}

// NewClientFactory returns a factory that builds an independent HTTPClient
// (own cookie jar, device and session) per publish.
func NewClientFactory(opts ClientOptions) ClientFactory {
	return func() Client {
		return NewHTTPClient(opts)
	}
}

func NewHTTPClient(opts ClientOptions) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(restyLogger{opts.Logger}).
		SetHeaders(map[string]string{
			"X-IG-App-ID":          appID,
			"X-IG-Capabilities":    "3brTvx0=",
			"X-IG-Connection-Type": "WIFI",
			"Accept-Language":      "en-US",
		})
	return &HTTPClient{rc: rc, logger: opts.Logger}
}

func (c *HTTPClient) GenerateDevice(username string) Device {
	device := GenerateDevice(username)
	c.mu.Lock()
	c.device = device
	c.mu.Unlock()
	c.rc.SetHeaders(map[string]string{
		"User-Agent":            device.UserAgent,
		"X-IG-Device-ID":        device.UUID,
		"X-IG-Android-ID":       device.AndroidID,
		"X-IG-Family-Device-ID": device.FamilyDeviceID,
	})
	return device
}

func (c *HTTPClient) PreLoginFlow(ctx context.Context) error {
	device := c.currentDevice()
	steps := []struct {
		op   string
		path string
		form map[string]string
	}{
		{"launcher_sync", "/api/v1/launcher/sync/", map[string]string{
			"id":                      device.UUID,
			"server_config_retrieval": "1",
		}},
		{"qe_sync", "/api/v1/qe/sync/", map[string]string{
			"id":          device.UUID,
			"experiments": "ig_android_fci_onboarding_friend_search,ig_android_device_detection_info_upload",
		}},
		{"contact_point_prefill", "/api/v1/accounts/contact_point_prefill/", map[string]string{
			"phone_id": device.PhoneID,
			"usage":    "prefill",
		}},
	}

	for _, step := range steps {
		resp, err := c.request(ctx).SetFormData(step.form).Post(step.path)
		if _, err := c.check("prelogin."+step.op, resp, err); err != nil {
			return err
		}
		c.captureCSRF(resp)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*Session, error) {
	device := c.currentDevice()
	c.mu.RLock()
	csrf := c.csrf
	c.mu.RUnlock()
	if csrf == "" {
		csrf = "missing"
	}

	body, err := signedBody(map[string]interface{}{
		"username":            creds.Username,
		"enc_password":        fmt.Sprintf("#PWD_INSTAGRAM:0:%d:%s", time.Now().Unix(), creds.Password),
		"guid":                device.UUID,
		"phone_id":            device.PhoneID,
		"_csrftoken":          csrf,
		"device_id":           device.AndroidID,
		"adid":                device.AdID,
		"google_tokens":       "[]",
		"login_attempt_count": "0",
		"country_codes":       `[{"country_code":"1","source":"default"}]`,
		"jazoest":             jazoest(device.PhoneID),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "instagram.login", "failed to sign login payload", err)
	}

	resp, err := c.request(ctx).SetFormData(map[string]string{"signed_body": body}).Post("/api/v1/accounts/login/")
	parsed, err := c.check("login", resp, err)
	if err != nil {
		return nil, err
	}
	if parsed.LoggedInUser == nil {
		return nil, errors.New(errors.KindAuthentication, "instagram.login", "login response has no user")
	}

	session := &Session{
		UserID:        strconv.FormatInt(parsed.LoggedInUser.PK, 10),
		Username:      parsed.LoggedInUser.Username,
		Authorization: resp.Header().Get("ig-set-authorization"),
		CSRFToken:     csrf,
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	c.captureCSRF(resp)
	return session, nil
}

func (c *HTTPClient) PostLoginFlow(ctx context.Context) error {
	device := c.currentDevice()
	resp, err := c.request(ctx).SetFormData(map[string]string{
		"supported_capabilities_new": "[]",
		"reason":                     "cold_start",
		"_uuid":                      device.UUID,
	}).Post("/api/v1/feed/reels_tray/")
	if _, err := c.check("postlogin.reels_tray", resp, err); err != nil {
		return err
	}

	resp, err = c.request(ctx).SetFormData(map[string]string{
		"reason":             "cold_start_fetch",
		"is_pull_to_refresh": "0",
		"_uuid":              device.UUID,
		"device_id":          device.AndroidID,
		"phone_id":           device.PhoneID,
		"battery_level":      "100",
		"timezone_offset":    "0",
	}).Post("/api/v1/feed/timeline/")
	_, err = c.check("postlogin.timeline", resp, err)
	return err
}

// UploadPhoto uploads the JPEG bytes and configures them as a feed post.
// It returns the id of the created media.
func (c *HTTPClient) UploadPhoto(ctx context.Context, photo Photo, caption string) (string, error) {
	device := c.currentDevice()
	session := c.currentSession()
	if session == nil {
		return "", errors.New(errors.KindAuthentication, "instagram.upload", "not logged in")
	}

	uploadID := strconv.FormatInt(time.Now().UnixMilli(), 10)
	entityName := fmt.Sprintf("%s_0_%d", uploadID, rand.Int63n(9e9)+1e9)
	ruploadParams, err := sonic.MarshalString(map[string]interface{}{
		"retry_context":     `{"num_step_auto_retry":0,"num_reupload":0,"num_step_manual_retry":0}`,
		"media_type":        "1",
		"upload_id":         uploadID,
		"xsharing_user_ids": "[]",
		"image_compression": `{"lib_name":"moz","lib_version":"3.1.m","quality":"80"}`,
	})
	if err != nil {
		return "", errors.Wrap(errors.KindUnknown, "instagram.upload", "failed to encode upload params", err)
	}

	resp, err := c.request(ctx).
		SetHeaders(map[string]string{
			"X_FB_PHOTO_WATERFALL_ID":    uuid.NewString(),
			"X-Entity-Type":              "image/jpeg",
			"Offset":                     "0",
			"X-Instagram-Rupload-Params": ruploadParams,
			"X-Entity-Name":              entityName,
			"X-Entity-Length":            strconv.Itoa(len(photo.Bytes)),
			"Content-Type":               "application/octet-stream",
		}).
		SetBody(photo.Bytes).
		Post("/rupload_igphoto/" + entityName)
	if _, err := c.check("upload.rupload", resp, err); err != nil {
		return "", err
	}

	body, err := signedBody(map[string]interface{}{
		"upload_id":   uploadID,
		"caption":     caption,
		"source_type": "4",
		"_uid":        session.UserID,
		"_uuid":       device.UUID,
		"device_id":   device.AndroidID,
		"extra": map[string]int{
			"source_width":  photo.Width,
			"source_height": photo.Height,
		},
		"edits": map[string]interface{}{
			"crop_original_size": []int{photo.Width, photo.Height},
			"crop_center":        []float64{0, 0},
			"crop_zoom":          1.0,
		},
	})
	if err != nil {
		return "", errors.Wrap(errors.KindUnknown, "instagram.configure", "failed to sign configure payload", err)
	}

	resp, err = c.request(ctx).SetFormData(map[string]string{"signed_body": body}).Post("/api/v1/media/configure/")
	parsed, err := c.check("upload.configure", resp, err)
	if err != nil {
		return "", err
	}
	if parsed.Media == nil || parsed.Media.ID == "" {
		return "", errors.New(errors.KindUnknown, "instagram.configure", "configure response has no media id")
	}
	return parsed.Media.ID, nil
}

type apiResponse struct {
	Status             string `json:"status"`
	Message            string `json:"message"`
	ErrorType          string `json:"error_type"`
	InvalidCredentials bool   `json:"invalid_credentials"`
	TwoFactorRequired  bool   `json:"two_factor_required"`
	LoggedInUser       *struct {
		PK       int64  `json:"pk"`
		Username string `json:"username"`
	} `json:"logged_in_user"`
	UploadID string `json:"upload_id"`
	Media    *struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	} `json:"media"`
}

var authErrorTypes = map[string]bool{
	"bad_password":                  true,
	"invalid_user":                  true,
	"checkpoint_challenge_required": true,
	"two_factor_required":           true,
	"inactive user":                 true,
}

// check maps a resty outcome onto the error kinds: transport failures are
// network errors, credential rejections on login are authentication errors
// and anything else the remote refuses is unknown.
func (c *HTTPClient) check(op string, resp *resty.Response, err error) (*apiResponse, error) {
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "instagram."+op, "request failed", err)
	}

	parsed := &apiResponse{}
	if body := resp.Body(); len(body) > 0 {
		if uerr := sonic.Unmarshal(body, parsed); uerr != nil && resp.IsSuccess() {
			return nil, errors.Wrap(errors.KindUnknown, "instagram."+op, "unexpected response body", uerr)
		}
	}

	if resp.IsSuccess() && parsed.Status != "fail" {
		return parsed, nil
	}

	c.logger.DebugTag(logTag, "%s rejected: status=%d error_type=%s message=%s", op, resp.StatusCode(), parsed.ErrorType, parsed.Message)
	msg := fmt.Sprintf("remote returned %d", resp.StatusCode())
	if parsed.Message != "" {
		msg += ": " + parsed.Message
	}

	switch {
	case op == "login" && (parsed.InvalidCredentials || parsed.TwoFactorRequired || authErrorTypes[parsed.ErrorType] ||
		resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusForbidden):
		return nil, errors.New(errors.KindAuthentication, "instagram."+op, msg)
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, errors.New(errors.KindAuthentication, "instagram."+op, msg)
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
		return nil, errors.New(errors.KindNetwork, "instagram."+op, msg)
	default:
		return nil, errors.New(errors.KindUnknown, "instagram."+op, msg)
	}
}

func (c *HTTPClient) request(ctx context.Context) *resty.Request {
	req := c.rc.R().SetContext(ctx)
	if s := c.currentSession(); s != nil {
		if s.Authorization != "" {
			req.SetHeader("Authorization", s.Authorization)
		}
		req.SetHeader("IG-U-DS-USER-ID", s.UserID)
	}
	return req
}

func (c *HTTPClient) captureCSRF(resp *resty.Response) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" && cookie.Value != "" {
			c.mu.Lock()
			c.csrf = cookie.Value
			c.mu.Unlock()
			return
		}
	}
}

func (c *HTTPClient) currentDevice() Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.device
}

func (c *HTTPClient) currentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func signedBody(payload map[string]interface{}) (string, error) {
	data, err := sonic.MarshalString(payload)
	if err != nil {
		return "", err
	}
	return "SIGNATURE." + data, nil
}

// jazoest is the checksum Instagram expects next to the phone id.
func jazoest(input string) string {
	sum := 0
	for _, r := range input {
		sum += int(r)
	}
	return "2" + strconv.Itoa(sum)
}

type restyLogger struct {
	l *utils.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.ErrorTag(logTag, format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.WarnTag(logTag, format, v...) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.DebugTag(logTag, format, v...) }
