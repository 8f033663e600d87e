package publish

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arth-1/socialpost/internal/domain/instagram"
	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/platform/storage"
	platformtesting "github.com/arth-1/socialpost/internal/platform/testing"
)

type stubPublisher struct {
	calls  int
	last   instagram.PublishRequest
	result *instagram.PublishResult
	err    error
}

func (s *stubPublisher) Publish(ctx context.Context, req instagram.PublishRequest) (*instagram.PublishResult, error) {
	s.calls++
	s.last = req
	return s.result, s.err
}

type stubAudit struct {
	records []storage.PublishRecord
	limit   int
}

func (s *stubAudit) Store(ctx context.Context, record *storage.PublishRecord) error { return nil }
func (s *stubAudit) Recent(ctx context.Context, limit int) ([]storage.PublishRecord, error) {
	s.limit = limit
	return s.records, nil
}
func (s *stubAudit) Stats(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{"published": 2, "failed": 1}, nil
}
func (s *stubAudit) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func newEngine(t *testing.T, pub Publisher, audit *stubAudit) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := platformtesting.SetupTestLogger(t).Legacy()
	var svc *Service
	var err error
	if audit != nil {
		svc, err = NewService(pub, audit, logger)
	} else {
		svc, err = NewService(pub, nil, logger)
	}
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	engine := gin.New()
	api := engine.Group("/api")
	svc.Register(api, api)
	return engine
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestPostToInstagram_MethodNotAllowed(t *testing.T) {
	pub := &stubPublisher{}
	engine := newEngine(t, pub, nil)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(engine, method, "/api/postToInstagram", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: status %d", method, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != `{"error":"Method not allowed"}` {
			t.Fatalf("%s: body %s", method, rec.Body.String())
		}
	}
	if pub.calls != 0 {
		t.Fatalf("publisher called %d times", pub.calls)
	}
}

func TestPostToInstagram_MissingFields(t *testing.T) {
	pub := &stubPublisher{}
	engine := newEngine(t, pub, nil)
	for _, body := range []string{
		`{"caption":"hi"}`,
		`{"imageUrl":"data:image/jpeg;base64,AAAA"}`,
		`{"imageUrl":"","caption":""}`,
		`{"imageUrl":"x","caption":"   "}`,
		`not json`,
	} {
		rec := do(engine, http.MethodPost, "/api/postToInstagram", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status %d", body, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != `{"error":"Missing image or caption"}` {
			t.Fatalf("body %s: response %s", body, rec.Body.String())
		}
	}
	if pub.calls != 0 {
		t.Fatalf("publisher called %d times", pub.calls)
	}
}

func TestPostToInstagram_Success(t *testing.T) {
	pub := &stubPublisher{result: &instagram.PublishResult{MediaID: "123_456"}}
	engine := newEngine(t, pub, nil)
	rec := do(engine, http.MethodPost, "/api/postToInstagram",
		`{"imageUrl":"data:image/jpeg;base64,AAAA","caption":"hello","instaUser":"me","instaPass":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != `{"success":true,"mediaId":"123_456"}` {
		t.Fatalf("body %s", rec.Body.String())
	}
	want := instagram.PublishRequest{Image: "data:image/jpeg;base64,AAAA", Caption: "hello", Username: "me", Password: "pw"}
	if pub.last != want {
		t.Fatalf("unexpected request %+v", pub.last)
	}
}

func TestPostToInstagram_FailuresAreGeneric(t *testing.T) {
	for _, err := range []error{
		errors.New(errors.KindAuthentication, "instagram.login", "bad password for me"),
		errors.New(errors.KindDecoding, "image.datauri", "Invalid data URI"),
		errors.New(errors.KindNetwork, "instagram.upload", "connection reset"),
		errors.New(errors.KindUnknown, "instagram.configure", "no media id"),
	} {
		pub := &stubPublisher{err: err}
		engine := newEngine(t, pub, nil)
		rec := do(engine, http.MethodPost, "/api/postToInstagram", `{"imageUrl":"data:image/png;not-base64","caption":"c"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%v: status %d", err, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != `{"error":"Failed to post to Instagram"}` {
			t.Fatalf("%v: detail leaked: %s", err, rec.Body.String())
		}
	}
}

func TestPublishes(t *testing.T) {
	audit := &stubAudit{records: []storage.PublishRecord{{Status: "published", MediaID: "1_2"}}}
	engine := newEngine(t, &stubPublisher{}, audit)

	rec := do(engine, http.MethodGet, "/api/publishes?limit=5", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"media_id":"1_2"`) {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if audit.limit != 5 {
		t.Fatalf("limit = %d", audit.limit)
	}

	if rec := do(engine, http.MethodGet, "/api/publishes?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 status %d", rec.Code)
	}

	rec = do(engine, http.MethodGet, "/api/publishes/stats", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"published":2`) {
		t.Fatalf("stats status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestNewService_RequiresPublisher(t *testing.T) {
	if _, err := NewService(nil, nil, nil); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
