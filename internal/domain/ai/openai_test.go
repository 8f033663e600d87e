package ai

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/arth-1/socialpost/internal/platform/config"
	"github.com/arth-1/socialpost/internal/platform/errors"
)

func newFakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		req := map[string]interface{}{}
		_ = sonic.Unmarshal(body, &req)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/chat/completions":
			if req["model"] != "gpt-test" {
				t.Errorf("unexpected model %v", req["model"])
			}
			io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"better prompt"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`)
		case "/v1/images/generations":
			if req["response_format"] != "b64_json" {
				t.Errorf("unexpected response_format %v", req["response_format"])
			}
			payload := base64.StdEncoding.EncodeToString(pngHeader)
			io.WriteString(w, `{"created":1,"data":[{"b64_json":"`+payload+`"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIText(t *testing.T) {
	srv := newFakeOpenAI(t)
	model, err := NewTextModel(config.LLMConfig{Type: "openai", ModelName: "gpt-test", BaseURL: srv.URL + "/v1", APIKey: "test-key"}, nil)
	if err != nil {
		t.Fatalf("NewTextModel: %v", err)
	}
	out, err := model.Complete(context.Background(), "hello")
	if err != nil || out != "better prompt" {
		t.Fatalf("Complete: %q, %v", out, err)
	}
}

func TestOpenAIImage(t *testing.T) {
	srv := newFakeOpenAI(t)
	model, err := NewImageModel(config.ImageGenConfig{Type: "openai", BaseURL: srv.URL + "/v1", APIKey: "test-key"}, nil)
	if err != nil {
		t.Fatalf("NewImageModel: %v", err)
	}
	img, err := model.GenerateImage(context.Background(), "a lighthouse")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if img.MIME != "image/png" || string(img.Data) != string(pngHeader) {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestOpenAI_BadKeyIsNetworkError(t *testing.T) {
	srv := newFakeOpenAI(t)
	model, err := NewTextModel(config.LLMConfig{Type: "openai", BaseURL: srv.URL + "/v1", APIKey: "wrong"}, nil)
	if err != nil {
		t.Fatalf("NewTextModel: %v", err)
	}
	if _, err := model.Complete(context.Background(), "hello"); !errors.IsKind(err, errors.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	if _, err := NewTextModel(config.LLMConfig{Type: "nope"}, nil); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if _, err := NewImageModel(config.ImageGenConfig{Type: "openai"}, nil); err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Selected.LLM = "Missing"
	if _, err := SelectedText(cfg, nil); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
