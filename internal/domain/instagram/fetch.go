package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/utils"
)

var validImageContentTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
}

// RemoteFetcher downloads images over http(s) with a size cap.
type RemoteFetcher struct {
	rc       *resty.Client
	maxBytes int64
	logger   *utils.Logger
}

func NewRemoteFetcher(timeout time.Duration, maxBytes int64, logger *utils.Logger) *RemoteFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetLogger(restyLogger{logger}).
		SetHeader("User-Agent", "SocialPost-Image-Fetcher/1.0")
	return &RemoteFetcher{rc: rc, maxBytes: maxBytes, logger: logger}
}

func (f *RemoteFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New(errors.KindValidation, "instagram.fetch", "image must be a data URI or an http(s) URL")
	}

	resp, err := f.rc.R().SetContext(ctx).SetDoNotParseResponse(true).Get(rawURL)
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "instagram.fetch", "image download failed", err)
	}
	body := resp.RawBody()
	if body == nil {
		return nil, errors.New(errors.KindNetwork, "instagram.fetch", "image download returned no body")
	}
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, errors.New(errors.KindNetwork, "instagram.fetch", fmt.Sprintf("image download returned %d", resp.StatusCode()))
	}

	contentType := resp.Header().Get("Content-Type")
	if !isValidImageContentType(contentType) {
		return nil, errors.New(errors.KindValidation, "instagram.fetch", "invalid content type: "+contentType)
	}
	if cl := resp.RawResponse.ContentLength; cl > f.maxBytes {
		return nil, errors.New(errors.KindValidation, "instagram.fetch",
			fmt.Sprintf("image too large: %d bytes (max %d)", cl, f.maxBytes))
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "instagram.fetch", "image download interrupted", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, errors.New(errors.KindValidation, "instagram.fetch",
			fmt.Sprintf("image exceeds %d bytes", f.maxBytes))
	}

	f.logger.InfoTag(logTag, "图片下载完成", map[string]interface{}{
		"host":         u.Host,
		"content_type": contentType,
		"size":         len(data),
	})
	return data, nil
}

func isValidImageContentType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	for _, valid := range validImageContentTypes {
		if contentType == valid {
			return true
		}
	}
	return false
}
