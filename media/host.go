package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"wanderlust/config"
	"wanderlust/utils"
)

// Uploader stores one prepared image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// HostClient uploads to the image host with an unsigned upload preset.
type HostClient struct {
	endpoint string
	preset   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[string]
}

func NewHostClient(cfg config.MediaConfig) *HostClient {
	return &HostClient{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + cfg.CloudName + "/image/upload",
		preset:   cfg.UploadPreset,
		http:     &http.Client{Timeout: 60 * time.Second},
		breaker:  utils.NewBreaker[string]("image-host", utils.BreakerSettings{MinRequests: 5}),
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HostClient) Upload(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("upload_preset", c.preset); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url, err := c.breaker.Execute(func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body.Bytes()))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := c.http.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		var out uploadResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
			return "", fmt.Errorf("decode upload response (%d): %w", resp.StatusCode, err)
		}
		if resp.StatusCode >= 300 || out.SecureURL == "" {
			msg := "no url returned"
			if out.Error != nil {
				msg = out.Error.Message
			}
			return "", fmt.Errorf("image host returned %d: %s", resp.StatusCode, msg)
		}
		return out.SecureURL, nil
	})
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("[Media] upload failed")
		return "", utils.BreakerErr(fmt.Errorf("%w: %w", utils.ErrUpstream, err))
	}
	return url, nil
}
