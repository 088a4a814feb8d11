package terabox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIBaseURL is the public resolver deployment.
	DefaultAPIBaseURL = "https://terabox-dl.qtcloud.workers.dev"

	maxAttempts  = 3
	retryBackoff = time.Second
)

// ErrInvalidURL means the input did not contain a recognizable share link.
var ErrInvalidURL = errors.New("invalid terabox url")

// File is a resolved share: metadata plus the direct download link.
type File struct {
	Name        string
	SizeBytes   int64
	DownloadURL string
	IsFolder    bool
	ShareID     string
}

// Client resolves share links against the resolver API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

type infoResponse struct {
	OK   bool   `json:"ok"`
	Msg  string `json:"msg"`
	Info struct {
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
		IsDir    bool   `json:"is_dir"`
	} `json:"info"`
}

type downloadResponse struct {
	OK          bool   `json:"ok"`
	Msg         string `json:"msg"`
	DownloadURL string `json:"download_url"`
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Resolve turns a share link into file metadata and a direct download link.
func (c *Client) Resolve(ctx context.Context, rawURL string) (*File, error) {
	shareID := ShareID(rawURL)
	if shareID == "" {
		return nil, ErrInvalidURL
	}

	var info infoResponse
	if err := c.get(ctx, "/api/get-info", shareID, &info); err != nil {
		return nil, fmt.Errorf("file info: %w", err)
	}
	if !info.OK {
		return nil, fmt.Errorf("file info: resolver rejected share %q: %s", shareID, orUnknown(info.Msg))
	}

	var dl downloadResponse
	if err := c.get(ctx, "/api/get-download", shareID, &dl); err != nil {
		return nil, fmt.Errorf("download link: %w", err)
	}
	if !dl.OK {
		return nil, fmt.Errorf("download link: resolver rejected share %q: %s", shareID, orUnknown(dl.Msg))
	}

	return &File{
		Name:        info.Info.Filename,
		SizeBytes:   info.Info.Size,
		DownloadURL: dl.DownloadURL,
		IsFolder:    info.Info.IsDir,
		ShareID:     shareID,
	}, nil
}

func (c *Client) get(ctx context.Context, path, shareID string, out any) error {
	endpoint := c.baseURL + path + "?shorturl=" + url.QueryEscape(shareID)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("resolver request: %w", err)
			continue
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read resolver response: %w", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("resolver status %d", resp.StatusCode)
			continue
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode resolver response: %w", err)
		}
		return nil
	}
	if c.log != nil {
		c.log.Warn("resolver call failed after retries", "path", path, "share_id", shareID, "err", lastErr)
	}
	return lastErr
}

func orUnknown(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
