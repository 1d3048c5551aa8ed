package channels

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultDownloadTimeout = 2 * time.Minute

// Downloader streams remote attachment bodies.
type Downloader struct {
	client *resty.Client
	proxy  string
}

// NewDownloader builds a downloader. proxy may be empty.
func NewDownloader(timeout time.Duration, proxy string) *Downloader {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if proxy != "" {
		client.SetProxy(proxy)
	}
	return &Downloader{client: client, proxy: proxy}
}

// Proxy returns the proxy URL requests go through, or "" for a direct
// connection.
func (d *Downloader) Proxy() string { return d.proxy }

// Get returns the body of url. The caller closes it.
func (d *Downloader) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		if body != nil {
			body.Close()
		}
		return nil, fmt.Errorf("download: unexpected status %d", resp.StatusCode())
	}
	return body, nil
}
