package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
)

// Client implements remote.RawBackend against a httpstore server.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
	}
}

func (c *Client) docURL(path, id string) string {
	u := c.baseURL + "/v1/docs/" + path
	if id != "" {
		u += "?id=" + url.QueryEscape(id)
	}
	return u
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) GetDoc(ctx context.Context, path, id string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.docURL(path, id), nil)
	if err != nil {
		return nil, err
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", path, id, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, remote.ErrNotFound
	case status != http.StatusOK:
		return nil, fmt.Errorf("fetch %s/%s: unexpected status %d", path, id, status)
	}
	return body, nil
}

func (c *Client) ListDocs(ctx context.Context, path string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.docURL(path, ""), nil)
	if err != nil {
		return nil, err
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list %s: unexpected status %d", path, status)
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode listing of %s: %w", path, err)
	}
	return docs, nil
}

func (c *Client) PutDoc(ctx context.Context, path, id string, doc json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.docURL(path, id), bytes.NewReader(doc))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	_, status, err := c.do(req)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", path, id, err)
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("put %s/%s: unexpected status %d", path, id, status)
	}
	return nil
}

func (c *Client) DeleteDoc(ctx context.Context, path, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.docURL(path, id), nil)
	if err != nil {
		return err
	}

	_, status, err := c.do(req)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", path, id, err)
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("delete %s/%s: unexpected status %d", path, id, status)
	}
	return nil
}

func (c *Client) WatchDocs(ctx context.Context, path string, fn func(remote.RawEvent)) (remote.Unsubscribe, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/watch/" + path

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	stopped := make(chan struct{})
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			close(stopped)
			conn.Close()
		})
	}

	go func() {
		for {
			var ev remote.RawEvent
			if err := conn.ReadJSON(&ev); err != nil {
				select {
				case <-stopped:
				default:
					logger.Log.Warn("Change feed closed",
						zap.String("path", path), zap.Error(err))
				}
				return
			}
			fn(ev)
		}
	}()

	return unsub, nil
}
