package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// =============================================================================
// STREAMING OPERATIONS
// =============================================================================

// StreamMonitoring subscribes to the server's monitoring stream. onFrame is
// called with every snapshot, or with an *APIError for error frames; return
// an error from onFrame to stop. It returns when ctx is cancelled, the server
// closes the stream or onFrame fails.
func (c *Client) StreamMonitoring(
	ctx context.Context,
	onFrame func(*models.MonitoringSnapshot, error) error,
) error {
	wsEndpoint := c.baseURL + "/api/scheduler/monitoring/stream"
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return fmt.Errorf("websocket connect: %w", &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)})
		}
		return fmt.Errorf("websocket connect: %w", err)
	}

	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var frame models.MonitoringFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		var frameErr error
		if frame.Error != "" {
			frameErr = &APIError{Status: http.StatusBadGateway, Message: frame.Error, Details: frame.Details}
		}
		if err := onFrame(frame.Snapshot, frameErr); err != nil {
			return err
		}
	}
}
