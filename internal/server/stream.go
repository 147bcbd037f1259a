package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/gateway"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/monitoring"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// upstreamError is a non-2xx gateway answer.
type upstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("Failed to %s (status %d)", e.Op, e.Status)
}

// gatewaySnapshots reads monitoring snapshots straight from the gateway.
type gatewaySnapshots struct {
	gateway *gateway.Client
}

// MonitoringSnapshot implements monitoring.SnapshotSource.
func (g gatewaySnapshots) MonitoringSnapshot(ctx context.Context) (*models.MonitoringSnapshot, error) {
	resp, err := g.gateway.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/api/scheduler/monitoring"})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &upstreamError{Op: "fetch monitoring data", Status: resp.StatusCode, Body: string(resp.Body)}
	}
	// The gateway may wrap the snapshot in a {"data": ...} envelope.
	var envelope struct {
		Data *models.MonitoringSnapshot `json:"data"`
	}
	if err := resp.JSON(&envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	var snap models.MonitoringSnapshot
	if err := resp.JSON(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// frameFor renders a poll result as a stream frame.
func frameFor(snap *models.MonitoringSnapshot, err error) models.MonitoringFrame {
	if err == nil {
		return models.MonitoringFrame{Snapshot: snap}
	}
	var upErr *upstreamError
	switch {
	case errors.As(err, &upErr):
		return models.MonitoringFrame{Error: "Failed to " + upErr.Op, Details: upErr.Body}
	case errors.Is(err, gateway.ErrMissingAPIKey):
		return models.MonitoringFrame{Error: missingKeyMessage, Details: missingKeyDetails}
	case errors.Is(err, gateway.ErrMissingBaseURL):
		return models.MonitoringFrame{Error: missingKeyMessage, Details: missingGatewayDetails}
	default:
		return models.MonitoringFrame{Error: "Internal server error", Details: err.Error()}
	}
}

// handleMonitoringStream pushes a snapshot frame every poll interval until
// the client goes away.
func (s *Server) handleMonitoringStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the peer closing; incoming messages are ignored.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("monitoring stream opened", "remote", r.RemoteAddr)
	poller := monitoring.NewPoller(gatewaySnapshots{gateway: s.gateway}, s.interval, s.logger)
	poller.Run(ctx, func(snap *models.MonitoringSnapshot, err error) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if werr := conn.WriteJSON(frameFor(snap, err)); werr != nil {
			s.logger.Debug("monitoring stream write failed", "error", werr)
			cancel()
		}
	})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	s.logger.Debug("monitoring stream closed", "remote", r.RemoteAddr)
}
