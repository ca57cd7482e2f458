// Package audit writes security-relevant events to the events collection and
// mirrors them to the process log.
package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
)

// Event levels
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Logger records audit events. Failures to persist an event never fail the
// calling operation, they are only logged.
type Logger struct {
	Events databases.EventDatabase
}

// Log persists one audit event, pulling the caller's IP and user agent from
// the request when one is given
func (l *Logger) Log(ctx context.Context, level, event, userID string, r *http.Request, metadata map[string]interface{}) {
	e := models.Event{
		Level:     level,
		Event:     event,
		UserID:    userID,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	if r != nil {
		e.IP = clientIP(r)
		e.UserAgent = r.UserAgent()
	}

	zap.S().Infow("audit",
		"level", level,
		"event", event,
		"userId", userID,
		"ip", e.IP,
		"metadata", metadata,
	)

	if l.Events == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := l.Events.InsertOne(writeCtx, e); err != nil {
		zap.S().Errorw("failed to persist audit event", "event", event, "error", err)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
