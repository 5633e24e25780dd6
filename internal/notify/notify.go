// Package notify is the fire-and-forget notification contract. Dispatch
// failures never roll back the transition that triggered them; callers log
// and move on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calmapp/counselbook/internal/model"
)

type Event string

const (
	EventBooked   Event = "booked"
	EventAccepted Event = "accepted"
	EventRejected Event = "rejected"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, event Event, c *model.Consultation) error
}

// WebhookDispatcher posts events to the notification service's intake
// endpoint.
type WebhookDispatcher struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookDispatcher(url, token string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type eventPayload struct {
	Event          string `json:"event"`
	ConsultationID string `json:"consultation_id"`
	StudentID      string `json:"student_id"`
	CounselorID    string `json:"counselor_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, event Event, c *model.Consultation) error {
	payload, err := json.Marshal(eventPayload{
		Event:          string(event),
		ConsultationID: c.ID.String(),
		StudentID:      c.StudentID.String(),
		CounselorID:    c.CounselorID.String(),
		Date:           c.Date.Format("2006-01-02"),
		StartTime:      c.StartTime,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url+"/events", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dispatch notification: dispatcher returned %d", resp.StatusCode)
	}

	return nil
}

// LogDispatcher records events to the log only. Used in development and as
// the fallback when no webhook is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, event Event, c *model.Consultation) error {
	d.logger.Info("Notification event",
		zap.String("event", string(event)),
		zap.String("consultation_id", c.ID.String()),
		zap.String("student_id", c.StudentID.String()),
		zap.String("counselor_id", c.CounselorID.String()),
	)
	return nil
}
