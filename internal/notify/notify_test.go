package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calmapp/counselbook/internal/model"
)

func sampleConsultation() *model.Consultation {
	return &model.Consultation{
		ID:          uuid.New(),
		StudentID:   uuid.New(),
		CounselorID: uuid.New(),
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		StartTime:   "10:00",
		Status:      model.StatusPending,
	}
}

func TestWebhookDispatcher(t *testing.T) {
	c := sampleConsultation()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)

		var payload eventPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "booked", payload.Event)
		assert.Equal(t, c.ID.String(), payload.ConsultationID)
		assert.Equal(t, "2026-03-14", payload.Date)
		assert.Equal(t, "10:00", payload.StartTime)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher(srv.URL, "")
	assert.NoError(t, d.Dispatch(context.Background(), EventBooked, c))
}

func TestWebhookDispatcherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher(srv.URL, "")
	assert.Error(t, d.Dispatch(context.Background(), EventRejected, sampleConsultation()))
}

func TestLogDispatcher(t *testing.T) {
	d := NewLogDispatcher(zap.NewNop())
	assert.NoError(t, d.Dispatch(context.Background(), EventAccepted, sampleConsultation()))
}
