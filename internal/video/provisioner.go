// Package video holds the contract with the external video-room service:
// given a confirmed consultation, obtain a join URL. The engine does not
// retry on failure and does not commit an acceptance without a room.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Provisioner interface {
	// CreateRoom provisions a video room for the consultation and returns
	// its join URL.
	CreateRoom(ctx context.Context, consultationID uuid.UUID) (string, error)
}

// Client provisions rooms over the provider's HTTP API.
type Client struct {
	url   string
	token string
	http  *http.Client
}

func NewClient(url, token string) *Client {
	return &Client{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type createRoomRequest struct {
	ConsultationID string `json:"consultation_id"`
}

type createRoomResponse struct {
	JoinURL string `json:"join_url"`
}

func (c *Client) CreateRoom(ctx context.Context, consultationID uuid.UUID) (string, error) {
	payload, err := json.Marshal(createRoomRequest{ConsultationID: consultationID.String()})
	if err != nil {
		return "", fmt.Errorf("marshal room request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/rooms", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build room request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("create room: provider returned %d", resp.StatusCode)
	}

	var out createRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode room response: %w", err)
	}
	if out.JoinURL == "" {
		return "", errors.New("create room: provider returned no join URL")
	}

	return out.JoinURL, nil
}

// Disabled is the provisioner used when no provider is configured. Every
// acceptance fails fast instead of committing without a room.
type Disabled struct{}

func (Disabled) CreateRoom(context.Context, uuid.UUID) (string, error) {
	return "", errors.New("video provisioning is not configured")
}
