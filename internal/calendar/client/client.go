// Package client provides the HTTP client for the external calendar
// reschedule-link provider.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"
)

const requestTimeout = 10 * time.Second

// Client is the HTTP client for the calendar provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// New creates a new calendar provider client. The client-level timeout
// guarantees link fetches never hang a user-facing operation.
func New(baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		log:        log,
	}
}

type inviteeResponse struct {
	Resource struct {
		RescheduleURL string `json:"reschedule_url"`
	} `json:"resource"`
}

// FetchRescheduleLink resolves the reschedule URL for an invitee reference
// using the team's provider credential. Failures map to the typed
// external-collaborator codes so the pipeline can surface actionable messages.
func (c *Client) FetchRescheduleLink(ctx context.Context, inviteeRef, teamCredential string) (string, error) {
	reqURL := fmt.Sprintf("%s/scheduled_events/invitees/%s", c.baseURL, url.PathEscape(inviteeRef))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+teamCredential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			c.log.Warn("calendar link fetch timed out", "invitee", inviteeRef)
			return "", apperr.Unavailable(apperr.CodeCalendarTimeout, "calendar provider did not respond in time")
		}
		c.log.Error("calendar request failed", "error", err)
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success - continue to decode
	case http.StatusUnauthorized, http.StatusForbidden:
		c.log.Error("calendar unauthorized", "status", resp.StatusCode)
		return "", apperr.Unavailable(apperr.CodeCalendarUnauthenticated, "calendar credentials were rejected")
	case http.StatusNotFound:
		c.log.Debug("calendar invitee not found", "invitee", inviteeRef)
		return "", apperr.Unavailable(apperr.CodeCalendarNotFound, "invitee reference not found at calendar provider")
	default:
		c.log.Error("calendar upstream error", "status", resp.StatusCode)
		return "", fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	var payload inviteeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Error("calendar decode failed", "error", err)
		return "", fmt.Errorf("decode response: %w", err)
	}

	if payload.Resource.RescheduleURL == "" {
		return "", apperr.Unavailable(apperr.CodeCalendarNotFound, "no reschedule link available for invitee")
	}

	return payload.Resource.RescheduleURL, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
