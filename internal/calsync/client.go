// Package calsync provides the HTTP client for the external scheduling
// provider. It implements the booking module's ExternalLister contract.
package calsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"voicecrm_backend/internal/bookings/service"
	"voicecrm_backend/platform/config"
	"voicecrm_backend/platform/logger"
)

// apiVersionHeader pins the provider API version per their v2 contract.
const apiVersionHeader = "2024-08-13"

// Client is the HTTP client for the scheduling provider API.
type Client struct {
	httpClient *http.Client
	cfg        config.CalSyncConfig
	log        *logger.Logger
}

// NewClient creates a new scheduling provider client.
func NewClient(cfg config.CalSyncConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cfg:        cfg,
		log:        log,
	}
}

type apiBookingList struct {
	Data []apiBooking `json:"data"`
}

type apiBooking struct {
	UID       string        `json:"uid"`
	Title     string        `json:"title"`
	Status    string        `json:"status"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Attendees []apiAttendee `json:"attendees"`
}

type apiAttendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListBookings fetches one page of bookings from the provider.
func (c *Client) ListBookings(ctx context.Context, take, skip int, status string) ([]service.ExternalBooking, error) {
	if c.cfg.GetCalSyncAPIKey() == "" {
		return nil, fmt.Errorf("scheduling provider is not configured")
	}

	params := url.Values{}
	params.Set("take", strconv.Itoa(take))
	params.Set("skip", strconv.Itoa(skip))
	if status != "" {
		params.Set("status", status)
	}

	reqURL := c.cfg.GetCalSyncBaseURL() + "/v2/bookings?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.GetCalSyncAPIKey())
	req.Header.Set("cal-api-version", apiVersionHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("scheduling provider list failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("scheduling provider error: status %d", resp.StatusCode)
	}

	var list apiBookingList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	bookings := make([]service.ExternalBooking, 0, len(list.Data))
	for _, b := range list.Data {
		external := service.ExternalBooking{
			UID:       b.UID,
			Title:     b.Title,
			Status:    b.Status,
			StartTime: b.Start,
			EndTime:   b.End,
		}
		if len(b.Attendees) > 0 {
			external.AttendeeName = b.Attendees[0].Name
			external.AttendeeEmail = b.Attendees[0].Email
		}
		bookings = append(bookings, external)
	}
	return bookings, nil
}

var _ service.ExternalLister = (*Client)(nil)
