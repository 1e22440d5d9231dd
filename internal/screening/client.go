// Package screening checks new members against the AML watchlist provider.
//
// Screening is advisory: member creation records the outcome but never
// blocks on it. A provider outage yields the "unchecked" status so the
// check can be repeated out of band, and without an API key the client runs
// in mock mode and clears everyone, matching the development setup.
package screening

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"memberd/internal/member/models"
	"memberd/pkg/requestcontext"
)

// Subject is the identity handed to the provider.
type Subject struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DateOfBirth    string `json:"date_of_birth"`
	DocumentNumber string `json:"document_number"`
}

// NewSubject formats a member's identity for the provider API.
func NewSubject(firstName, lastName string, dob time.Time, documentNumber string) Subject {
	return Subject{
		FirstName:      firstName,
		LastName:       lastName,
		DateOfBirth:    dob.Format("2006-01-02"),
		DocumentNumber: documentNumber,
	}
}

type searchResponse struct {
	Matched bool   `json:"matched"`
	Error   string `json:"error,omitempty"`
}

type Client struct {
	http   *resty.Client
	apiKey string
	logger *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}
	return &Client{http: httpClient, apiKey: apiKey, logger: logger}
}

// Screen runs the watchlist check and maps every failure mode to a status
// instead of an error, so callers cannot accidentally fail creation on it.
func (c *Client) Screen(ctx context.Context, subject Subject) models.AMLStatus {
	if c.apiKey == "" {
		c.logger.DebugContext(ctx, "screening in mock mode, clearing subject",
			"request_id", requestcontext.RequestID(ctx))
		return models.AMLClear
	}

	var result searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(subject).
		SetResult(&result).
		Post("/aml/search")
	if err != nil {
		c.logger.WarnContext(ctx, "screening provider unreachable",
			"error", err,
			"request_id", requestcontext.RequestID(ctx))
		return models.AMLUnchecked
	}
	if resp.IsError() {
		c.logger.WarnContext(ctx, "screening provider returned error",
			"status", resp.StatusCode(),
			"request_id", requestcontext.RequestID(ctx))
		return models.AMLError
	}
	if result.Matched {
		return models.AMLMatch
	}
	return models.AMLClear
}
