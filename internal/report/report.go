// Package report sends board test reports to the collector's JSON-RPC
// endpoint.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/buckleypaul/jig/internal/pipeline"
)

const (
	rpcMethod      = "insert_test_report"
	defaultTimeout = time.Minute
)

// Report is the insert_test_report parameter object.
type Report struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	Tester    string                `json:"tester"`
	Values    []pipeline.StepRecord `json:"values"`
	StartedAt time.Time             `json:"startedAt"`
	EndedAt   time.Time             `json:"endedAt"`
}

// FromBoard builds the report for b.
func FromBoard(b *pipeline.Board, reportType, tester string) Report {
	values := b.Steps
	if values == nil {
		values = []pipeline.StepRecord{}
	}
	return Report{
		ID:        b.Identity(),
		Type:      reportType,
		Tester:    tester,
		Values:    values,
		StartedAt: b.StartedAt,
		EndedAt:   b.EndedAt,
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params Report `json:"params"`
}

// StatusError is returned for a non-2xx collector response.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector responded with status %d", e.Status)
}

// IsSuccess reports whether status is a 2xx response.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Client posts reports to the collector.
type Client struct {
	url        string
	auth       string
	httpClient *http.Client
}

// NewClient creates a Client for the endpoint at url. auth is sent verbatim
// in the Authorization header.
func NewClient(url, auth string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{url: url, auth: auth, httpClient: httpClient}
}

// Upload sends r and returns the response status. Only transport failures
// are errors; the caller decides what a status means.
func (c *Client) Upload(ctx context.Context, r Report) (int, error) {
	body, err := json.Marshal(rpcRequest{Method: rpcMethod, Params: r})
	if err != nil {
		return 0, errors.Wrap(err, "marshal test report")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "build report request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "post test report")
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if !IsSuccess(resp.StatusCode) {
		log.Warn().
			Str("board_id", r.ID).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("collector rejected test report")
	} else {
		log.Debug().Str("board_id", r.ID).Int("status", resp.StatusCode).Msg("test report accepted")
	}
	return resp.StatusCode, nil
}
