// Package submit posts signed transactions to a ledger node's HTTP API.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ledgertx.io/ledgertx/canonical"
	"ledgertx.io/ledgertx/tx"
)

// Mode is the node's commit mode for a submission.
type Mode string

const (
	ModeAsync  Mode = "async"
	ModeSync   Mode = "sync"
	ModeCommit Mode = "commit"
)

// ParseMode accepts async, sync or commit. The empty string is ModeAsync.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeAsync, nil
	case ModeAsync, ModeSync, ModeCommit:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("submit: unknown mode %q", s)
	}
}

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Result describes how the node answered. A rejection is a Result, not an
// error.
type Result struct {
	Status     Status
	HTTPStatus int
	RequestID  string
	// Message is the node's "message" field, when it sent one.
	Message string
	Body    []byte
}

type Submitter interface {
	Submit(ctx context.Context, signed tx.Transaction, mode Mode) (Result, error)
}

var (
	ErrUnsigned         = errors.New("submit: transaction has no id")
	ErrUnexpectedStatus = errors.New("submit: unexpected HTTP status")
)

const (
	DefaultTimeout = 30 * time.Second
	maxResponse    = 1 << 20
)

type ClientConfig struct {
	// BaseURL is the node API root, e.g. http://localhost:9984/api/v1.
	BaseURL string
	// RequestsPerSecond limits submissions. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

type Client struct {
	endpoint *url.URL
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

var _ Submitter = (*Client)(nil)

func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", base.Scheme)
	}
	endpoint := base.JoinPath("transactions")
	if !strings.HasPrefix(endpoint.Path, "/") {
		endpoint.Path = "/" + endpoint.Path
	}

	limit := rate.Inf
	burst := config.Burst
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}
	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		http:     hc,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}, nil
}

// Submit posts the canonical serialization of signed.
func (c *Client) Submit(ctx context.Context, signed tx.Transaction, mode Mode) (Result, error) {
	if signed.ID == nil {
		return Result{}, ErrUnsigned
	}
	if mode == "" {
		mode = ModeAsync
	}
	body, err := canonical.Marshal(signed)
	if err != nil {
		return Result{}, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("submit: rate limit: %w", err)
	}

	u := *c.endpoint
	u.RawQuery = url.Values{"mode": []string{string(mode)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	c.logger.Sugar().Debugw("Submitting transaction",
		"id", *signed.ID,
		"mode", mode,
		"request_id", requestID,
	)
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("submit: post %s: %w", u.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return Result{}, fmt.Errorf("submit: read response: %w", err)
	}

	res := Result{
		HTTPStatus: resp.StatusCode,
		RequestID:  requestID,
		Message:    messageOf(respBody),
		Body:       respBody,
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		res.Status = StatusAccepted
		c.logger.Sugar().Infow("Transaction accepted", "id", *signed.ID, "status_code", resp.StatusCode)
	case http.StatusBadRequest:
		res.Status = StatusRejected
		c.logger.Sugar().Warnw("Transaction rejected",
			"id", *signed.ID,
			"request_id", requestID,
			"message", res.Message,
		)
	default:
		return res, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return res, nil
}

func messageOf(body []byte) string {
	var v struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	return v.Message
}
