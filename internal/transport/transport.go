package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yelix-cloud/yelix-sdk-go/internal/auth"
	"github.com/yelix-cloud/yelix-sdk-go/internal/machine"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultTokenTTL  = 2 * time.Minute
	maxErrorBodySize = 4096

	instancesPath = "/v1/instances"
	eventIDHeader = "X-Yelix-Event-ID"
)

// ErrUnauthorized indicates the collector rejected the request token.
var ErrUnauthorized = errors.New("collector unauthorized")

// ErrInvalidResponse indicates the collector returned a malformed payload.
var ErrInvalidResponse = errors.New("collector invalid response")

// ErrInvalidArgument indicates the collector rejected the payload with validation errors.
var ErrInvalidArgument = errors.New("collector invalid argument")

// Registration carries the one-time instance creation payload.
type Registration struct {
	Environment string
	Schema      map[string]any
}

// Event is the wire form of one observed request.
type Event struct {
	EventID    string
	Method     string
	Path       string
	DurationMS float64
	StartTime  int64
}

// Collector speaks HTTP to the Yelix collector. All failures are reported as
// errors; nothing escapes as a panic.
type Collector struct {
	baseURL  string
	apiKey   string
	tokenTTL time.Duration
	client   *http.Client
	logger   *slog.Logger
	identity func() machine.Identity
}

// NewCollector builds a Collector for the given base URL and account API key.
func NewCollector(baseURL, apiKey string, tokenTTL time.Duration, client *http.Client, logger *slog.Logger) (*Collector, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("collector base url required")
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("collector api key required")
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	} else if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	if logger != nil {
		logger = logger.With("component", "transport")
	}
	return &Collector{
		baseURL:  trimmed,
		apiKey:   strings.TrimSpace(apiKey),
		tokenTTL: tokenTTL,
		client:   client,
		logger:   logger,
		identity: machine.Current,
	}, nil
}

// RegisterInstance performs the one-time instance creation call and returns
// the opaque instance identifier issued by the collector.
func (c *Collector) RegisterInstance(ctx context.Context, reg Registration) (string, error) {
	id := c.identity()
	payload := map[string]any{
		"environment": strings.TrimSpace(reg.Environment),
		"schema":      reg.Schema,
		"machine":     machinePayload(id),
	}
	resp, err := c.post(ctx, instancesPath, "", payload, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", c.errorForStatus(resp)
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode instance: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(body.ID) == "" {
		return "", fmt.Errorf("%w: empty instance id", ErrInvalidResponse)
	}
	return body.ID, nil
}

// Deliver posts one event for the given instance. The request is built and
// issued in call order; the returned channel receives the final outcome once
// the round-trip completes. The channel is buffered, so the result is never
// lost if the caller reads late.
func (c *Collector) Deliver(ctx context.Context, instanceID string, ev Event) <-chan error {
	done := make(chan error, 1)
	if strings.TrimSpace(instanceID) == "" {
		done <- fmt.Errorf("%w: instance id required", ErrInvalidArgument)
		return done
	}
	id := c.identity()
	payload := map[string]any{
		"method":      strings.TrimSpace(ev.Method),
		"path":        strings.TrimSpace(ev.Path),
		"duration_ms": ev.DurationMS,
		"start_time":  ev.StartTime,
		"machine":     machinePayload(id),
	}
	header := http.Header{}
	if ev.EventID != "" {
		header.Set(eventIDHeader, ev.EventID)
	}
	path := instancesPath + "/" + instanceID + "/events"

	go func() {
		resp, err := c.post(ctx, path, instanceID, payload, header)
		if err != nil {
			done <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			done <- c.errorForStatus(resp)
			return
		}
		done <- nil
	}()
	return done
}

func (c *Collector) post(ctx context.Context, path, instanceID string, payload any, header http.Header) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal collector payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build collector request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	token, err := auth.Mint(c.apiKey, instanceID, "", c.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint request token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("collector request failed", "path", path, "error", err)
		}
		return nil, fmt.Errorf("send collector request: %w", err)
	}
	return resp, nil
}

func (c *Collector) errorForStatus(resp *http.Response) error {
	limited := io.LimitReader(resp.Body, maxErrorBodySize)
	buf, _ := io.ReadAll(limited)
	summary := strings.TrimSpace(string(buf))
	if summary == "" {
		summary = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, summary)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, summary)
	default:
		return fmt.Errorf("collector request failed: %s", summary)
	}
}

func machinePayload(id machine.Identity) map[string]string {
	return map[string]string{
		"hostname": id.Hostname,
		"ip":       id.IP,
		"os":       id.OS,
		"runtime":  id.Runtime,
	}
}
