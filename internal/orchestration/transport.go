package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 4 << 10

// transport is the HTTP plumbing shared by the backend clients: every call
// is traced, guarded by the service's circuit breaker and classified.
type transport struct {
	service    string
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

func newTransport(service, baseURL string, timeout time.Duration) *transport {
	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var up *models.UpstreamError
			if errors.As(err, &up) {
				return up.StatusCode < http.StatusInternalServerError
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf(`{"level":"warn","message":"Circuit breaker state change","breaker":"%s","from":"%s","to":"%s"}`, name, from, to)
		},
	}

	return &transport{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer:  otel.Tracer(service + "-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// baseURLFromEnv reads the service URL, falling back to fallback with a warning.
func baseURLFromEnv(envVar, fallback string) string {
	baseURL := os.Getenv(envVar)
	if baseURL == "" {
		baseURL = fallback
		log.Printf("WARN: %s not set, defaulting to %s", envVar, baseURL)
	}
	return baseURL
}

// call runs fn inside a span and the circuit breaker.
func (t *transport) call(ctx context.Context, spanName string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := t.tracer.Start(ctx, t.service+"."+spanName)
	defer span.End()
	span.SetAttributes(attrs...)

	_, err := t.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (t *transport) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// doJSON sends in (when non-nil) as JSON and decodes a 2xx response into out.
func (t *transport) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := t.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return t.send(req, out)
}

// doMultipart uploads content as the "file" form field.
func (t *transport) doMultipart(ctx context.Context, path, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := t.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return t.send(req, out)
}

func (t *transport) send(req *http.Request, out any) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return t.upstreamError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// stream copies a 2xx response body into w.
func (t *transport) stream(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := t.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, t.upstreamError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to copy response body: %w", err)
	}
	return n, nil
}

// healthy performs a short GET against url and reports a 200.
func (t *transport) healthy(ctx context.Context, url string) bool {
	ctx, span := t.tracer.Start(ctx, t.service+".health_check")
	defer span.End()

	if t.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))
	return healthy
}

// upstreamError reads the server's error message. The analysis server
// answers {"error": ...}; the drafting server answers {"detail": ...}.
func (t *transport) upstreamError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", t.service, resp.StatusCode, err)
	}

	upErr := &models.UpstreamError{
		Service:    t.service,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
	}

	var payload struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Error != "":
			upErr.Message = payload.Error
		case len(payload.Detail) > 0:
			var detail string
			if json.Unmarshal(payload.Detail, &detail) == nil {
				upErr.Message = detail
			}
		}
	}
	return upErr
}
