package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/barakahspend/barakah/internal/record"
)

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	// BaseURL is the backend's REST root, e.g.
	// https://project.supabase.co/rest/v1
	BaseURL string

	// APIKey is sent as the apikey header.
	APIKey string

	// Token is sent as a bearer token. Falls back to APIKey when empty.
	Token string

	// Timeout bounds each request (default: 15s).
	Timeout time.Duration

	// Client overrides the HTTP client (tests). When set, Timeout is the
	// client's concern.
	Client *http.Client
}

// HTTPAdapter speaks a PostgREST-style REST API: one route per collection,
// upsert via on_conflict on the stable key, filters as query parameters.
type HTTPAdapter struct {
	baseURL string
	apiKey  string
	token   string
	client  *http.Client
}

var _ Adapter = (*HTTPAdapter)(nil)

// NewHTTPAdapter creates an adapter for the configured backend.
func NewHTTPAdapter(cfg HTTPConfig) (*HTTPAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	token := cfg.Token
	if token == "" {
		token = cfg.APIKey
	}
	return &HTTPAdapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		token:   token,
		client:  client,
	}, nil
}

// Upsert implements Adapter. Replaying the same stable key merges into the
// existing row instead of inserting a duplicate.
func (a *HTTPAdapter) Upsert(ctx context.Context, kind record.Kind, payload []byte, stableKey string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?on_conflict=stable_key", a.baseURL, kind.Collection())

	body, err := a.do(ctx, http.MethodPost, endpoint, payload,
		"resolution=merge-duplicates,return=representation")
	if err != nil {
		return "", err
	}

	rows, err := decodeRows(body)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", &Error{Kind: FailureTransient,
			Message: fmt.Sprintf("upsert of %s %s returned no representation", kind, stableKey)}
	}
	return rows[0].ID, nil
}

// Update implements Adapter.
func (a *HTTPAdapter) Update(ctx context.Context, kind record.Kind, remoteID string, patch []byte) error {
	endpoint := fmt.Sprintf("%s/%s?id=eq.%s",
		a.baseURL, kind.Collection(), url.QueryEscape(remoteID))

	body, err := a.do(ctx, http.MethodPatch, endpoint, patch, "return=representation")
	if err != nil {
		return err
	}

	rows, err := decodeRows(body)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		// The filter matched nothing: the record was deleted out-of-band.
		return &Error{Kind: FailureNotFound,
			Message: fmt.Sprintf("%s %s not found remotely", kind, remoteID)}
	}
	return nil
}

// Delete implements Adapter.
func (a *HTTPAdapter) Delete(ctx context.Context, kind record.Kind, remoteID string) error {
	endpoint := fmt.Sprintf("%s/%s?id=eq.%s",
		a.baseURL, kind.Collection(), url.QueryEscape(remoteID))

	body, err := a.do(ctx, http.MethodDelete, endpoint, nil, "return=representation")
	if err != nil {
		return err
	}

	rows, err := decodeRows(body)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &Error{Kind: FailureNotFound,
			Message: fmt.Sprintf("%s %s not found remotely", kind, remoteID)}
	}
	return nil
}

// Pull implements Adapter.
func (a *HTTPAdapter) Pull(ctx context.Context, kind record.Kind, ownerID string, since time.Time) ([]Record, error) {
	endpoint := fmt.Sprintf("%s/%s?owner_id=eq.%s&order=updated_at.asc",
		a.baseURL, kind.Collection(), url.QueryEscape(ownerID))
	if !since.IsZero() {
		endpoint += "&updated_at=gt." + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	body, err := a.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// do runs one request and classifies the outcome.
func (a *HTTPAdapter) do(ctx context.Context, method, endpoint string, body []byte, prefer string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &Error{Kind: FailureRejected, Message: fmt.Sprintf("bad request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		// Network-level failure: unreachable, DNS, timeout.
		return nil, &Error{Kind: FailureTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &Error{Kind: FailureTransient, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if err := classifyStatus(resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

// classifyStatus maps HTTP status codes onto the failure taxonomy.
func classifyStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return &Error{Kind: FailureNotFound, StatusCode: code, Message: truncate(body)}
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return &Error{Kind: FailureTransient, StatusCode: code, Message: truncate(body)}
	case code >= 400:
		return &Error{Kind: FailureRejected, StatusCode: code, Message: truncate(body)}
	default:
		return &Error{Kind: FailureTransient, StatusCode: code, Message: truncate(body)}
	}
}

// decodeRows parses a PostgREST response body, which is always a JSON
// array of rows.
func decodeRows(body []byte) ([]Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var rows []Record
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &Error{Kind: FailureTransient,
			Message: fmt.Sprintf("malformed response: %v", err)}
	}
	return rows, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}
