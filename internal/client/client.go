// Package client talks to the orchestration backend's HTTP surface:
// pattern catalogue, execution trigger, and human-input submission. The
// backend is an external collaborator; this client only mirrors its
// contract.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/matrixagents/patternview/pkg/types"
	"github.com/pkg/errors"
)

// Client is a thin JSON client over the backend API.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// FetchPatterns loads the pattern catalogue. Read-only configuration,
// loaded once per view.
func (c *Client) FetchPatterns(ctx context.Context) ([]types.PatternInfo, error) {
	var patterns []types.PatternInfo
	if err := c.get(ctx, "/api/patterns", &patterns); err != nil {
		return nil, errors.Wrap(err, "fetch patterns")
	}
	return patterns, nil
}

// FetchPattern loads one catalogue entry.
func (c *Client) FetchPattern(ctx context.Context, patternID string) (*types.PatternInfo, error) {
	var pattern types.PatternInfo
	if err := c.get(ctx, "/api/patterns/"+patternID, &pattern); err != nil {
		return nil, errors.Wrapf(err, "fetch pattern %s", patternID)
	}
	return &pattern, nil
}

// Execute triggers a pattern run and blocks for the synchronous result.
// The result's scope snapshot, when present, is authoritative for the
// run's final scope.
func (c *Client) Execute(ctx context.Context, req types.ExecutionRequest) (*types.ExecutionResult, error) {
	var result types.ExecutionResult
	path := fmt.Sprintf("/api/patterns/%s/execute", req.PatternID)
	if err := c.post(ctx, path, req, &result); err != nil {
		return nil, errors.Wrapf(err, "execute pattern %s", req.PatternID)
	}
	return &result, nil
}

// ProvideHumanInput delivers an operator's answer for an outstanding
// request. Fire-and-forget from the stream's perspective: it is not
// retried here, the caller decides what a failure means for local state.
func (c *Client) ProvideHumanInput(ctx context.Context, requestID, input string) error {
	body := map[string]string{"input": input}
	if err := c.post(ctx, "/api/human-input/"+requestID, body, nil); err != nil {
		return errors.Wrapf(err, "submit human input %s", requestID)
	}
	return nil
}

// PendingHumanInputs returns prompts outstanding from before the current
// view attached, keyed by request id. Used only for recovery.
func (c *Client) PendingHumanInputs(ctx context.Context) (map[string]string, error) {
	pending := make(map[string]string)
	if err := c.get(ctx, "/api/human-input/pending", &pending); err != nil {
		return nil, errors.Wrap(err, "fetch pending human inputs")
	}
	return pending, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("backend returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode backend response")
	}
	return nil
}
