package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"notification-bridge/pkg/models"
)

// gatewayClient talks to the gateway's HTTP API
type gatewayClient struct {
	baseURL string
	http    *http.Client
}

func newGatewayClient(opts *RootOptions) *gatewayClient {
	return &gatewayClient{
		baseURL: strings.TrimRight(opts.Gateway, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
	}
}

// postJSON sends body and decodes the APIResponse envelope
func (c *gatewayClient) postJSON(ctx context.Context, path string, body interface{}) (*models.APIResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req)
}

func (c *gatewayClient) getJSON(ctx context.Context, path string) (*models.APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.doJSON(req)
}

func (c *gatewayClient) doJSON(req *http.Request) (*models.APIResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &envelope, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, envelope.Error)
	}
	return &envelope, nil
}

// getText fetches a plain-text export
func (c *gatewayClient) getText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var envelope models.APIResponse
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, envelope.Error)
		}
		return "", fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return string(data), nil
}

// printResponse writes the envelope's data in the selected format
func printResponse(w io.Writer, format string, envelope *models.APIResponse) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(envelope)
	}

	fmt.Fprintln(w, envelope.Message)
	fields, ok := envelope.Data.(map[string]interface{})
	if !ok {
		return nil
	}
	for _, key := range sortedKeys(fields) {
		fmt.Fprintf(w, "  %s: %v\n", key, fields[key])
	}
	return nil
}
