package main

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

	"vividly/internal/api"
)

// apiClient is a thin HTTP client for the daemon API.
type apiClient struct {
	base   string
	token  string
	client *http.Client
}

func newAPIClient(addr, token string) *apiClient {
	base := strings.TrimSpace(addr)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &apiClient{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) submit(ctx context.Context, payload api.SubmitRequest) (api.SubmitResponse, error) {
	var response api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/requests", nil, payload, &response)
	return response, err
}

func (c *apiClient) describe(ctx context.Context, id string) (api.RequestView, error) {
	var response api.RequestResponse
	err := c.do(ctx, http.MethodGet, "/api/requests/"+url.PathEscape(id), nil, nil, &response)
	return response.Request, err
}

func (c *apiClient) list(ctx context.Context, statuses []string) ([]api.RequestView, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", status)
	}
	var response api.RequestListResponse
	err := c.do(ctx, http.MethodGet, "/api/queue", query, nil, &response)
	return response.Requests, err
}

func (c *apiClient) retryFailed(ctx context.Context, ids []string) (api.RetryResponse, error) {
	var response api.RetryResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/retry", nil, map[string]any{"ids": ids}, &response)
	return response, err
}

func (c *apiClient) clearCompleted(ctx context.Context) (api.ClearResponse, error) {
	var response api.ClearResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/clear", nil, nil, &response)
	return response, err
}

func (c *apiClient) status(ctx context.Context) (api.StatusResponse, error) {
	var response api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &response)
	return response, err
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, payload, result any) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(io.LimitReader(response.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if response.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", response.Status)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
