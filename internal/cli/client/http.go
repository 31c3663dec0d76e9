package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/api/handlers"
	"github.com/cloo-solutions/taskpilot/internal/api/middleware"
	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// APIClient talks to a running taskpilotd over HTTP on behalf of one user.
type APIClient struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
}

// NewAPIClient creates an APIClient. token may be empty when the daemon runs
// without TASKPILOT_API_TOKEN.
func NewAPIClient(baseURL, token, userID string) (*APIClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Context assembles the context for prompt on the server.
func (c *APIClient) Context(ctx context.Context, prompt string) (*handlers.ContextResponse, error) {
	var out handlers.ContextResponse
	if err := c.do(ctx, http.MethodPost, "/assistant/context", handlers.ContextRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask asks the server for a generated answer.
func (c *APIClient) Ask(ctx context.Context, prompt string, history []domain.ChatMessage) (*handlers.AskResponse, error) {
	var out handlers.AskResponse
	if err := c.do(ctx, http.MethodPost, "/assistant/ask", handlers.AskRequest{Prompt: prompt, History: history}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chain fetches the dependency chain of a work item. maxDepth <= 0 uses the
// server default.
func (c *APIClient) Chain(ctx context.Context, itemID string, maxDepth int) (*handlers.ChainResponse, error) {
	path := "/work-items/" + url.PathEscape(itemID) + "/chain"
	if maxDepth > 0 {
		path += "?max_depth=" + strconv.Itoa(maxDepth)
	}
	var out handlers.ChainResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(middleware.UserHeader, c.userID)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiResp.Error,
		}
	}

	if out == nil || len(apiResp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(apiResp.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
