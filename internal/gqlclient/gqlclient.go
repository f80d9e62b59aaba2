// Package gqlclient executes GraphQL queries and mutations against a remote
// endpoint over HTTP, using the standard JSON request envelope.
package gqlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Config holds client connection parameters.
type Config struct {
	Endpoint string
	// Headers are added to every request.
	Headers map[string]string
	// BearerToken sets a static Authorization header. Ignored when
	// TokenSource is set.
	BearerToken string
	// TokenSource supplies OAuth2 tokens per request (client credentials,
	// refresh flows). Takes precedence over BearerToken.
	TokenSource oauth2.TokenSource
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Request is one GraphQL operation.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Error is a single GraphQL error from the response envelope.
type Error struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// RequestError carries the GraphQL errors returned for an operation.
type RequestError struct {
	Errors []Error
}

func (e *RequestError) Error() string {
	if len(e.Errors) == 0 {
		return "graphql request failed"
	}
	return fmt.Sprintf("graphql request failed: %s", e.Errors[0].Message)
}

type responseEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// Client executes GraphQL operations against one endpoint.
type Client struct {
	endpoint    string
	headers     map[string]string
	bearerToken string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	logger      *slog.Logger
}

// New creates a client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("gql client requires an endpoint")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:    cfg.Endpoint,
		headers:     cfg.Headers,
		bearerToken: cfg.BearerToken,
		tokenSource: cfg.TokenSource,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Execute runs one operation and returns the response data. GraphQL-level
// errors are returned as a *RequestError; transport and decoding failures as
// plain errors.
func (c *Client) Execute(ctx context.Context, req Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	if err := c.authorize(httpReq); err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("graphql request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read graphql response: %w", err)
	}

	c.logger.Debug("graphql request completed",
		slog.String("operation", req.OperationName),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(started)),
	)

	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("graphql endpoint returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode graphql response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return envelope.Data, &RequestError{Errors: envelope.Errors}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graphql endpoint returned status %d", resp.StatusCode)
	}
	return envelope.Data, nil
}

// Query runs a query by document and variables. It satisfies the executor
// interfaces of the introspection and form packages.
func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	return c.Execute(ctx, Request{Query: query, Variables: variables})
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return fmt.Errorf("failed to obtain access token: %w", err)
		}
		token.SetAuthHeader(req)
		return nil
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	return nil
}
