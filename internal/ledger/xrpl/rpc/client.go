package rpc

//go:generate mockgen -source=client.go -destination=mocks/mock_rpc_client.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RPCClient abstracts the XRPL JSON-RPC methods the adapter uses, for testing.
type RPCClient interface {
	AccountNFTs(ctx context.Context, account string, marker json.RawMessage) (*AccountNFTsResult, error)
	NFTsByIssuer(ctx context.Context, issuer string, marker json.RawMessage) (*NFTsByIssuerResult, error)
}

const DefaultTimeout = 30 * time.Second

type Client struct {
	httpClient *http.Client
	rpcURL     string
	logger     *slog.Logger
}

func NewClient(rpcURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		rpcURL: rpcURL,
		logger: logger,
	}
}

// URL returns the endpoint this client talks to.
func (c *Client) URL() string {
	return c.rpcURL
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	req := Request{
		Method: method,
		Params: []map[string]any{params},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("xrpl rpc call", "method", method, "url", c.rpcURL)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(rpcResp.Result) == 0 {
		return nil, fmt.Errorf("response has no result")
	}

	var status resultStatus
	if err := json.Unmarshal(rpcResp.Result, &status); err != nil {
		return nil, fmt.Errorf("unmarshal result status: %w", err)
	}
	if status.Status == "error" || status.Error != "" {
		return nil, &RPCError{Code: status.Error, Number: status.ErrorCode, Message: status.ErrorMessage}
	}

	return rpcResp.Result, nil
}
