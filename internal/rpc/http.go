package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPConfig configures the PostgREST transport.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPCaller calls procedures through PostgREST: POST /rest/v1/rpc/{fn}.
type HTTPCaller struct {
	http   *resty.Client
	logger *zap.Logger
}

var _ Caller = (*HTTPCaller)(nil)

// NewHTTPCaller builds a PostgREST client. Retries are disabled: a failed
// call surfaces to the operator, who decides whether to press again.
func NewHTTPCaller(cfg HTTPConfig, logger *zap.Logger) *HTTPCaller {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey)
		client.SetAuthScheme("Bearer")
		client.SetAuthToken(cfg.APIKey)
	}

	return &HTTPCaller{
		http:   client,
		logger: logger.Named("rpc.http"),
	}
}

// Call implements Caller.
func (c *HTTPCaller) Call(ctx context.Context, fn string, args Args) (json.RawMessage, error) {
	if args == nil {
		args = Args{}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(args).
		Post("/rest/v1/rpc/" + fn)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", fn)
	}

	if resp.IsError() {
		rpcErr := decodeHTTPError(resp.Body(), resp.Status())
		c.logger.Debug("Procedure failed",
			zap.String("fn", fn),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", rpcErr.Message),
		)
		return nil, rpcErr
	}

	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// decodeHTTPError reads a PostgREST error body. Bodies that are not the
// usual {code, message} object are passed through as the message.
func decodeHTTPError(body []byte, status string) *Error {
	var e Error
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return &e
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = status
	}
	return &Error{Message: msg}
}
