package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/capitalize-ai/formbot/internal/model"
	"github.com/capitalize-ai/formbot/pkg/logger"
	"github.com/capitalize-ai/formbot/pkg/metrics"
)

// Config holds Chatwoot API settings.
type Config struct {
	BaseURL      string
	AccountID    string
	AccessToken  string
	Timeout      time.Duration
	RateLimit    float64 // requests per second, <= 0 disables limiting
	MenuEncoding string
}

// APIError is a non-2xx response from the message API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatwoot API %d: %s", e.StatusCode, e.Body)
}

// Client posts messages to one Chatwoot account.
type Client struct {
	base     string
	account  string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
	renderer *Renderer
	logger   *logger.Logger
}

// NewClient creates a new Chatwoot client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}

	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		account: cfg.AccountID,
		token:   cfg.AccessToken,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  limiter,
		renderer: NewRenderer(cfg.MenuEncoding),
		logger:   log,
	}
}

// Deliver renders msg and posts it. When the remote rejects a rendering and
// another encoding exists for the message kind, the next encoding is tried.
// Attempts are strictly sequential.
func (c *Client) Deliver(ctx context.Context, msg model.OutboundMessage) error {
	attempts := c.renderer.Attempts(msg.Kind)
	if attempts == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, msg.Kind)
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		payload, err := c.renderer.Encode(msg, attempt)
		if err != nil {
			return err
		}

		err = c.Post(ctx, msg.ConversationID, payload)
		if err == nil {
			metrics.RecordOutbound(payload.ContentType, "sent")
			return nil
		}
		metrics.RecordOutbound(payload.ContentType, "failed")
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || attempt+1 == attempts {
			break
		}
		metrics.MenuFallbacksTotal.Inc()
		c.logger.Warn("message rejected, retrying with alternate encoding",
			zap.String("conversation_id", msg.ConversationID),
			zap.String("content_type", payload.ContentType),
			zap.Int("status", apiErr.StatusCode),
		)
	}
	return lastErr
}

// Post sends one already-encoded payload.
func (c *Client) Post(ctx context.Context, conversationID string, payload Payload) error {
	if conversationID == "" {
		return errors.New("conversation id is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(conversationID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("message sent",
		zap.String("conversation_id", conversationID),
		zap.String("content_type", payload.ContentType),
	)
	return nil
}

func (c *Client) messagesURL(conversationID string) string {
	return fmt.Sprintf("%s/api/v1/accounts/%s/conversations/%s/messages",
		c.base, url.PathEscape(c.account), url.PathEscape(conversationID))
}
