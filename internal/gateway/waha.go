package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"deadline-buddy/internal/domain"
)

const (
	statusWorking = "WORKING"
	statusStopped = "STOPPED"
)

// WAHAConfig configures the WhatsApp HTTP API client.
type WAHAConfig struct {
	BaseURL    string
	Token      string
	Session    string
	WebhookURL string
	RatePerSec int
	Timeout    time.Duration
}

// APIError is a non-2xx answer from WAHA.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("waha api error %d: %s", e.Status, e.Body)
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Session tracks whether the WAHA session has been prepared. It is
// initialized lazily on first send and can be reset to force a new setup.
type Session struct {
	mu     sync.Mutex
	ready  bool
	status string
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
}

// WAHAClient sends messages through a WAHA server.
type WAHAClient struct {
	cfg     WAHAConfig
	http    *fasthttp.Client
	limiter *rate.Limiter
	session *Session
	log     *zap.Logger
}

func NewWAHAClient(cfg WAHAConfig, client *fasthttp.Client, log *zap.Logger) *WAHAClient {
	if client == nil {
		client = &fasthttp.Client{Name: "deadline-buddy"}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WAHAClient{
		cfg:     cfg,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		session: &Session{},
		log:     log,
	}
}

// Session exposes the connection state.
func (c *WAHAClient) Session() *Session {
	return c.session
}

type sessionInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type webhookConfig struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type sessionConfig struct {
	Webhooks []webhookConfig `json:"webhooks,omitempty"`
}

type sessionRequest struct {
	Name   string        `json:"name"`
	Config sessionConfig `json:"config"`
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

// Initialize checks WAHA health, makes sure the session runs and registers
// the webhook. Calling it on a ready session is a no-op.
func (c *WAHAClient) Initialize(ctx context.Context) error {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	if c.session.ready {
		return nil
	}

	if err := c.do(ctx, fasthttp.MethodGet, "/api/sessions", nil, nil); err != nil {
		if isStatus(err, http.StatusUnauthorized) {
			return domain.IO("waha rejected WAHA_TOKEN", err)
		}
		return domain.IO("waha unavailable", err)
	}

	status, err := c.startSession(ctx)
	if err != nil {
		return domain.IO("start waha session", err)
	}
	if err := c.registerWebhook(ctx); err != nil {
		c.log.Warn("webhook setup", zap.Error(err))
	}

	c.session.ready = true
	c.session.status = status
	c.log.Info("waha session ready", zap.String("session", c.cfg.Session), zap.String("status", status))
	return nil
}

func (c *WAHAClient) startSession(ctx context.Context) (string, error) {
	path := "/api/sessions/" + url.PathEscape(c.cfg.Session)

	var info sessionInfo
	err := c.do(ctx, fasthttp.MethodGet, path, nil, &info)
	switch {
	case err == nil:
	case isStatus(err, http.StatusNotFound):
		c.log.Info("creating waha session", zap.String("session", c.cfg.Session))
		var created sessionInfo
		if err := c.do(ctx, fasthttp.MethodPost, "/api/sessions", c.sessionRequest(), &created); err != nil {
			return "", err
		}
		return created.Status, nil
	default:
		return "", err
	}

	switch info.Status {
	case statusStopped:
		var started sessionInfo
		if err := c.do(ctx, fasthttp.MethodPost, path+"/start", nil, &started); err != nil {
			return "", err
		}
		return started.Status, nil
	case statusWorking:
		return info.Status, nil
	default:
		// STARTING, SCAN_QR_CODE and FAILED are left to WAHA.
		c.log.Warn("waha session not working yet", zap.String("status", info.Status))
		return info.Status, nil
	}
}

func (c *WAHAClient) registerWebhook(ctx context.Context) error {
	if c.cfg.WebhookURL == "" {
		return nil
	}
	path := "/api/sessions/" + url.PathEscape(c.cfg.Session)
	return c.do(ctx, fasthttp.MethodPut, path, c.sessionRequest(), nil)
}

func (c *WAHAClient) sessionRequest() sessionRequest {
	req := sessionRequest{Name: c.cfg.Session}
	if c.cfg.WebhookURL != "" {
		req.Config.Webhooks = []webhookConfig{{URL: c.cfg.WebhookURL, Events: []string{"message"}}}
	}
	return req
}

// Send posts text to chatID, preparing the session first if needed.
func (c *WAHAClient) Send(ctx context.Context, chatID, text string) error {
	if !c.session.Ready() {
		c.log.Info("waha session not ready, initializing")
		if err := c.Initialize(ctx); err != nil {
			return err
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.IO("wait for send slot", err)
	}

	err := c.do(ctx, fasthttp.MethodPost, "/api/sendText", sendTextRequest{
		Session: c.cfg.Session,
		ChatID:  chatID,
		Text:    text,
	}, nil)
	if err != nil {
		if isStatus(err, http.StatusUnauthorized) || isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusUnprocessableEntity) {
			c.session.Reset()
		}
		return domain.IO("send message to "+chatID, err)
	}
	c.log.Debug("message sent", zap.String("chat_id", chatID), zap.Int("length", len(text)))
	return nil
}

func (c *WAHAClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	timeout, err := c.timeoutFor(ctx)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("X-Api-Key", c.cfg.Token)
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return &APIError{Status: status, Body: string(resp.Body())}
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *WAHAClient) timeoutFor(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}
