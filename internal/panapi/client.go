package panapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/isoshare/internal/clock"
	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/config"
	"github.com/dmitrijs2005/isoshare/internal/credential"
	"github.com/dmitrijs2005/isoshare/internal/logging"
)

// API paths relative to the configured base URL.
const (
	PathAccessToken       = "/api/v1/access_token"
	PathFileList          = "/api/v2/file/list"
	PathMkdir             = "/upload/v1/file/mkdir"
	PathCreateUpload      = "/upload/v1/file/create"
	PathGetUploadURL      = "/upload/v1/file/get_upload_url"
	PathUploadComplete    = "/upload/v1/file/upload_complete"
	PathUploadAsyncResult = "/upload/v1/file/upload_async_result"
	PathShareCreate       = "/api/v1/share/create"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the open API on behalf of one access key. It owns the
// bearer token and is safe for concurrent use.
type Client struct {
	baseURL      string
	http         *http.Client
	apiTimeout   time.Duration
	sliceTimeout time.Duration
	retry        RetryPolicy
	refreshSkew  time.Duration

	log    logging.Logger
	clock  clock.Clock
	signer *credential.Signer

	accessKey string
	secret    credential.Secret

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an httptest client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithClock(cl clock.Clock) Option {
	return func(c *Client) { c.clock = cl }
}

// New builds a Client for accessKey/secret using the endpoints, timeouts and
// retry policy in cfg. No network call is made until the first request.
func New(cfg *config.Config, accessKey string, secret credential.Secret, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		http:         &http.Client{},
		apiTimeout:   cfg.APITimeout,
		sliceTimeout: cfg.SliceTimeout,
		retry: RetryPolicy{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: cfg.RetryBaseDelay,
			MaxDelay:  cfg.RetryMaxDelay,
		},
		refreshSkew: cfg.TokenRefreshSkew,
		log:         logging.Discard(),
		clock:       clock.Real(),
		accessKey:   accessKey,
		secret:      secret,
	}
	for _, o := range opts {
		o(c)
	}
	c.signer = credential.NewSigner(c.clock)
	return c
}

// Token returns the current bearer token, or "" before the first exchange.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type accessTokenRequest struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Timestamp int64  `json:"timestamp"`
	Nonce     int64  `json:"nonce"`
	Signature string `json:"signature"`
}

type accessTokenData struct {
	AccessToken string `json:"access_token"`
}

// ExchangeToken trades the signed credentials for a bearer token. It is
// attempted once; any failure is common.ErrAuth.
func (c *Client) ExchangeToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchangeLocked(ctx)
}

func (c *Client) exchangeLocked(ctx context.Context) error {
	p := c.signer.Sign(c.accessKey, c.secret)
	req := accessTokenRequest{
		AccessKey: p.AccessKey,
		SecretKey: c.secret.Reveal(),
		Timestamp: p.Timestamp,
		Nonce:     p.Nonce,
		Signature: p.Signature,
	}

	var data accessTokenData
	if err := c.send(ctx, "access token", http.MethodPost, PathAccessToken, nil, req, "", &data); err != nil {
		return fmt.Errorf("%w: token exchange: %w", common.ErrAuth, err)
	}
	if data.AccessToken == "" {
		return fmt.Errorf("%w: token exchange returned no access token", common.ErrAuth)
	}

	c.token = data.AccessToken
	c.expiry, _ = credential.TokenExpiry(data.AccessToken)
	c.log.Info(ctx, "access token obtained", "token", credential.Redact(c.token))
	return nil
}

// currentToken returns a usable token, exchanging when there is none or the
// known expiry is within the refresh skew.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := !c.expiry.IsZero() && !c.clock.Now().Add(c.refreshSkew).Before(c.expiry)
	if c.token == "" || stale {
		if stale {
			c.log.Debug(ctx, "access token about to expire, refreshing", "token", credential.Redact(c.token))
		}
		if err := c.exchangeLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// refresh replaces rejected unless another caller already did.
func (c *Client) refresh(ctx context.Context, rejected string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != rejected && c.token != "" {
		return c.token, nil
	}
	c.log.Warn(ctx, "access token rejected, exchanging again", "token", credential.Redact(rejected))
	if err := c.exchangeLocked(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

// call performs an authorized request with retry and a single
// re-authentication on rejection.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	token, err := c.currentToken(ctx)
	if err != nil {
		return err
	}

	attempt := func(token string) error {
		return c.retry.Do(ctx, c.log, op, func(ctx context.Context) error {
			return c.send(ctx, op, method, path, query, body, token, out)
		})
	}

	err = attempt(token)
	if err == nil || !IsUnauthorized(err) {
		return err
	}

	token, err = c.refresh(ctx, token)
	if err != nil {
		return err
	}
	if err := attempt(token); err != nil {
		if IsUnauthorized(err) {
			return fmt.Errorf("%w: %s rejected after token refresh: %w", common.ErrAuth, op, err)
		}
		return err
	}
	return nil
}

// send performs exactly one HTTP round trip and decodes the envelope into out.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body any, token string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.apiTimeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set(common.PlatformHeaderName, common.PlatformHeaderValue)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, HTTPStatus: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: decode envelope: %w", op, err)
	}
	if env.Code != 0 {
		return &APIError{Op: op, HTTPStatus: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", op, err)
		}
	}
	return nil
}
