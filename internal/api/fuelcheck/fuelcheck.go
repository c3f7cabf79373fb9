// Package fuelcheck provides an API client for the FuelCheck fuel price service.
package fuelcheck

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/andygrunwald/fuel-price-ingester/internal/config"
)

const (
	// SourceName is the identifier for this source.
	SourceName = "fuelcheck"

	// requestTimestampLayout renders e.g. "07/12/2025 03:04:05 PM".
	requestTimestampLayout = "02/01/2006 03:04:05 PM"

	authTimeout   = 30 * time.Second
	pricesTimeout = 60 * time.Second
)

// Client implements the api.Source interface for FuelCheck.
type Client struct {
	authClient   *http.Client
	pricesClient *http.Client
	logger       zerolog.Logger
	now          func() time.Time
}

// New creates a new FuelCheck client.
func New(logger zerolog.Logger) *Client {
	return &Client{
		authClient: &http.Client{
			Timeout: authTimeout,
		},
		pricesClient: &http.Client{
			Timeout: pricesTimeout,
		},
		logger: logger.With().Str("source", SourceName).Logger(),
		now:    time.Now,
	}
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return SourceName
}

// BasicAuthHeader returns the Authorization header value for the client credentials exchange.
func BasicAuthHeader(apiKey, apiSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":"+apiSecret))
}

// FetchToken runs the OAuth2 client credentials exchange and returns the access token.
func (c *Client) FetchToken(ctx context.Context, cfg config.FuelAPIConfig) (*oauth2.Token, error) {
	u, err := buildURL(cfg.BaseURL, cfg.AuthPath, url.Values{"grant_type": {"client_credentials"}})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("url", u).
		Msg("requesting access token")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", BasicAuthHeader(cfg.APIKey, cfg.APISecret))
	req.Header.Set("Accept", "application/json")

	body, err := c.do(c.authClient, req, u)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	accessToken := strings.Trim(strings.TrimSpace(tokenValue(body, parsed)), `"`)
	if accessToken == "" {
		return nil, ErrEmptyToken
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	if expiresIn := parsed.Get("expires_in").Int(); parsed.IsObject() && expiresIn > 0 {
		token.Expiry = c.now().Add(time.Duration(expiresIn) * time.Second)
	}

	c.logger.Debug().
		Time("expiry", token.Expiry).
		Msg("received access token")

	return token, nil
}

// tokenValue picks the token out of an auth response body.
// Bodies that are not JSON are the token itself. Valid JSON yields a token
// only as a top-level string or a string access_token/accessToken field.
func tokenValue(body []byte, parsed gjson.Result) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}

	switch {
	case parsed.Type == gjson.String:
		return parsed.Str
	case parsed.IsObject():
		for _, field := range []string{"access_token", "accessToken"} {
			if v := parsed.Get(field); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
				return v.Str
			}
		}
	}
	return ""
}

// FetchNewPrices fetches the prices that changed since the last call and returns the body unmodified.
func (c *Client) FetchNewPrices(ctx context.Context, token *oauth2.Token, cfg config.FuelAPIConfig) ([]byte, error) {
	states := cfg.States
	if states == "" {
		states = config.DefaultStates
	}

	u, err := buildURL(cfg.BaseURL, cfg.NewPricesPath, url.Values{"states": {states}})
	if err != nil {
		return nil, err
	}

	transactionID := uuid.NewString()

	c.logger.Debug().
		Str("url", u).
		Str("transactionId", transactionID).
		Msg("fetching new prices")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", cfg.APIKey)
	req.Header.Set("transactionid", transactionID)
	req.Header.Set("requesttimestamp", c.now().UTC().Format(requestTimestampLayout))

	body, err := c.do(c.pricesClient, req, u)
	if err != nil {
		return nil, err
	}

	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &DecodeError{Err: err}
	}

	c.logger.Info().
		Int("bytes", len(body)).
		Str("transactionId", transactionID).
		Msg("fetched new prices")

	return body, nil
}

// do executes the request and returns the body of a 2xx response.
func (c *Client) do(client *http.Client, req *http.Request, u string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			URL:        u,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}

// buildURL joins base URL and path and appends the query parameters.
func buildURL(baseURL, path string, query url.Values) (string, error) {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", baseURL+path, err)
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
