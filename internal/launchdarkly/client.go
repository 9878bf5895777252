// Package launchdarkly fetches feature flag definitions from the
// LaunchDarkly REST API.
package launchdarkly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/logging"
)

const (
	// DefaultBaseURL is the LaunchDarkly SaaS endpoint.
	DefaultBaseURL = "https://app.launchdarkly.com"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the number of flags requested per page.
	DefaultPageSize = 100

	flagsPathPrefix = "/api/v2/flags/"
	maxPages        = 1000
	maxErrorBody    = 4096
)

// ErrMissingToken is returned when no API token is configured.
var ErrMissingToken = errors.New("LaunchDarkly API key is not set (use LD_API_KEY or api_key in config)")

// APIError describes a failed API call.
type APIError struct {
	// StatusCode is zero for transport failures.
	StatusCode int
	Kind       engine.SourceErrorKind
	Message    string
	URL        string
	Err        error
}

// Error implements error.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("launchdarkly: ")
	b.WriteString(e.Message)
	if e.StatusCode != 0 {
		b.WriteString(" (HTTP ")
		b.WriteString(strconv.Itoa(e.StatusCode))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the transport error, if any.
func (e *APIError) Unwrap() error { return e.Err }

// SourceKind classifies the failure for the flag gateway.
func (e *APIError) SourceKind() engine.SourceErrorKind { return e.Kind }

// Client is a minimal LaunchDarkly flags API client. It implements
// engine.FlagSource.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	PageSize   int
	UserAgent  string
}

// NewClient returns a client for baseURL. An empty baseURL uses
// DefaultBaseURL; a non-positive timeout uses DefaultTimeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
		PageSize:   DefaultPageSize,
		UserAgent:  "ldaudit",
	}
}

type flagPage struct {
	Items      []json.RawMessage `json:"items"`
	TotalCount int               `json:"totalCount"`
	Links      struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

type mergedPage struct {
	Items      []json.RawMessage `json:"items"`
	TotalCount int               `json:"totalCount"`
}

// FetchFlags returns every flag of project as a single
// {"items": [...], "totalCount": n} document, following pagination links.
func (c *Client) FetchFlags(ctx context.Context, project string, environments []string) (json.RawMessage, error) {
	log := logging.FromContext(ctx)

	if strings.TrimSpace(c.Token) == "" {
		return nil, &APIError{Kind: engine.KindAuth, Message: "missing API key", Err: ErrMissingToken}
	}

	next, err := c.firstPageURL(project, environments)
	if err != nil {
		return nil, err
	}

	merged := mergedPage{Items: []json.RawMessage{}}
	for page := 0; next != nil; page++ {
		if page >= maxPages {
			return nil, &APIError{Kind: engine.KindServer, Message: "pagination did not terminate", URL: next.String()}
		}

		log.Debug().
			Ctx(ctx).
			Str("component", "launchdarkly").
			Str("operation", "fetch_flags").
			Str("project", project).
			Int("page", page).
			Msg("requesting flag page")

		body, err := c.get(ctx, next, project)
		if err != nil {
			return nil, err
		}

		var fp flagPage
		if err := json.Unmarshal(body, &fp); err != nil {
			return nil, &APIError{Kind: engine.KindServer, Message: "malformed response body", URL: next.String(), Err: err}
		}
		merged.Items = append(merged.Items, fp.Items...)
		merged.TotalCount = fp.TotalCount

		if fp.Links.Next == nil || fp.Links.Next.Href == "" || len(fp.Items) == 0 {
			break
		}
		ref, err := url.Parse(fp.Links.Next.Href)
		if err != nil {
			return nil, &APIError{Kind: engine.KindServer, Message: "invalid next link", URL: next.String(), Err: err}
		}
		next = next.ResolveReference(ref)
	}

	if merged.TotalCount < len(merged.Items) {
		merged.TotalCount = len(merged.Items)
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged flag pages: %w", err)
	}
	return out, nil
}

func (c *Client) firstPageURL(project string, environments []string) (*url.URL, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, &APIError{Kind: engine.KindNotFound, Message: "project key is empty"}
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &APIError{Kind: engine.KindNetwork, Message: fmt.Sprintf("invalid base URL %q", c.BaseURL), Err: err}
	}

	u := base.JoinPath(flagsPathPrefix, project)
	q := u.Query()
	for _, env := range environments {
		if env = strings.TrimSpace(env); env != "" {
			q.Add("env", env)
		}
	}
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("offset", "0")
	u.RawQuery = q.Encode()
	return u, nil
}

func (c *Client) get(ctx context.Context, u *url.URL, project string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &APIError{Kind: engine.KindNetwork, Message: "build request", URL: u.String(), Err: err}
	}
	req.Header.Set("Authorization", c.Token)
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: engine.KindNetwork, Message: "request failed", URL: u.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(resp.StatusCode, project, u.String(), snippet)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: engine.KindNetwork, Message: "read response body", URL: u.String(), Err: err}
	}
	return body, nil
}

func statusError(status int, project, rawURL string, body []byte) *APIError {
	e := &APIError{StatusCode: status, URL: rawURL}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = engine.KindAuth
		e.Message = "invalid or expired API key"
	case status == http.StatusNotFound:
		e.Kind = engine.KindNotFound
		e.Message = fmt.Sprintf("project %q not found", project)
	case status == http.StatusTooManyRequests:
		e.Kind = engine.KindRateLimited
		e.Message = "rate limited"
	case status >= http.StatusInternalServerError:
		e.Kind = engine.KindServer
		e.Message = "server error"
	default:
		e.Kind = engine.KindUnknown
		e.Message = "unexpected response"
	}
	if msg := apiMessage(body); msg != "" {
		e.Message += ": " + msg
	}
	return e
}

// apiMessage extracts the "message" field of an API error body.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}
