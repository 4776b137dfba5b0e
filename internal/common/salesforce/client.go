package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrAuthentication marks failures to obtain or use an access token.
var ErrAuthentication = errors.New("salesforce authentication failed")

// Connection is the per-request handle to a Salesforce org.
type Connection interface {
	Query(ctx context.Context, soql string) (*QueryResult, error)
}

// Record is one row of a query result. Field values keep their JSON types;
// the "attributes" entry describes the sObject.
type Record map[string]interface{}

// QueryResult mirrors the REST query response.
type QueryResult struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl,omitempty"`
	Records        []Record `json:"records"`
}

// DecodeRecords converts the result records into dst, a pointer to a slice.
func (r *QueryResult) DecodeRecords(dst interface{}) error {
	raw, err := json.Marshal(r.Records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode records: %w", err)
	}
	return nil
}

// APIError is a non-200 answer from the REST API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("salesforce api error (status %d): %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("salesforce api error (status %d): %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrAuthentication) match 401 and 403 answers.
func (e *APIError) Is(target error) bool {
	return target == ErrAuthentication &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// Client queries a Salesforce org over the REST API.
type Client struct {
	instanceURL string
	apiVersion  string
	tokens      oauth2.TokenSource
	httpClient  *http.Client
}

// NewClient returns a client for instanceURL authenticating with tokens.
// A nil httpClient gets a 30 second timeout.
func NewClient(instanceURL, apiVersion string, tokens oauth2.TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		instanceURL: strings.TrimSuffix(instanceURL, "/"),
		apiVersion:  strings.TrimPrefix(apiVersion, "v"),
		tokens:      tokens,
		httpClient:  httpClient,
	}
}

// NewClientWithToken returns a client using a fixed access token.
func NewClientWithToken(instanceURL, apiVersion, accessToken string, httpClient *http.Client) *Client {
	return NewClient(instanceURL, apiVersion, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}), httpClient)
}

// InstanceURL returns the org base URL.
func (c *Client) InstanceURL() string {
	return c.instanceURL
}

// QueryURL returns the REST URL used for soql.
func (c *Client) QueryURL(soql string) string {
	return fmt.Sprintf("%s/services/data/v%s/query?q=%s", c.instanceURL, c.apiVersion, url.QueryEscape(soql))
}

// Query runs a SOQL query and returns the first page of results.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.QueryURL(soql), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var result QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	return &result, nil
}

// parseAPIError reads the [{"errorCode","message"}] error body.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}

	var errs []struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &errs); err == nil && len(errs) > 0 {
		apiErr.ErrorCode = errs[0].ErrorCode
		apiErr.Message = errs[0].Message
	}

	return apiErr
}
