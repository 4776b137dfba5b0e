package salesforce

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ClientContextHeader carries the org context of a Salesforce-initiated call.
const ClientContextHeader = "x-client-context"

// ClientContext is the decoded ClientContextHeader.
type ClientContext struct {
	RequestID    string      `json:"requestId"`
	AccessToken  string      `json:"accessToken"`
	APIVersion   string      `json:"apiVersion"`
	Namespace    string      `json:"namespace,omitempty"`
	OrgID        string      `json:"orgId"`
	OrgDomainURL string      `json:"orgDomainUrl"`
	UserContext  UserContext `json:"userContext"`
}

type UserContext struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ParseClientContext decodes a base64 JSON header value.
func ParseClientContext(header string) (*ClientContext, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return nil, fmt.Errorf("client context is not valid base64: %w", err)
	}

	var cc ClientContext
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("client context is not valid JSON: %w", err)
	}

	if cc.AccessToken == "" {
		return nil, fmt.Errorf("client context has no access token")
	}
	if cc.OrgDomainURL == "" {
		return nil, fmt.Errorf("client context has no org domain URL")
	}

	return &cc, nil
}

// Encode returns the header form of cc.
func (cc *ClientContext) Encode() (string, error) {
	raw, err := json.Marshal(cc)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

type connectionKey struct{}
type clientContextKey struct{}

// WithConnection attaches conn to ctx.
func WithConnection(ctx context.Context, conn Connection) context.Context {
	return context.WithValue(ctx, connectionKey{}, conn)
}

// ConnectionFromContext returns the connection attached by the middleware.
func ConnectionFromContext(ctx context.Context) (Connection, bool) {
	conn, ok := ctx.Value(connectionKey{}).(Connection)
	return conn, ok && conn != nil
}

// WithClientContext attaches the decoded org context to ctx.
func WithClientContext(ctx context.Context, cc *ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey{}, cc)
}

// ClientContextFromContext returns the org context, if the request carried one.
func ClientContextFromContext(ctx context.Context) (*ClientContext, bool) {
	cc, ok := ctx.Value(clientContextKey{}).(*ClientContext)
	return cc, ok
}
