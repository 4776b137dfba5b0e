package salesforce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Warn(string, map[string]interface{})  {}

type stubConnection struct{}

func (stubConnection) Query(context.Context, string) (*QueryResult, error) {
	return &QueryResult{Done: true}, nil
}

func encodedContext(t *testing.T) string {
	t.Helper()
	header, err := (&ClientContext{
		RequestID:    "00Dxx0000001gEREAY-4Y4W3Lw_LkoskcHdEaZze",
		AccessToken:  "00Dxx!session",
		APIVersion:   "62.0",
		OrgID:        "00Dxx0000001gER",
		OrgDomainURL: "https://dealer.my.salesforce.com",
		UserContext:  UserContext{UserID: "005xx000001X8Uz", Username: "sales@dealer.com"},
	}).Encode()
	require.NoError(t, err)
	return header
}

func TestParseClientContext(t *testing.T) {
	cc, err := ParseClientContext(encodedContext(t))
	require.NoError(t, err)
	assert.Equal(t, "00Dxx!session", cc.AccessToken)
	assert.Equal(t, "https://dealer.my.salesforce.com", cc.OrgDomainURL)
	assert.Equal(t, "sales@dealer.com", cc.UserContext.Username)

	_, err = ParseClientContext("%%%")
	assert.ErrorContains(t, err, "base64")

	_, err = ParseClientContext("bm90IGpzb24=")
	assert.ErrorContains(t, err, "JSON")

	noToken, _ := (&ClientContext{OrgDomainURL: "https://x"}).Encode()
	_, err = ParseClientContext(noToken)
	assert.ErrorContains(t, err, "access token")
}

func TestConnectionMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		fallback    Connection
		wantConn    bool
		wantContext bool
		wantReject  bool
	}{
		{name: "client context header", header: "valid", wantConn: true, wantContext: true},
		{name: "fallback integration user", fallback: stubConnection{}, wantConn: true},
		{name: "no connection available", wantConn: false},
		{name: "malformed header", header: "!!not-base64!!", fallback: stubConnection{}, wantReject: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewConnectionFactory(nil, "62.0", tt.fallback, nopLogger{})

			var rejected, reached bool
			var gotConn, gotContext bool
			handler := ConnectionMiddleware(factory, func(w http.ResponseWriter, r *http.Request, err error) {
				rejected = true
				w.WriteHeader(http.StatusUnauthorized)
			})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				_, gotConn = ConnectionFromContext(r.Context())
				_, gotContext = ClientContextFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/calculateFinanceAgreement", nil)
			switch tt.header {
			case "":
			case "valid":
				req.Header.Set(ClientContextHeader, encodedContext(t))
			default:
				req.Header.Set(ClientContextHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantReject, rejected)
			assert.Equal(t, !tt.wantReject, reached)
			assert.Equal(t, tt.wantConn, gotConn)
			assert.Equal(t, tt.wantContext, gotContext)
		})
	}
}

func TestConnectionFactory_ClientContextTargetsOrgDomain(t *testing.T) {
	factory := NewConnectionFactory(nil, "61.0", nil, nopLogger{})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(ClientContextHeader, encodedContext(t))

	conn, cc, err := factory.ForRequest(req)
	require.NoError(t, err)
	require.NotNil(t, cc)

	client, ok := conn.(*Client)
	require.True(t, ok)
	assert.Equal(t, "https://dealer.my.salesforce.com", client.InstanceURL())
	assert.Contains(t, client.QueryURL("SELECT Id FROM Vehicle_Model__c"), "/services/data/v62.0/query?q=")
}

func TestConnectionMiddleware_NilLoggerRejectsMalformedHeader(t *testing.T) {
	factory := NewConnectionFactory(nil, "62.0", nil, nil)

	handler := ConnectionMiddleware(factory, func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("malformed client context must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/calculateFinanceAgreement", nil)
	req.Header.Set(ClientContextHeader, "!!not-base64!!")
	rec := httptest.NewRecorder()

	require.NotPanics(t, func() { handler.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
