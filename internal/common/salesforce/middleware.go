package salesforce

import (
	"net/http"

	"finance-agreements/internal/common/logger"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// ConnectionFactory builds the Connection for an incoming request.
type ConnectionFactory struct {
	httpClient        *http.Client
	defaultAPIVersion string
	fallback          Connection
	logger            Logger
}

// NewConnectionFactory returns a factory. fallback, used when a request carries
// no client context, and log may be nil.
func NewConnectionFactory(httpClient *http.Client, defaultAPIVersion string, fallback Connection, log Logger) *ConnectionFactory {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ConnectionFactory{
		httpClient:        httpClient,
		defaultAPIVersion: defaultAPIVersion,
		fallback:          fallback,
		logger:            log,
	}
}

// ForRequest returns the connection for r: a client built from the client
// context header when present, else the fallback. Both results are nil when
// neither is available.
func (f *ConnectionFactory) ForRequest(r *http.Request) (Connection, *ClientContext, error) {
	header := r.Header.Get(ClientContextHeader)
	if header == "" {
		if f.fallback == nil {
			return nil, nil, nil
		}
		return f.fallback, nil, nil
	}

	cc, err := ParseClientContext(header)
	if err != nil {
		return nil, nil, err
	}

	apiVersion := cc.APIVersion
	if apiVersion == "" {
		apiVersion = f.defaultAPIVersion
	}

	return NewClientWithToken(cc.OrgDomainURL, apiVersion, cc.AccessToken, f.httpClient), cc, nil
}

// ConnectionMiddleware attaches a per-request Connection to the request
// context. A malformed client context is passed to onError; a request without
// any connection proceeds and fails in the handler.
func ConnectionMiddleware(factory *ConnectionFactory, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, cc, err := factory.ForRequest(r)
			if err != nil {
				factory.logger.Warn("Rejected client context", map[string]interface{}{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				onError(w, r, err)
				return
			}

			ctx := r.Context()
			if conn != nil {
				ctx = WithConnection(ctx, conn)
			}
			if cc != nil {
				ctx = WithClientContext(ctx, cc)
				factory.logger.Debug("Using client context connection", map[string]interface{}{
					"orgId":  cc.OrgID,
					"userId": cc.UserContext.UserID,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
