package salesforce

import (
	"context"
	"net/http"

	"finance-agreements/internal/common/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// IntegrationUser holds connected-app credentials for the client credentials
// flow.
type IntegrationUser struct {
	InstanceURL  string
	APIVersion   string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// IntegrationUserFromConfig reads the connected-app settings. ok is false when
// no integration user is configured.
func IntegrationUserFromConfig(cfg config.SalesforceConfig) (user IntegrationUser, ok bool) {
	if !cfg.HasIntegrationUser() {
		return IntegrationUser{}, false
	}
	return IntegrationUser{
		InstanceURL:  cfg.InstanceURL,
		APIVersion:   cfg.APIVersion,
		TokenURL:     cfg.GetTokenURL(),
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, true
}

// NewIntegrationUserClient returns a client whose tokens come from the client
// credentials flow. Tokens are cached until they expire.
func NewIntegrationUserClient(user IntegrationUser, httpClient *http.Client) *Client {
	cc := &clientcredentials.Config{
		ClientID:     user.ClientID,
		ClientSecret: user.ClientSecret,
		TokenURL:     user.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx := context.Background()
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	return NewClient(user.InstanceURL, user.APIVersion, cc.TokenSource(ctx), httpClient)
}
