// Package client holds the outbound HTTP clients for the external auth and
// multi-sig services. Calls are single requests with no retry; failures come
// back as *httpx.Error so the services can fold them into result values.
package client

import (
	"context"
	"net/http"

	"github.com/gamelink-io/provision-service/internal/config"
	"github.com/gamelink-io/provision-service/internal/httpx"
)

// AuthClient obtains short-lived access tokens from the external auth
// endpoint using the static identity pair from configuration.
type AuthClient struct {
	http     *httpx.Client
	url      string
	identity string
	secret   string
}

// NewAuthClient builds an AuthClient from the external config section.
func NewAuthClient(cfg config.ExternalConfig) *AuthClient {
	return &AuthClient{
		http:     httpx.NewClient(httpx.WithTimeout(cfg.Timeout())),
		url:      cfg.AuthURL,
		identity: cfg.AuthIdentity,
		secret:   cfg.AuthSecret,
	}
}

type tokenRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Token exchanges the configured identity pair for an access token.
func (c *AuthClient) Token(ctx context.Context) (string, error) {
	resp, err := c.http.Post(ctx, c.url, tokenRequest{Identity: c.identity, Secret: c.secret}, nil)
	if err != nil {
		return "", err
	}
	var body tokenResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return "", &httpx.Error{StatusCode: http.StatusOK, Message: "malformed token response", Response: resp}
	}
	return body.AccessToken, nil
}
