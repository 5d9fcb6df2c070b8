package gql

import (
	"net/http"
	"strings"
	"time"

	"devblog/internal/config"
	genqlientgraphql "github.com/Khan/genqlient/graphql"
)

const requestTimeout = 15 * time.Second

func NewClient(cfg config.Config) genqlientgraphql.Client {
	client := &http.Client{
		Timeout: requestTimeout,
		Transport: &authTransport{
			base:  http.DefaultTransport,
			token: strings.TrimSpace(cfg.GraphQLAuthToken),
		},
	}

	return genqlientgraphql.NewClient(cfg.GraphQLEndpoint, client)
}

type authTransport struct {
	base  http.RoundTripper
	token string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}
