// Package smartlead is the client for the Smartlead APIs used by the tag
// mapper: GraphQL listings of email accounts and tags, the REST account
// listing used as a fallback, and the REST tag-mapping write.
package smartlead

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"github.com/ignite/smartlead-tagmapper/internal/pkg/httpclient"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
)

// maxMessageBytes caps how much of an error body is kept in a VendorCallError.
const maxMessageBytes = 300

// Client is the Smartlead API client
type Client struct {
	graphqlURL  string
	restBaseURL string
	apiKey      string
	hasBearer   bool
	pageSize    int
	accounts    QuerySchema
	tags        QuerySchema
	gql         httpclient.HTTPDoer
	rest        httpclient.HTTPDoer
}

// NewClient creates a new Smartlead API client. GraphQL calls carry the
// bearer token through an oauth2 transport; REST calls carry the API key as
// a query parameter.
func NewClient(cfg Config) *Client {
	c := &Client{
		graphqlURL:  strings.TrimSpace(cfg.GraphQLURL),
		restBaseURL: strings.TrimRight(strings.TrimSpace(cfg.RESTBaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		pageSize:    cfg.PageSize,
		accounts:    cfg.Accounts.WithDefaults(DefaultAccountsSchema()),
		tags:        cfg.Tags.WithDefaults(DefaultTagsSchema()),
	}
	if c.graphqlURL == "" {
		c.graphqlURL = DefaultGraphQLURL
	}
	if c.restBaseURL == "" {
		c.restBaseURL = DefaultRESTBaseURL
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}

	var transport http.RoundTripper
	if bearer := strings.TrimSpace(cfg.BearerToken); bearer != "" {
		c.hasBearer = true
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}),
		}
	}
	c.gql = httpclient.NewWithTimeout("smartlead-graphql", cfg.Timeout, transport)
	c.rest = httpclient.NewWithTimeout("smartlead-rest", cfg.Timeout, nil)
	return c
}

// SetHTTPClient replaces the HTTP client for both GraphQL and REST calls
// (useful for testing). The replacement is responsible for authentication.
func (c *Client) SetHTTPClient(client httpclient.HTTPDoer) {
	c.gql = client
	c.rest = client
}

// doRequest performs one request and returns the body of a 2xx response.
// Every other outcome becomes a *VendorCallError labelled with endpoint.
func (c *Client) doRequest(ctx context.Context, doer httpclient.HTTPDoer, method, reqURL, endpoint string, body interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := doer.Do(req)
	if err != nil {
		// *url.Error carries the full URL, query string included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, 0, &VendorCallError{Endpoint: endpoint, Message: logger.RedactSecrets(err.Error()), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &VendorCallError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  "reading response body: " + err.Error(),
			Err:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &VendorCallError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  errorMessage(respBody),
		}
	}

	return respBody, resp.StatusCode, nil
}

// errorMessage pulls a human-readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return logger.RedactSecrets(payload.Message)
		}
		if payload.Error != "" {
			return logger.RedactSecrets(payload.Error)
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxMessageBytes {
		cut := maxMessageBytes
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return logger.RedactSecrets(msg)
}
