package smartlead

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
)

// FetchAccounts lists email accounts through the GraphQL API.
func (c *Client) FetchAccounts(ctx context.Context) ([]domain.Account, error) {
	entries, err := c.query(ctx, c.accounts)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, len(entries))
	for i, e := range entries {
		accounts[i] = domain.Account{ID: e.ID, Email: e.Key}
	}
	logger.Info("fetched smartlead accounts", "source", "graphql", "count", len(accounts))
	return accounts, nil
}

// FetchTags lists tags through the GraphQL API.
func (c *Client) FetchTags(ctx context.Context) ([]domain.Tag, error) {
	entries, err := c.query(ctx, c.tags)
	if err != nil {
		return nil, err
	}

	tags := make([]domain.Tag, len(entries))
	for i, e := range entries {
		tags[i] = domain.Tag{ID: e.ID, Name: e.Key}
	}
	logger.Info("fetched smartlead tags", "source", "graphql", "count", len(tags))
	return tags, nil
}

// query runs the schema's GraphQL document and decodes its rows.
func (c *Client) query(ctx context.Context, schema QuerySchema) ([]entry, error) {
	if !c.hasBearer {
		return nil, ErrMissingBearer
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("smartlead: %w", err)
	}

	endpoint := "graphql " + schema.QueryName
	body, status, err := c.doRequest(ctx, c.gql, http.MethodPost, c.graphqlURL, endpoint, graphQLRequest{Query: schema.Query()})
	if err != nil {
		return nil, err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
	}
	if len(resp.Errors) > 0 {
		return nil, &VendorCallError{
			Endpoint: endpoint,
			Status:   status,
			Message:  logger.RedactSecrets(resp.Errors[0].Message),
		}
	}

	rows, ok := resp.Data[schema.QueryName]
	if !ok {
		return nil, fmt.Errorf("%w: %s: data.%s missing", ErrMalformedResponse, endpoint, schema.QueryName)
	}
	entries, err := decodeRows(rows, schema.IDField, schema.KeyField)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return entries, nil
}
