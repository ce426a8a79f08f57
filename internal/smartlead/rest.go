package smartlead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
)

const (
	accountsEndpoint   = "GET /email-accounts/"
	tagMappingEndpoint = "POST /email-accounts/tag-mapping"

	// maxListingPages bounds the fallback listing if the vendor keeps
	// returning full pages.
	maxListingPages = 1000
)

// FetchAccountsFallback lists email accounts through the REST API, page by
// page, until a short page is returned.
func (c *Client) FetchAccountsFallback(ctx context.Context) ([]domain.Account, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var accounts []domain.Account
	for page := 0; page < maxListingPages; page++ {
		params := url.Values{}
		params.Set("offset", strconv.Itoa(page*c.pageSize))
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("api_key", c.apiKey)
		reqURL := c.restBaseURL + "/email-accounts/?" + params.Encode()

		body, _, err := c.doRequest(ctx, c.rest, http.MethodGet, reqURL, accountsEndpoint, nil)
		if err != nil {
			return nil, err
		}

		rows, err := listingRows(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", accountsEndpoint, err)
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(rows, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, accountsEndpoint, err)
		}
		entries, err := decodeRows(rows, "id", "from_email")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", accountsEndpoint, err)
		}
		for _, e := range entries {
			accounts = append(accounts, domain.Account{ID: e.ID, Email: e.Key})
		}

		if len(raw) < c.pageSize {
			break
		}
	}

	logger.Info("fetched smartlead accounts", "source", "rest", "count", len(accounts))
	return accounts, nil
}

// ApplyTags attaches tagID to up to domain.MaxBatchSize email accounts in
// one call. A 2xx response that reports ok=false or success=false is a
// failure too.
func (c *Client) ApplyTags(ctx context.Context, tagID int64, accountIDs []int64) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if len(accountIDs) == 0 {
		return errors.New("smartlead: tag mapping needs at least one account id")
	}
	if len(accountIDs) > domain.MaxBatchSize {
		return fmt.Errorf("smartlead: tag mapping accepts at most %d account ids, got %d", domain.MaxBatchSize, len(accountIDs))
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	reqURL := c.restBaseURL + "/email-accounts/tag-mapping?" + params.Encode()

	body, status, err := c.doRequest(ctx, c.rest, http.MethodPost, reqURL, tagMappingEndpoint, TagMappingRequest{
		EmailAccountIDs: accountIDs,
		TagIDs:          []int64{tagID},
	})
	if err != nil {
		return err
	}

	var ws writeStatus
	if err := json.Unmarshal(body, &ws); err == nil {
		if (ws.OK != nil && !*ws.OK) || (ws.Success != nil && !*ws.Success) {
			msg := ws.Message
			if msg == "" {
				msg = "vendor reported failure"
			}
			return &VendorCallError{Endpoint: tagMappingEndpoint, Status: status, Message: logger.RedactSecrets(msg)}
		}
	}
	return nil
}
