package smartlead

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Default endpoints and query shapes.
const (
	DefaultGraphQLURL  = "https://fe-gql.smartlead.ai/v1/graphql"
	DefaultRESTBaseURL = "https://server.smartlead.ai/api/v1"
	DefaultPageSize    = 100
)

// Config holds Smartlead client configuration
type Config struct {
	GraphQLURL  string
	RESTBaseURL string
	BearerToken string // GraphQL queries
	APIKey      string // REST listing and tag-apply calls
	Timeout     time.Duration
	PageSize    int
	Accounts    QuerySchema
	Tags        QuerySchema
}

// QuerySchema names the GraphQL root field and the two row fields read from
// it: the identifier and the matching key (email or tag name).
type QuerySchema struct {
	QueryName string `yaml:"query_name" json:"query_name"`
	IDField   string `yaml:"id_field" json:"id_field"`
	KeyField  string `yaml:"key_field" json:"key_field"`
}

// DefaultAccountsSchema reads email_accounts { id from_email }.
func DefaultAccountsSchema() QuerySchema {
	return QuerySchema{QueryName: "email_accounts", IDField: "id", KeyField: "from_email"}
}

// DefaultTagsSchema reads tags { id name }.
func DefaultTagsSchema() QuerySchema {
	return QuerySchema{QueryName: "tags", IDField: "id", KeyField: "name"}
}

var graphQLName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// Validate checks that every name is a GraphQL identifier, so the schema can
// be spliced into query text safely.
func (s QuerySchema) Validate() error {
	for _, f := range []struct{ label, value string }{
		{"query_name", s.QueryName},
		{"id_field", s.IDField},
		{"key_field", s.KeyField},
	} {
		if !graphQLName.MatchString(f.value) {
			return fmt.Errorf("invalid %s %q: must be a GraphQL name", f.label, f.value)
		}
	}
	if s.IDField == s.KeyField {
		return fmt.Errorf("id_field and key_field must differ (both %q)", s.IDField)
	}
	return nil
}

// Query renders the GraphQL document for the schema.
func (s QuerySchema) Query() string {
	return fmt.Sprintf("query { %s { %s %s } }", s.QueryName, s.IDField, s.KeyField)
}

// WithDefaults fills empty names from def.
func (s QuerySchema) WithDefaults(def QuerySchema) QuerySchema {
	if s.QueryName == "" {
		s.QueryName = def.QueryName
	}
	if s.IDField == "" {
		s.IDField = def.IDField
	}
	if s.KeyField == "" {
		s.KeyField = def.KeyField
	}
	return s
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []graphQLError             `json:"errors"`
}

// TagMappingRequest is the body of the tag-apply call.
type TagMappingRequest struct {
	EmailAccountIDs []int64 `json:"email_account_ids"`
	TagIDs          []int64 `json:"tag_ids"`
}

// writeStatus captures the optional success flags of a tag-apply response.
type writeStatus struct {
	OK      *bool  `json:"ok"`
	Success *bool  `json:"success"`
	Message string `json:"message"`
}
