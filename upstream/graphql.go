package upstream

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Request is the body posted to the GraphQL endpoint.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// NewQueryBody encodes query as a GraphQL request body.
func NewQueryBody(query string) ([]byte, error) {
	return json.Marshal(Request{Query: query})
}

type GraphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// IsTokenExpired reports whether the error is the engine refusing the JWT.
func (e GraphQLError) IsTokenExpired() bool {
	if code, ok := e.Extensions["code"].(string); ok && code == "invalid-jwt" {
		return true
	}
	return strings.Contains(e.Message, "JWTExpired")
}

// GraphQLErrors is the "errors" array of a GraphQL response.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, gqlErr := range e {
		messages = append(messages, gqlErr.Message)
	}
	return "graphql: " + strings.Join(messages, "; ")
}

// Messages returns one message per error, in response order.
func (e GraphQLErrors) Messages() []string {
	messages := make([]string, 0, len(e))
	for _, gqlErr := range e {
		messages = append(messages, gqlErr.Message)
	}
	return messages
}

type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors GraphQLErrors   `json:"errors,omitempty"`
}

// DecodeResponse classifies a GraphQL reply and, when it carries data,
// decodes the data object into out.
//
// A 401 status or an invalid-jwt error yields ErrTokenExpired. Any other
// non-empty errors array is returned as GraphQLErrors and out is left
// untouched. Unparseable bodies and missing data yield ErrTransport.
func DecodeResponse(status int, body []byte, out any) error {
	if status == http.StatusUnauthorized {
		return ErrTokenExpired
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: decode graphql response (status %d): %w", ErrTransport, status, err)
	}

	if len(resp.Errors) > 0 {
		for _, gqlErr := range resp.Errors {
			if gqlErr.IsTokenExpired() {
				return fmt.Errorf("%w: %w", ErrTokenExpired, resp.Errors)
			}
		}
		return resp.Errors
	}

	if status >= http.StatusBadRequest {
		return fmt.Errorf("%w: graphql endpoint answered status %d", ErrTransport, status)
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("%w: graphql response has no data", ErrTransport)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%w: decode graphql data: %w", ErrTransport, err)
	}
	return nil
}
