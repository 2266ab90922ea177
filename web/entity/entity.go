// Package entity defines the request and response bodies of the proxy API.
package entity

// Msg is the success reply of the state-changing endpoints.
type Msg struct {
	Success bool `json:"success"`
}

// ErrorMsg is the reply of every failed API call.
type ErrorMsg struct {
	Error string `json:"error"`
}

// GraphQLErrorsMsg carries the messages of a GraphQL-level failure.
type GraphQLErrorsMsg struct {
	Errors []string `json:"errors"`
}

// LoginForm is the body of POST /api/login (JSON) and POST /login (form).
// Either Token or User and Pass are set.
type LoginForm struct {
	Token string `json:"token" form:"token"`
	User  string `json:"user" form:"user"`
	Pass  string `json:"pass" form:"pass"`
}

// SessionStatus is the reply of GET /api/check-session. Token is only
// filled when the proxy is configured to expose it.
type SessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token,omitempty"`
}
