package service

import (
	"context"
	"errors"

	"github.com/learnboard/learnboard/upstream"
	"github.com/learnboard/learnboard/util/metrics"
)

// AuthService exchanges credentials for an upstream token.
type AuthService struct {
	client *upstream.Client
}

func NewAuthService(client *upstream.Client) *AuthService {
	return &AuthService{client: client}
}

// Login returns the bearer token for user/pass. Rejections are
// *upstream.AuthError; anything else is a transport failure.
func (s *AuthService) Login(ctx context.Context, user, pass string) (string, error) {
	token, err := s.client.SignIn(ctx, user, pass)
	var authErr *upstream.AuthError
	switch {
	case err == nil:
		metrics.LoginAttempts.WithLabelValues("success").Inc()
	case errors.As(err, &authErr):
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
	default:
		metrics.LoginAttempts.WithLabelValues("error").Inc()
	}
	return token, err
}
