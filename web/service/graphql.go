package service

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/learnboard/learnboard/dashboard"
	"github.com/learnboard/learnboard/upstream"
	"github.com/learnboard/learnboard/util/metrics"
)

// GraphQLService forwards GraphQL bodies upstream on behalf of a session.
type GraphQLService struct {
	client *upstream.Client
}

func NewGraphQLService(client *upstream.Client) *GraphQLService {
	return &GraphQLService{client: client}
}

// Forward posts body with token as bearer and returns the upstream status and
// body untouched. A body that is not JSON is reported as upstream.ErrTransport.
func (s *GraphQLService) Forward(ctx context.Context, token string, body []byte) (int, []byte, error) {
	status, respBody, err := s.client.Query(ctx, token, body)
	if err != nil {
		metrics.GraphQLForwards.WithLabelValues("error").Inc()
		return 0, nil, err
	}
	if !json.Valid(respBody) {
		metrics.GraphQLForwards.WithLabelValues("error").Inc()
		return 0, nil, fmt.Errorf("%w: upstream replied %d with a non-JSON body", upstream.ErrTransport, status)
	}
	metrics.GraphQLForwards.WithLabelValues("ok").Inc()
	return status, respBody, nil
}

// Querier binds token, so the session's credential can drive the dashboard
// pipeline.
func (s *GraphQLService) Querier(token string) dashboard.Querier {
	return sessionQuerier{service: s, token: token}
}

type sessionQuerier struct {
	service *GraphQLService
	token   string
}

func (q sessionQuerier) Query(ctx context.Context, body []byte) (int, []byte, error) {
	return q.service.Forward(ctx, q.token, body)
}
