package service

import (
	"context"
	"time"

	"github.com/learnboard/learnboard/dashboard"
)

// ProfileService fetches and shapes the signed-in learner's dashboard.
type ProfileService struct {
	graphql  *GraphQLService
	location *time.Location
}

func NewProfileService(graphql *GraphQLService, location *time.Location) *ProfileService {
	if location == nil {
		location = time.Local
	}
	return &ProfileService{graphql: graphql, location: location}
}

// GetView returns the dashboard view for the token's owner.
func (s *ProfileService) GetView(ctx context.Context, token string) (*dashboard.View, error) {
	profile, err := dashboard.FetchProfile(ctx, s.graphql.Querier(token))
	if err != nil {
		return nil, err
	}
	view := dashboard.BuildView(profile, s.location)
	return &view, nil
}
