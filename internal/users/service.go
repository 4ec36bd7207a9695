package users

import (
	"context"
	"fmt"
)

// Service covers account lifecycle around login and payout onboarding.
type Service struct {
	Repo Repo
}

// EnsureUser upserts the account row for an authenticated identity. Called
// on every login callback; first login creates the row.
func (s *Service) EnsureUser(ctx context.Context, id, email, name, picture string) error {
	if id == "" {
		return fmt.Errorf("user id is required")
	}
	return s.Repo.Upsert(ctx, User{
		ID:         id,
		Email:      email,
		FullName:   name,
		PictureURL: picture,
	})
}
