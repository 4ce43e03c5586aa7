package services

import "context"

// TokenRepository defines persistence operations for the active session
// token set.
type TokenRepository interface {
	Add(ctx context.Context, userID int, token string) error
	Exists(ctx context.Context, userID int, token string) (bool, error)
	Remove(ctx context.Context, userID int, token string) error
	RemoveAll(ctx context.Context, userID int) error
}

// SessionService tracks which issued tokens are still active. A signed
// token that verifies cryptographically is still rejected once it has
// been removed from this set.
type SessionService struct {
	repo TokenRepository
}

func NewSessionService(repo TokenRepository) *SessionService {
	return &SessionService{repo: repo}
}

// Record stores a freshly issued token in the user's active set.
func (s *SessionService) Record(ctx context.Context, userID int, token string) error {
	return s.repo.Add(ctx, userID, token)
}

// IsActive reports whether the exact token string is still in the
// user's active set.
func (s *SessionService) IsActive(ctx context.Context, userID int, token string) (bool, error) {
	return s.repo.Exists(ctx, userID, token)
}

// Revoke removes exactly the presented token, ending that one session.
func (s *SessionService) Revoke(ctx context.Context, userID int, token string) error {
	return s.repo.Remove(ctx, userID, token)
}

// RevokeAll clears the user's active set, invalidating every session.
func (s *SessionService) RevokeAll(ctx context.Context, userID int) error {
	return s.repo.RemoveAll(ctx, userID)
}
