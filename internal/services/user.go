package services

import (
	"context"

	"github.com/taskdeck/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
	GetAvatar(ctx context.Context, id int) ([]byte, error)
	SetAvatar(ctx context.Context, id int, avatar []byte) error
}

// UserService encapsulates account use-cases. It holds the task and
// session repositories as well so account deletion can cascade with
// explicit queries rather than relying on store-side relations.
type UserService struct {
	repo     UserRepository
	tasks    TaskRepository
	sessions TokenRepository
}

func NewUserService(repo UserRepository, tasks TaskRepository, sessions TokenRepository) *UserService {
	return &UserService{repo: repo, tasks: tasks, sessions: sessions}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) Update(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Update(ctx, user)
}

// DeleteAccount removes the user along with every task and session
// token they own.
func (s *UserService) DeleteAccount(ctx context.Context, id int) error {
	if err := s.tasks.DeleteByOwner(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.RemoveAll(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *UserService) GetAvatar(ctx context.Context, id int) ([]byte, error) {
	return s.repo.GetAvatar(ctx, id)
}

func (s *UserService) SetAvatar(ctx context.Context, id int, avatar []byte) error {
	return s.repo.SetAvatar(ctx, id, avatar)
}

// ClearAvatar removes the stored avatar. Clearing an absent avatar is
// not an error.
func (s *UserService) ClearAvatar(ctx context.Context, id int) error {
	return s.repo.SetAvatar(ctx, id, nil)
}
