package services

import (
	"context"

	"github.com/taskdeck/apiserver/types"
)

// TaskRepository defines persistence operations for tasks. All lookups
// are scoped to an owner.
type TaskRepository interface {
	GetByID(ctx context.Context, owner, id int) (types.Task, error)
	List(ctx context.Context, owner int, filter types.TaskFilter) ([]types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, task types.Task) (types.Task, error)
	Delete(ctx context.Context, owner, id int) error
	DeleteByOwner(ctx context.Context, owner int) error
}

// TaskService encapsulates task use-cases.
type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) GetByID(ctx context.Context, owner, id int) (types.Task, error) {
	return s.repo.GetByID(ctx, owner, id)
}

func (s *TaskService) List(ctx context.Context, owner int, filter types.TaskFilter) ([]types.Task, error) {
	return s.repo.List(ctx, owner, filter)
}

func (s *TaskService) Create(ctx context.Context, task types.Task) (types.Task, error) {
	return s.repo.Create(ctx, task)
}

func (s *TaskService) Update(ctx context.Context, task types.Task) (types.Task, error) {
	return s.repo.Update(ctx, task)
}

func (s *TaskService) Delete(ctx context.Context, owner, id int) error {
	return s.repo.Delete(ctx, owner, id)
}
