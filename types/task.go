package types

import "time"

// Task represents a single to-do item owned by exactly one user.
type Task struct {
	// ID is the unique identifier of the task.
	ID int `json:"id" db:"id"`

	// Description is the free-form text of the task.
	Description string `json:"description" db:"description"`

	// Completed indicates whether the task has been finished.
	Completed bool `json:"completed" db:"completed"`

	// Owner is the identifier of the user the task belongs to.
	// Tasks are only ever visible or mutable through their owner's
	// authenticated identity.
	Owner int `json:"owner" db:"owner"`

	// CreatedAt is the timestamp at which the task was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the task.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TaskFilter narrows a task listing. The zero value matches all of the
// owner's tasks in natural order.
type TaskFilter struct {
	// Completed filters by completion state when non-nil.
	Completed *bool

	// SortField is the task field to order by. Empty means the store's
	// natural order. Unknown fields are ignored rather than rejected.
	SortField string

	// SortDesc orders descending when true.
	SortDesc bool

	// Limit caps the number of returned tasks when positive.
	Limit int

	// Skip drops the first N matching tasks when positive.
	Skip int
}
