package tree

import "fmt"

// NotFoundError indicates an id that names no question in the store.
type NotFoundError struct {
	ID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("question %d not found", e.ID)
}

// ReferenceError indicates a parent_id that names no existing question.
type ReferenceError struct {
	ParentID int64
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("parent question %d does not exist", e.ParentID)
}
