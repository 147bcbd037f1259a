package rules

import (
	"fmt"
	"slices"
)

// Move drags the displayed row at index from to index to and then stages
// priorities 0..N-1 for every displayed row in the new order. Rows staged
// for deletion are not displayed and keep their priority.
func (e *Editor) Move(from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	display := e.displayedLocked()
	n := len(display)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d to %d of %d rows: %w", from, to, n, ErrInvalidMove)
	}

	row := display[from]
	display = slices.Delete(display, from, from+1)
	display = slices.Insert(display, to, row)

	for i, r := range display {
		priority := i
		if err := e.stageLocked(r.ID, Patch{Priority: &priority}); err != nil {
			return fmt.Errorf("renumber rule %d: %w", r.ID, err)
		}
	}
	return nil
}

// MoveByID moves the row with the given ID to display index to.
func (e *Editor) MoveByID(id int64, to int) error {
	e.mu.Lock()
	display := e.displayedLocked()
	e.mu.Unlock()

	from := -1
	for i, r := range display {
		if r.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("move rule %d: %w", id, ErrUnknownRule)
	}
	return e.Move(from, to)
}
