package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CreateColumn inserts a column at the given position.
func (g *Gateway) CreateColumn(ctx context.Context, boardID, title string, position int) (*Column, error) {
	col := &Column{ID: newID(), Title: title, Position: position, Tasks: []Task{}}
	_, err := g.db.ExecContext(ctx, `INSERT INTO columns (id, board_id, title, position) VALUES (?, ?, ?, ?)`,
		col.ID, boardID, title, position)
	if err != nil {
		return nil, fmt.Errorf("failed to insert column: %w", err)
	}
	return col, nil
}

func (g *Gateway) UpdateColumn(ctx context.Context, id, title string) error {
	if err := execOne(ctx, g.db, `UPDATE columns SET title = ? WHERE id = ?`, title, id); err != nil {
		return fmt.Errorf("failed to update column: %w", err)
	}
	return nil
}

// DeleteColumn deletes the column and, through the foreign keys, its tasks.
// The columns after it move up one slot so board positions stay dense.
func (g *Gateway) DeleteColumn(ctx context.Context, id string) error {
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		var boardID string
		var position int
		err := tx.QueryRowContext(ctx, `SELECT board_id, position FROM columns WHERE id = ?`, id).Scan(&boardID, &position)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM columns WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE columns SET position = position - 1 WHERE board_id = ? AND position > ?`,
			boardID, position)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete column: %w", err)
	}
	return nil
}

// SaveColumnOrder writes position i for the i-th id in one transaction.
func (g *Gateway) SaveColumnOrder(ctx context.Context, boardID string, ids []string) error {
	return g.withTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			err := execOne(ctx, tx, `UPDATE columns SET position = ? WHERE id = ? AND board_id = ?`, i, id, boardID)
			if err != nil {
				return fmt.Errorf("failed to update position of column %s: %w", id, err)
			}
		}
		return nil
	})
}

// CreateTask inserts an empty-description task at the given position.
func (g *Gateway) CreateTask(ctx context.Context, columnID, title string, position int) (*Task, error) {
	task := &Task{
		ID:          newID(),
		Title:       title,
		Position:    position,
		Labels:      []Label{},
		Checklists:  []Checklist{},
		Comments:    []Comment{},
		Attachments: []Attachment{},
	}
	_, err := g.db.ExecContext(ctx, `INSERT INTO tasks (id, column_id, title, position) VALUES (?, ?, ?, ?)`,
		task.ID, columnID, title, position)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return task, nil
}

// UpdateTask applies the non-nil fields of patch. A Labels patch replaces
// the task's label links.
func (g *Gateway) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	var sets []string
	var args []any
	if patch.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *patch.Description)
	}
	if patch.DueDate != nil {
		sets, args = append(sets, "due_date = ?"), append(args, *patch.DueDate)
	}
	if patch.Priority != nil {
		sets, args = append(sets, "priority = ?"), append(args, *patch.Priority)
	}
	if patch.Archived != nil {
		sets, args = append(sets, "archived = ?"), append(args, *patch.Archived)
	}

	err := g.withTx(ctx, func(tx *sql.Tx) error {
		if len(sets) > 0 {
			query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
			if err := execOne(ctx, tx, query, append(args, id)...); err != nil {
				return err
			}
		} else {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
		}

		if patch.Labels == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_labels WHERE task_id = ?`, id); err != nil {
			return err
		}
		for _, l := range *patch.Labels {
			if _, err := tx.ExecContext(ctx, `INSERT INTO task_labels (task_id, label_id) VALUES (?, ?)`, id, l.ID); err != nil {
				return fmt.Errorf("failed to link label %s: %w", l.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// DeleteTask deletes the task and closes the gap it leaves in its column.
func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		var columnID string
		var position int
		err := tx.QueryRowContext(ctx, `SELECT column_id, position FROM tasks WHERE id = ?`, id).Scan(&columnID, &position)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET position = position - 1 WHERE column_id = ? AND position > ?`,
			columnID, position)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// SaveTaskOrder moves every listed task into its column at position i in a
// single transaction. A cross-column move lists both columns so the source
// and destination are written atomically.
func (g *Gateway) SaveTaskOrder(ctx context.Context, order map[string][]string) error {
	columnIDs := make([]string, 0, len(order))
	for id := range order {
		columnIDs = append(columnIDs, id)
	}
	sort.Strings(columnIDs)

	return g.withTx(ctx, func(tx *sql.Tx) error {
		for _, columnID := range columnIDs {
			for i, taskID := range order[columnID] {
				err := execOne(ctx, tx, `UPDATE tasks SET column_id = ?, position = ? WHERE id = ?`, columnID, i, taskID)
				if err != nil {
					return fmt.Errorf("failed to update position of task %s: %w", taskID, err)
				}
			}
		}
		return nil
	})
}
