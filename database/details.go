package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (g *Gateway) CreateLabel(ctx context.Context, boardID, name, color string) (*Label, error) {
	l := &Label{ID: newID(), Name: name, Color: color}
	_, err := g.db.ExecContext(ctx, `INSERT INTO labels (id, board_id, name, color) VALUES (?, ?, ?, ?)`,
		l.ID, boardID, name, color)
	if err != nil {
		return nil, fmt.Errorf("failed to insert label: %w", err)
	}
	return l, nil
}

// DeleteLabel removes the label and its task links.
func (g *Gateway) DeleteLabel(ctx context.Context, id string) error {
	if err := execOne(ctx, g.db, `DELETE FROM labels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}
	return nil
}

func (g *Gateway) CreateChecklist(ctx context.Context, taskID, title string) (*Checklist, error) {
	cl := &Checklist{ID: newID(), Title: title, Items: []ChecklistItem{}}
	_, err := g.db.ExecContext(ctx, `INSERT INTO checklists (id, task_id, title, created_at) VALUES (?, ?, ?, ?)`,
		cl.ID, taskID, title, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert checklist: %w", err)
	}
	return cl, nil
}

func (g *Gateway) CreateChecklistItem(ctx context.Context, checklistID, title string, position int) (*ChecklistItem, error) {
	item := &ChecklistItem{ID: newID(), Title: title, Position: position}
	_, err := g.db.ExecContext(ctx, `INSERT INTO checklist_items (id, checklist_id, title, position) VALUES (?, ?, ?, ?)`,
		item.ID, checklistID, title, position)
	if err != nil {
		return nil, fmt.Errorf("failed to insert checklist item: %w", err)
	}
	return item, nil
}

func (g *Gateway) UpdateChecklistItem(ctx context.Context, id string, checked bool) error {
	if err := execOne(ctx, g.db, `UPDATE checklist_items SET checked = ? WHERE id = ?`, checked, id); err != nil {
		return fmt.Errorf("failed to update checklist item: %w", err)
	}
	return nil
}

// DeleteChecklistItem deletes the item and closes the gap in its checklist.
func (g *Gateway) DeleteChecklistItem(ctx context.Context, id string) error {
	err := g.withTx(ctx, func(tx *sql.Tx) error {
		var checklistID string
		var position int
		err := tx.QueryRowContext(ctx, `SELECT checklist_id, position FROM checklist_items WHERE id = ?`, id).
			Scan(&checklistID, &position)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM checklist_items WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE checklist_items SET position = position - 1 WHERE checklist_id = ? AND position > ?`,
			checklistID, position)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete checklist item: %w", err)
	}
	return nil
}

// SaveChecklistItemOrder writes position i for the i-th item id.
func (g *Gateway) SaveChecklistItemOrder(ctx context.Context, checklistID string, ids []string) error {
	return g.withTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			err := execOne(ctx, tx, `UPDATE checklist_items SET position = ? WHERE id = ? AND checklist_id = ?`,
				i, id, checklistID)
			if err != nil {
				return fmt.Errorf("failed to update position of checklist item %s: %w", id, err)
			}
		}
		return nil
	})
}

func (g *Gateway) CreateComment(ctx context.Context, taskID, userID, content string) (*Comment, error) {
	cm := &Comment{ID: newID(), Content: content, UserID: userID, CreatedAt: time.Now().UTC()}
	_, err := g.db.ExecContext(ctx, `INSERT INTO comments (id, task_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		cm.ID, taskID, userID, content, cm.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return cm, nil
}

func (g *Gateway) DeleteComment(ctx context.Context, id string) error {
	if err := execOne(ctx, g.db, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (g *Gateway) CreateAttachment(ctx context.Context, taskID, name, url string) (*Attachment, error) {
	a := &Attachment{ID: newID(), Name: name, URL: url}
	_, err := g.db.ExecContext(ctx, `INSERT INTO attachments (id, task_id, name, url, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, taskID, name, url, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert attachment: %w", err)
	}
	return a, nil
}

func (g *Gateway) DeleteAttachment(ctx context.Context, id string) error {
	if err := execOne(ctx, g.db, `DELETE FROM attachments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
