package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Gateway persists boards and their nested entities in SQLite. Every
// entity is keyed by a server-assigned id. Callers supply positions; the
// gateway stores them as given and does not order fetched collections.
type Gateway struct {
	db *sql.DB
}

func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

func newID() string {
	return uuid.NewString()
}

// queryAll runs query and hands every row to scan. Rows are closed before
// returning so the single pooled connection is free for the next query.
func queryAll(ctx context.Context, q queryer, query string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execOne runs a statement that must touch exactly one existing row.
func execOne(ctx context.Context, e execer, query string, args ...any) error {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (g *Gateway) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FetchBoard loads the board owned by userID, or failing that a board the
// user is a member of, with all nested entities. It returns ErrNotFound
// when the user has no board.
func (g *Gateway) FetchBoard(ctx context.Context, userID string) (*Board, error) {
	board := &Board{}
	err := g.db.QueryRowContext(ctx, `
		SELECT b.id, b.user_id, b.background FROM boards b
		WHERE b.user_id = ?
		   OR EXISTS (SELECT 1 FROM board_members m WHERE m.board_id = b.id AND m.user_id = ?)
		ORDER BY (b.user_id = ?) DESC, b.created_at DESC
		LIMIT 1`, userID, userID, userID).Scan(&board.ID, &board.OwnerID, &board.Background)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query board: %w", err)
	}

	if err := g.loadBoard(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

type taskRef struct{ col, task int }

type checklistRef struct{ col, task, checklist int }

func (g *Gateway) loadBoard(ctx context.Context, board *Board) error {
	board.Columns = []Column{}
	board.Labels = []Label{}
	board.Members = []BoardMember{}

	columnIdx := make(map[string]int)
	err := queryAll(ctx, g.db, `SELECT id, title, position FROM columns WHERE board_id = ?`,
		func(rows *sql.Rows) error {
			col := Column{Tasks: []Task{}}
			if err := rows.Scan(&col.ID, &col.Title, &col.Position); err != nil {
				return err
			}
			columnIdx[col.ID] = len(board.Columns)
			board.Columns = append(board.Columns, col)
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}

	tasks := make(map[string]taskRef)
	err = queryAll(ctx, g.db, `
		SELECT t.id, t.column_id, t.title, t.description, t.position, t.due_date, t.priority, t.archived
		FROM tasks t JOIN columns c ON c.id = t.column_id
		WHERE c.board_id = ?`,
		func(rows *sql.Rows) error {
			var columnID string
			task := Task{
				Labels:      []Label{},
				Checklists:  []Checklist{},
				Comments:    []Comment{},
				Attachments: []Attachment{},
			}
			if err := rows.Scan(&task.ID, &columnID, &task.Title, &task.Description, &task.Position,
				&task.DueDate, &task.Priority, &task.Archived); err != nil {
				return err
			}
			ci := columnIdx[columnID]
			tasks[task.ID] = taskRef{col: ci, task: len(board.Columns[ci].Tasks)}
			board.Columns[ci].Tasks = append(board.Columns[ci].Tasks, task)
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query tasks: %w", err)
	}

	taskAt := func(id string) *Task {
		ref, ok := tasks[id]
		if !ok {
			return nil
		}
		return &board.Columns[ref.col].Tasks[ref.task]
	}

	err = queryAll(ctx, g.db, `SELECT id, name, color FROM labels WHERE board_id = ? ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var l Label
			if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
				return err
			}
			board.Labels = append(board.Labels, l)
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query labels: %w", err)
	}

	err = queryAll(ctx, g.db, `
		SELECT tl.task_id, l.id, l.name, l.color
		FROM task_labels tl JOIN labels l ON l.id = tl.label_id
		WHERE l.board_id = ? ORDER BY tl.rowid`,
		func(rows *sql.Rows) error {
			var taskID string
			var l Label
			if err := rows.Scan(&taskID, &l.ID, &l.Name, &l.Color); err != nil {
				return err
			}
			if t := taskAt(taskID); t != nil {
				t.Labels = append(t.Labels, l)
			}
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query task labels: %w", err)
	}

	checklists := make(map[string]checklistRef)
	err = queryAll(ctx, g.db, `
		SELECT cl.id, cl.task_id, cl.title
		FROM checklists cl
		JOIN tasks t ON t.id = cl.task_id
		JOIN columns c ON c.id = t.column_id
		WHERE c.board_id = ? ORDER BY cl.created_at, cl.rowid`,
		func(rows *sql.Rows) error {
			var taskID string
			cl := Checklist{Items: []ChecklistItem{}}
			if err := rows.Scan(&cl.ID, &taskID, &cl.Title); err != nil {
				return err
			}
			ref := tasks[taskID]
			t := &board.Columns[ref.col].Tasks[ref.task]
			checklists[cl.ID] = checklistRef{col: ref.col, task: ref.task, checklist: len(t.Checklists)}
			t.Checklists = append(t.Checklists, cl)
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query checklists: %w", err)
	}

	err = queryAll(ctx, g.db, `
		SELECT i.id, i.checklist_id, i.title, i.checked, i.position
		FROM checklist_items i
		JOIN checklists cl ON cl.id = i.checklist_id
		JOIN tasks t ON t.id = cl.task_id
		JOIN columns c ON c.id = t.column_id
		WHERE c.board_id = ?`,
		func(rows *sql.Rows) error {
			var checklistID string
			var item ChecklistItem
			if err := rows.Scan(&item.ID, &checklistID, &item.Title, &item.Checked, &item.Position); err != nil {
				return err
			}
			ref := checklists[checklistID]
			cl := &board.Columns[ref.col].Tasks[ref.task].Checklists[ref.checklist]
			cl.Items = append(cl.Items, item)
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query checklist items: %w", err)
	}

	err = queryAll(ctx, g.db, `
		SELECT cm.id, cm.task_id, cm.user_id, cm.content, cm.created_at
		FROM comments cm
		JOIN tasks t ON t.id = cm.task_id
		JOIN columns c ON c.id = t.column_id
		WHERE c.board_id = ? ORDER BY cm.created_at, cm.rowid`,
		func(rows *sql.Rows) error {
			var taskID string
			var cm Comment
			if err := rows.Scan(&cm.ID, &taskID, &cm.UserID, &cm.Content, &cm.CreatedAt); err != nil {
				return err
			}
			if t := taskAt(taskID); t != nil {
				t.Comments = append(t.Comments, cm)
			}
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query comments: %w", err)
	}

	err = queryAll(ctx, g.db, `
		SELECT a.id, a.task_id, a.name, a.url
		FROM attachments a
		JOIN tasks t ON t.id = a.task_id
		JOIN columns c ON c.id = t.column_id
		WHERE c.board_id = ? ORDER BY a.created_at, a.rowid`,
		func(rows *sql.Rows) error {
			var taskID string
			var a Attachment
			if err := rows.Scan(&a.ID, &taskID, &a.Name, &a.URL); err != nil {
				return err
			}
			if t := taskAt(taskID); t != nil {
				t.Attachments = append(t.Attachments, a)
			}
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query attachments: %w", err)
	}

	err = queryAll(ctx, g.db, `SELECT user_id, role FROM board_members WHERE board_id = ? ORDER BY role DESC, rowid`,
		func(rows *sql.Rows) error {
			var m BoardMember
			if err := rows.Scan(&m.UserID, &m.Role); err != nil {
				return err
			}
			board.Members = append(board.Members, m)
			return nil
		}, board.ID)
	if err != nil {
		return fmt.Errorf("failed to query members: %w", err)
	}

	return nil
}

// CreateBoard creates an empty board owned by userID.
func (g *Gateway) CreateBoard(ctx context.Context, userID string) (*Board, error) {
	board := &Board{
		ID:      newID(),
		OwnerID: userID,
		Columns: []Column{},
		Labels:  []Label{},
		Members: []BoardMember{{UserID: userID, Role: RoleOwner}},
	}

	err := g.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO boards (id, user_id) VALUES (?, ?)`, board.ID, userID); err != nil {
			return fmt.Errorf("failed to insert board: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)`,
			board.ID, userID, RoleOwner); err != nil {
			return fmt.Errorf("failed to insert board owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

// UpdateBackground sets the board's background URL or data URI.
func (g *Gateway) UpdateBackground(ctx context.Context, boardID, background string) error {
	if err := execOne(ctx, g.db, `UPDATE boards SET background = ? WHERE id = ?`, background, boardID); err != nil {
		return fmt.Errorf("failed to update background: %w", err)
	}
	return nil
}

// AddMember adds userID to the board with the given role.
func (g *Gateway) AddMember(ctx context.Context, boardID, userID string, role Role) error {
	_, err := g.db.ExecContext(ctx, `INSERT INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)`,
		boardID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// RemoveMember removes a non-owner member from the board.
func (g *Gateway) RemoveMember(ctx context.Context, boardID, userID string) error {
	err := execOne(ctx, g.db, `DELETE FROM board_members WHERE board_id = ? AND user_id = ? AND role != 'owner'`,
		boardID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}
