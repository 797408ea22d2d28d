package services

import (
	"context"
	"io"

	"github.com/CrowderSoup/kanban-board/database"
)

// Gateway is the remote keyed-record store behind a BoardStore. Create
// calls return the entity with its server-assigned id. Fetched collections
// come back in no particular order. Deletes close the position gap they
// leave among their siblings.
type Gateway interface {
	FetchBoard(ctx context.Context, userID string) (*database.Board, error)
	CreateBoard(ctx context.Context, userID string) (*database.Board, error)
	UpdateBackground(ctx context.Context, boardID, background string) error
	AddMember(ctx context.Context, boardID, userID string, role database.Role) error
	RemoveMember(ctx context.Context, boardID, userID string) error

	CreateColumn(ctx context.Context, boardID, title string, position int) (*database.Column, error)
	UpdateColumn(ctx context.Context, id, title string) error
	DeleteColumn(ctx context.Context, id string) error
	SaveColumnOrder(ctx context.Context, boardID string, ids []string) error

	CreateTask(ctx context.Context, columnID, title string, position int) (*database.Task, error)
	UpdateTask(ctx context.Context, id string, patch database.TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
	SaveTaskOrder(ctx context.Context, order map[string][]string) error

	CreateLabel(ctx context.Context, boardID, name, color string) (*database.Label, error)
	DeleteLabel(ctx context.Context, id string) error

	CreateChecklist(ctx context.Context, taskID, title string) (*database.Checklist, error)
	CreateChecklistItem(ctx context.Context, checklistID, title string, position int) (*database.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, id string, checked bool) error
	DeleteChecklistItem(ctx context.Context, id string) error
	SaveChecklistItemOrder(ctx context.Context, checklistID string, ids []string) error

	CreateComment(ctx context.Context, taskID, userID, content string) (*database.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	CreateAttachment(ctx context.Context, taskID, name, url string) (*database.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}

var _ Gateway = (*database.Gateway)(nil)

// Notifier is told about every board state a store commits.
type Notifier interface {
	Publish(boardID string, board *database.Board)
}

// FileStore keeps attachment files and hands back the URL they are served
// from.
type FileStore interface {
	Save(ctx context.Context, taskID, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
}
