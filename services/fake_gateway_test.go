package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/CrowderSoup/kanban-board/database"
)

var errGatewayDown = errors.New("gateway unavailable")

// fakeGateway keeps a single board in memory. Every call is recorded by
// method name, and failOn makes the named method return its error.
type fakeGateway struct {
	mu     sync.Mutex
	board  *database.Board
	seq    int
	calls  []string
	failOn map[string]error

	columnOrders [][]string
	taskOrders   []map[string][]string
	itemOrders   map[string][]string
}

func newFakeGateway(board *database.Board) *fakeGateway {
	return &fakeGateway{
		board:      board,
		failOn:     make(map[string]error),
		itemOrders: make(map[string][]string),
	}
}

func (g *fakeGateway) call(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
	return g.failOn[name]
}

func (g *fakeGateway) fail(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failOn[name] = err
}

func (g *fakeGateway) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (g *fakeGateway) id(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *fakeGateway) FetchBoard(ctx context.Context, userID string) (*database.Board, error) {
	if err := g.call("FetchBoard"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.board == nil {
		return nil, database.ErrNotFound
	}
	return g.board.Clone(), nil
}

func (g *fakeGateway) CreateBoard(ctx context.Context, userID string) (*database.Board, error) {
	if err := g.call("CreateBoard"); err != nil {
		return nil, err
	}
	board := &database.Board{
		ID:      g.id("board"),
		OwnerID: userID,
		Columns: []database.Column{},
		Labels:  []database.Label{},
		Members: []database.BoardMember{{UserID: userID, Role: database.RoleOwner}},
	}
	g.mu.Lock()
	g.board = board.Clone()
	g.mu.Unlock()
	return board, nil
}

func (g *fakeGateway) UpdateBackground(ctx context.Context, boardID, background string) error {
	return g.call("UpdateBackground")
}

func (g *fakeGateway) AddMember(ctx context.Context, boardID, userID string, role database.Role) error {
	return g.call("AddMember")
}

func (g *fakeGateway) RemoveMember(ctx context.Context, boardID, userID string) error {
	return g.call("RemoveMember")
}

func (g *fakeGateway) CreateColumn(ctx context.Context, boardID, title string, position int) (*database.Column, error) {
	if err := g.call("CreateColumn"); err != nil {
		return nil, err
	}
	return &database.Column{ID: g.id("col"), Title: title, Position: position}, nil
}

func (g *fakeGateway) UpdateColumn(ctx context.Context, id, title string) error {
	return g.call("UpdateColumn")
}

func (g *fakeGateway) DeleteColumn(ctx context.Context, id string) error {
	return g.call("DeleteColumn")
}

func (g *fakeGateway) SaveColumnOrder(ctx context.Context, boardID string, ids []string) error {
	if err := g.call("SaveColumnOrder"); err != nil {
		return err
	}
	g.mu.Lock()
	g.columnOrders = append(g.columnOrders, append([]string{}, ids...))
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) CreateTask(ctx context.Context, columnID, title string, position int) (*database.Task, error) {
	if err := g.call("CreateTask"); err != nil {
		return nil, err
	}
	return &database.Task{ID: g.id("task"), Title: title, Position: position}, nil
}

func (g *fakeGateway) UpdateTask(ctx context.Context, id string, patch database.TaskPatch) error {
	return g.call("UpdateTask")
}

func (g *fakeGateway) DeleteTask(ctx context.Context, id string) error {
	return g.call("DeleteTask")
}

func (g *fakeGateway) SaveTaskOrder(ctx context.Context, order map[string][]string) error {
	if err := g.call("SaveTaskOrder"); err != nil {
		return err
	}
	g.mu.Lock()
	g.taskOrders = append(g.taskOrders, order)
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) CreateLabel(ctx context.Context, boardID, name, color string) (*database.Label, error) {
	if err := g.call("CreateLabel"); err != nil {
		return nil, err
	}
	return &database.Label{ID: g.id("label"), Name: name, Color: color}, nil
}

func (g *fakeGateway) DeleteLabel(ctx context.Context, id string) error {
	return g.call("DeleteLabel")
}

func (g *fakeGateway) CreateChecklist(ctx context.Context, taskID, title string) (*database.Checklist, error) {
	if err := g.call("CreateChecklist"); err != nil {
		return nil, err
	}
	return &database.Checklist{ID: g.id("checklist"), Title: title}, nil
}

func (g *fakeGateway) CreateChecklistItem(ctx context.Context, checklistID, title string, position int) (*database.ChecklistItem, error) {
	if err := g.call("CreateChecklistItem"); err != nil {
		return nil, err
	}
	return &database.ChecklistItem{ID: g.id("item"), Title: title, Position: position}, nil
}

func (g *fakeGateway) UpdateChecklistItem(ctx context.Context, id string, checked bool) error {
	return g.call("UpdateChecklistItem")
}

func (g *fakeGateway) DeleteChecklistItem(ctx context.Context, id string) error {
	return g.call("DeleteChecklistItem")
}

func (g *fakeGateway) SaveChecklistItemOrder(ctx context.Context, checklistID string, ids []string) error {
	if err := g.call("SaveChecklistItemOrder"); err != nil {
		return err
	}
	g.mu.Lock()
	g.itemOrders[checklistID] = append([]string{}, ids...)
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) CreateComment(ctx context.Context, taskID, userID, content string) (*database.Comment, error) {
	if err := g.call("CreateComment"); err != nil {
		return nil, err
	}
	return &database.Comment{ID: g.id("comment"), Content: content, UserID: userID, CreatedAt: time.Now()}, nil
}

func (g *fakeGateway) DeleteComment(ctx context.Context, id string) error {
	return g.call("DeleteComment")
}

func (g *fakeGateway) CreateAttachment(ctx context.Context, taskID, name, url string) (*database.Attachment, error) {
	if err := g.call("CreateAttachment"); err != nil {
		return nil, err
	}
	return &database.Attachment{ID: g.id("attachment"), Name: name, URL: url}, nil
}

func (g *fakeGateway) DeleteAttachment(ctx context.Context, id string) error {
	return g.call("DeleteAttachment")
}

type recordingNotifier struct {
	mu     sync.Mutex
	boards []*database.Board
}

func (n *recordingNotifier) Publish(boardID string, board *database.Board) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.boards = append(n.boards, board)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.boards)
}

type memoryFileStore struct {
	files   map[string][]byte
	removed []string
	saveErr error
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{files: make(map[string][]byte)}
}

func (m *memoryFileStore) Save(ctx context.Context, taskID, name string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "/uploads/" + taskID + "/" + name
	m.files[url] = b
	return url, nil
}

func (m *memoryFileStore) Remove(ctx context.Context, url string) error {
	delete(m.files, url)
	m.removed = append(m.removed, url)
	return nil
}

// createTestBoard returns a board with columns A=[t1,t2,t3], B=[t4,t5] and
// an empty C, plus one label and the owner membership.
func createTestBoard() *database.Board {
	task := func(id string, pos int) database.Task {
		return database.Task{ID: id, Title: "Task " + id, Position: pos}
	}
	return &database.Board{
		ID:      "board-1",
		OwnerID: "owner@example.com",
		Columns: []database.Column{
			{ID: "A", Title: "To Do", Position: 0, Tasks: []database.Task{task("t1", 0), task("t2", 1), task("t3", 2)}},
			{ID: "B", Title: "Doing", Position: 1, Tasks: []database.Task{task("t4", 0), task("t5", 1)}},
			{ID: "C", Title: "Done", Position: 2, Tasks: []database.Task{}},
		},
		Labels:  []database.Label{{ID: "l1", Name: "bug", Color: "red"}},
		Members: []database.BoardMember{{UserID: "owner@example.com", Role: database.RoleOwner}},
	}
}
