package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/ordering"
)

type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusLoading       Status = "loading"
	StatusReady         Status = "ready"
	StatusError         Status = "error"
)

// State is a read-only view of a store.
type State struct {
	Board   *database.Board `json:"board"`
	Status  Status          `json:"status"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
}

// BoardStore owns the in-memory copy of one user's board and is the only
// thing allowed to change it. Mutations run one at a time. Each published
// board is never modified again, so readers always see a whole board.
//
// Creates wait for the gateway to hand back an id before touching local
// state. Every other mutation is applied locally first and rolled back to
// the previous board if the gateway call fails.
type BoardStore struct {
	gateway  Gateway
	notifier Notifier
	files    FileStore

	ops sync.Mutex

	mu     sync.RWMutex
	board  *database.Board
	status Status
	err    string
	userID string
}

// NewBoardStore returns an uninitialized store. notifier and files may be
// nil.
func NewBoardStore(gateway Gateway, notifier Notifier, files FileStore) *BoardStore {
	return &BoardStore{
		gateway:  gateway,
		notifier: notifier,
		files:    files,
		status:   StatusUninitialized,
	}
}

// errUnchanged makes a mutation a silent no-op.
var errUnchanged = errors.New("unchanged")

// Initialize fetches the board userID can see, creating an owned one if
// there is none, and sorts every collection by position. A board already
// loaded stays visible until the fetch succeeds; on failure it is dropped.
func (s *BoardStore) Initialize(ctx context.Context, userID string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.load(ctx, userID)
}

// ensureLoaded is Initialize for callers that only need some board loaded.
// It does nothing when a board is already present.
func (s *BoardStore) ensureLoaded(ctx context.Context, userID string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.current() != nil {
		return nil
	}
	return s.load(ctx, userID)
}

// load must be called with ops held.
func (s *BoardStore) load(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.status, s.err, s.userID = StatusLoading, "", userID
	s.mu.Unlock()

	board, err := s.gateway.FetchBoard(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		board, err = s.gateway.CreateBoard(ctx, userID)
	}
	if err != nil {
		log.Printf("Error initializing board: %v", err)
		opErr := &OpError{Op: "initialize", Kind: KindFetch, Err: err}
		s.mu.Lock()
		s.board, s.status, s.err = nil, StatusError, err.Error()
		s.mu.Unlock()
		return opErr
	}

	ordering.Sort(board)
	s.heal(ctx, board)

	s.mu.Lock()
	s.board, s.status = board, StatusReady
	s.mu.Unlock()
	return nil
}

// heal renumbers containers whose stored positions are not dense and
// writes the repaired order back. Write failures are only logged.
func (s *BoardStore) heal(ctx context.Context, board *database.Board) {
	if ordering.RenumberColumns(board) {
		if err := s.gateway.SaveColumnOrder(ctx, board.ID, board.ColumnOrder()); err != nil {
			log.Printf("Error repairing column positions: %v", err)
		}
	}

	order := make(map[string][]string)
	for i := range board.Columns {
		col := &board.Columns[i]
		if ordering.RenumberTasks(col) {
			order[col.ID] = col.TaskIDs()
		}
		for ti := range col.Tasks {
			for k := range col.Tasks[ti].Checklists {
				cl := &col.Tasks[ti].Checklists[k]
				if ordering.RenumberItems(cl) {
					if err := s.gateway.SaveChecklistItemOrder(ctx, cl.ID, cl.ItemIDs()); err != nil {
						log.Printf("Error repairing checklist positions: %v", err)
					}
				}
			}
		}
	}
	if len(order) > 0 {
		if err := s.gateway.SaveTaskOrder(ctx, order); err != nil {
			log.Printf("Error repairing task positions: %v", err)
		}
	}
}

// Reset drops the loaded board and returns the store to uninitialized.
func (s *BoardStore) Reset() {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	s.board, s.status, s.err, s.userID = nil, StatusUninitialized, "", ""
	s.mu.Unlock()
}

// Members returns a copy of the board's members, or nil when no board is
// loaded.
func (s *BoardStore) Members() []database.BoardMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.board == nil {
		return nil
	}
	return append([]database.BoardMember(nil), s.board.Members...)
}

// State returns a copy of the store's current state.
func (s *BoardStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Board:   s.board.Clone(),
		Status:  s.status,
		Loading: s.status == StatusLoading,
		Error:   s.err,
	}
}

// Board returns a copy of the current board, or nil before a successful
// Initialize.
func (s *BoardStore) Board() *database.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.Clone()
}

func (s *BoardStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *BoardStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// UserID returns the user the store was last initialized for.
func (s *BoardStore) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *BoardStore) current() *database.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

func (s *BoardStore) publish(b *database.Board) {
	s.mu.Lock()
	s.board = b
	s.mu.Unlock()
}

// swap replaces old with b. It reports false when the board is no longer
// old, which happens when a peer's board was adopted in between.
func (s *BoardStore) swap(old, b *database.Board) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board != old {
		return false
	}
	s.board = b
	return true
}

// settle publishes result once the gateway has accepted a change and tells
// the notifier. If a peer's board was adopted after seen was read, change
// is applied again on top of the adopted board so neither edit is lost.
// When it no longer applies the adopted board is kept as is.
func (s *BoardStore) settle(seen, result *database.Board, change func(b *database.Board) error) {
	for {
		latest := s.current()
		if latest == nil {
			return
		}
		if latest != seen {
			rebased := latest.Clone()
			if err := change(rebased); err != nil {
				return
			}
			seen, result = latest, rebased
		}
		if s.swap(seen, result) {
			if s.notifier != nil {
				s.notifier.Publish(result.ID, result)
			}
			return
		}
	}
}

// fail records a gateway failure and wraps it for the caller.
func (s *BoardStore) fail(op string, err error) error {
	log.Printf("Error in %s: %v", op, err)
	s.mu.Lock()
	s.status, s.err = StatusError, err.Error()
	s.mu.Unlock()
	return &OpError{Op: op, Kind: KindMutation, Err: err}
}

// mutate runs an optimistic update. change edits a private copy of the
// board, which is published before persist runs. If persist fails the
// previous board is restored. change may return errUnchanged to skip both
// steps.
func (s *BoardStore) mutate(ctx context.Context, op string, change func(b *database.Board) error, persist func(ctx context.Context, b *database.Board) error) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	var prev, next *database.Board
	for {
		prev = s.current()
		if prev == nil {
			return ErrNoBoard
		}
		next = prev.Clone()
		if err := change(next); err != nil {
			if errors.Is(err, errUnchanged) {
				return nil
			}
			return err
		}
		if s.swap(prev, next) {
			break
		}
	}

	if err := persist(ctx, next); err != nil {
		s.swap(next, prev)
		return s.fail(op, err)
	}
	s.settle(next, next, change)
	return nil
}

// create runs a gateway-first insert. insert talks to the gateway with the
// current board and records its own failures; the returned apply merges
// the new entity into a copy of the board, looking containers up by id.
func (s *BoardStore) create(ctx context.Context, insert func(ctx context.Context, b *database.Board) (func(next *database.Board) error, error)) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	cur := s.current()
	if cur == nil {
		return ErrNoBoard
	}
	apply, err := insert(ctx, cur)
	if err != nil {
		return err
	}

	next := cur.Clone()
	if err := apply(next); err != nil {
		return err
	}
	s.settle(cur, next, apply)
	return nil
}

// AddColumn creates a column at the end of the board.
func (s *BoardStore) AddColumn(ctx context.Context, title string) (*database.Column, error) {
	var created database.Column
	err := s.create(ctx, func(ctx context.Context, b *database.Board) (func(*database.Board) error, error) {
		col, err := s.gateway.CreateColumn(ctx, b.ID, title, ordering.Append(len(b.Columns)))
		if err != nil {
			return nil, s.fail("addColumn", err)
		}
		if col.Tasks == nil {
			col.Tasks = []database.Task{}
		}
		created = col.Clone()
		return func(next *database.Board) error {
			next.Columns = append(next.Columns, col.Clone())
			ordering.RenumberColumns(next)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateColumn renames a column.
func (s *BoardStore) UpdateColumn(ctx context.Context, id, title string) error {
	return s.mutate(ctx, "updateColumn",
		func(b *database.Board) error {
			ci := findColumn(b, id)
			if ci < 0 {
				return ErrColumnNotFound
			}
			b.Columns[ci].Title = title
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.UpdateColumn(ctx, id, title)
		})
}

// DeleteColumn removes a column and its tasks. Deleting a column that is
// not on the board does nothing.
func (s *BoardStore) DeleteColumn(ctx context.Context, id string) error {
	return s.mutate(ctx, "deleteColumn",
		func(b *database.Board) error {
			ci := findColumn(b, id)
			if ci < 0 {
				return errUnchanged
			}
			b.Columns = ordering.Remove(b.Columns, ci)
			ordering.RenumberColumns(b)
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.DeleteColumn(ctx, id)
		})
}

// AddTask creates a task at the end of the column.
func (s *BoardStore) AddTask(ctx context.Context, columnID, title string) (*database.Task, error) {
	var created database.Task
	err := s.create(ctx, func(ctx context.Context, b *database.Board) (func(*database.Board) error, error) {
		ci := findColumn(b, columnID)
		if ci < 0 {
			return nil, ErrColumnNotFound
		}
		task, err := s.gateway.CreateTask(ctx, columnID, title, ordering.Append(len(b.Columns[ci].Tasks)))
		if err != nil {
			return nil, s.fail("addTask", err)
		}
		created = task.Clone()
		return func(next *database.Board) error {
			ci := findColumn(next, columnID)
			if ci < 0 {
				return ErrColumnNotFound
			}
			col := &next.Columns[ci]
			col.Tasks = append(col.Tasks, task.Clone())
			ordering.RenumberTasks(col)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask merges patch into the task, wherever it lives. Labels in the
// patch must exist on the board and are replaced by the board's copies.
func (s *BoardStore) UpdateTask(ctx context.Context, id string, patch database.TaskPatch) error {
	if patch.Priority != nil && !patch.Priority.Valid() {
		return ErrInvalidPriority
	}
	return s.mutate(ctx, "updateTask",
		func(b *database.Board) error {
			ci, ti := findTask(b, id)
			if ci < 0 {
				return ErrTaskNotFound
			}
			if patch.Labels != nil {
				labels, err := boardLabels(b, *patch.Labels)
				if err != nil {
					return err
				}
				patch.Labels = &labels
			}
			patch.Apply(&b.Columns[ci].Tasks[ti])
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.UpdateTask(ctx, id, patch)
		})
}

// DeleteTask removes a task from its column. Deleting a task that is not in
// the column does nothing.
func (s *BoardStore) DeleteTask(ctx context.Context, columnID, taskID string) error {
	return s.mutate(ctx, "deleteTask",
		func(b *database.Board) error {
			ci := findColumn(b, columnID)
			if ci < 0 {
				return errUnchanged
			}
			col := &b.Columns[ci]
			ti := ordering.IndexOf(col.TaskIDs(), taskID)
			if ti < 0 {
				return errUnchanged
			}
			col.Tasks = ordering.Remove(col.Tasks, ti)
			ordering.RenumberTasks(col)
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.DeleteTask(ctx, taskID)
		})
}

// ReorderColumns puts the columns in the given order and persists their
// new positions. ids must be a permutation of the current column ids; the
// current order is a no-op.
func (s *BoardStore) ReorderColumns(ctx context.Context, ids []string) error {
	return s.mutate(ctx, "reorderColumns",
		func(b *database.Board) error {
			order := b.ColumnOrder()
			if !ordering.IsPermutation(order, ids) {
				return ErrNotPermutation
			}
			if equal(order, ids) {
				return errUnchanged
			}
			byID := make(map[string]database.Column, len(b.Columns))
			for _, col := range b.Columns {
				byID[col.ID] = col
			}
			columns := make([]database.Column, len(ids))
			for i, id := range ids {
				columns[i] = byID[id]
			}
			b.Columns = columns
			ordering.RenumberColumns(b)
			return nil
		},
		func(ctx context.Context, b *database.Board) error {
			return s.gateway.SaveColumnOrder(ctx, b.ID, b.ColumnOrder())
		})
}

// ReorderTasks puts a column's tasks in the given order and persists their
// new positions. ids must be a permutation of the column's task ids.
func (s *BoardStore) ReorderTasks(ctx context.Context, columnID string, ids []string) error {
	return s.mutate(ctx, "reorderTasks",
		func(b *database.Board) error {
			ci := findColumn(b, columnID)
			if ci < 0 {
				return ErrColumnNotFound
			}
			col := &b.Columns[ci]
			order := col.TaskIDs()
			if !ordering.IsPermutation(order, ids) {
				return ErrNotPermutation
			}
			if equal(order, ids) {
				return errUnchanged
			}
			byID := make(map[string]database.Task, len(col.Tasks))
			for _, task := range col.Tasks {
				byID[task.ID] = task
			}
			tasks := make([]database.Task, len(ids))
			for i, id := range ids {
				tasks[i] = byID[id]
			}
			col.Tasks = tasks
			ordering.RenumberTasks(col)
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.SaveTaskOrder(ctx, map[string][]string{columnID: ids})
		})
}

// PreviewMove returns the board as it would look after m without changing
// anything. It backs drag-over feedback.
func (s *BoardStore) PreviewMove(m ordering.Move) *database.Board {
	cur := s.current()
	if res, ok := ordering.Reconcile(cur, m); ok {
		return res.Board
	}
	return cur.Clone()
}

// CommitMove applies a finished drag and persists the positions of every
// container it touched. It reports false when the drag was a no-op.
func (s *BoardStore) CommitMove(ctx context.Context, m ordering.Move) (bool, error) {
	var containers []string
	err := s.mutate(ctx, "moveItem",
		func(b *database.Board) error {
			res, ok := ordering.Reconcile(b, m)
			if !ok {
				return errUnchanged
			}
			*b = *res.Board
			containers = res.Containers
			return nil
		},
		func(ctx context.Context, b *database.Board) error {
			if m.Kind == ordering.KindColumn {
				return s.gateway.SaveColumnOrder(ctx, b.ID, b.ColumnOrder())
			}
			order := make(map[string][]string, len(containers))
			for _, id := range containers {
				order[id] = b.Columns[findColumn(b, id)].TaskIDs()
			}
			return s.gateway.SaveTaskOrder(ctx, order)
		})
	if err != nil {
		return false, err
	}
	return containers != nil, nil
}

// SetBackground changes the board background.
func (s *BoardStore) SetBackground(ctx context.Context, background string) error {
	return s.mutate(ctx, "setBackground",
		func(b *database.Board) error {
			b.Background = background
			return nil
		},
		func(ctx context.Context, b *database.Board) error {
			return s.gateway.UpdateBackground(ctx, b.ID, background)
		})
}

// FindTask returns a task and the id of the column holding it.
func (s *BoardStore) FindTask(id string) (database.Task, string, bool) {
	b := s.current()
	if b == nil {
		return database.Task{}, "", false
	}
	ci, ti := findTask(b, id)
	if ci < 0 {
		return database.Task{}, "", false
	}
	return b.Columns[ci].Tasks[ti].Clone(), b.Columns[ci].ID, true
}

// ArchivedTasks returns every archived task on the board in board order.
func (s *BoardStore) ArchivedTasks() []database.Task {
	return s.filterTasks(func(t *database.Task) bool { return t.Archived })
}

// SearchTasks returns tasks whose title or description contains query,
// ignoring case. A blank query matches nothing.
func (s *BoardStore) SearchTasks(query string) []database.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []database.Task{}
	}
	return s.filterTasks(func(t *database.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
	})
}

func (s *BoardStore) filterTasks(keep func(t *database.Task) bool) []database.Task {
	out := []database.Task{}
	b := s.current()
	if b == nil {
		return out
	}
	for ci := range b.Columns {
		for ti := range b.Columns[ci].Tasks {
			if t := &b.Columns[ci].Tasks[ti]; keep(t) {
				out = append(out, t.Clone())
			}
		}
	}
	return out
}

func findColumn(b *database.Board, id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

func findTask(b *database.Board, id string) (col, idx int) {
	for ci := range b.Columns {
		for ti := range b.Columns[ci].Tasks {
			if b.Columns[ci].Tasks[ti].ID == id {
				return ci, ti
			}
		}
	}
	return -1, -1
}

// boardLabels resolves labels by id against the board's label set.
func boardLabels(b *database.Board, labels []database.Label) ([]database.Label, error) {
	out := make([]database.Label, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l.ID] {
			continue
		}
		found := false
		for _, bl := range b.Labels {
			if bl.ID == l.ID {
				out = append(out, bl)
				found = true
				break
			}
		}
		if !found {
			return nil, ErrLabelNotFound
		}
		seen[l.ID] = true
	}
	return out, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
