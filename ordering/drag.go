package ordering

import "github.com/CrowderSoup/kanban-board/database"

type Kind string

const (
	KindColumn Kind = "column"
	KindTask   Kind = "task"
)

// Target is a drop location: a container and the index the dragged item
// should occupy in it.
type Target struct {
	ContainerID string `json:"containerId"`
	Index       int    `json:"index"`
}

// Move describes a drag gesture. A nil Destination means the item was
// dropped outside any valid target.
type Move struct {
	ItemID      string  `json:"itemId"`
	Kind        Kind    `json:"kind"`
	SourceID    string  `json:"sourceId,omitempty"`
	Destination *Target `json:"destination"`
}

// Result is the board after a move. Containers lists the containers whose
// order changed: the board id for a column move, or one or two column ids
// for a task move (source first).
type Result struct {
	Board      *database.Board
	Containers []string
}

// Reconcile computes the board that results from applying m to b. It
// reports false, leaving b untouched, when the move is a no-op: no
// destination, an item or container that cannot be found, or a drop on the
// item's current slot. The item is located by id; a stale SourceID is
// ignored.
func Reconcile(b *database.Board, m Move) (Result, bool) {
	if b == nil || m.Destination == nil {
		return Result{}, false
	}

	switch m.Kind {
	case KindColumn:
		return reconcileColumn(b, m)
	case KindTask:
		return reconcileTask(b, m)
	}
	return Result{}, false
}

func reconcileColumn(b *database.Board, m Move) (Result, bool) {
	if m.Destination.ContainerID != "" && m.Destination.ContainerID != b.ID {
		return Result{}, false
	}
	order := b.ColumnOrder()
	from := IndexOf(order, m.ItemID)
	if from < 0 {
		return Result{}, false
	}
	to := clamp(m.Destination.Index, 0, len(order)-1)
	if from == to {
		return Result{}, false
	}

	next := b.Clone()
	next.Columns = Shift(next.Columns, from, to)
	RenumberColumns(next)
	return Result{Board: next, Containers: []string{b.ID}}, true
}

func reconcileTask(b *database.Board, m Move) (Result, bool) {
	src, from := locateTask(b, m.ItemID)
	if src < 0 {
		return Result{}, false
	}
	dst := columnIndex(b, m.Destination.ContainerID)
	if dst < 0 {
		return Result{}, false
	}

	next := b.Clone()
	if src == dst {
		col := &next.Columns[src]
		to := clamp(m.Destination.Index, 0, len(col.Tasks)-1)
		if from == to {
			return Result{}, false
		}
		col.Tasks = Shift(col.Tasks, from, to)
		RenumberTasks(col)
		return Result{Board: next, Containers: []string{col.ID}}, true
	}

	source, dest := &next.Columns[src], &next.Columns[dst]
	task := source.Tasks[from]
	source.Tasks = Remove(source.Tasks, from)
	dest.Tasks = Insert(dest.Tasks, m.Destination.Index, task)
	RenumberTasks(source)
	RenumberTasks(dest)
	return Result{Board: next, Containers: []string{source.ID, dest.ID}}, true
}

// ResolveOver turns a hovered element into a drop target. For columns,
// overID is the hovered column. For tasks, overID is either a task, whose
// slot becomes the target, or a column, which targets its end. It returns
// nil when overID is not on the board.
func ResolveOver(b *database.Board, kind Kind, overID string) *Target {
	if b == nil || overID == "" {
		return nil
	}
	switch kind {
	case KindColumn:
		if i := columnIndex(b, overID); i >= 0 {
			return &Target{ContainerID: b.ID, Index: i}
		}
	case KindTask:
		if ci, ti := locateTask(b, overID); ci >= 0 {
			return &Target{ContainerID: b.Columns[ci].ID, Index: ti}
		}
		if ci := columnIndex(b, overID); ci >= 0 {
			return &Target{ContainerID: overID, Index: len(b.Columns[ci].Tasks)}
		}
	}
	return nil
}

func locateTask(b *database.Board, taskID string) (col, idx int) {
	for ci := range b.Columns {
		for ti := range b.Columns[ci].Tasks {
			if b.Columns[ci].Tasks[ti].ID == taskID {
				return ci, ti
			}
		}
	}
	return -1, -1
}

func columnIndex(b *database.Board, columnID string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == columnID {
			return i
		}
	}
	return -1
}
