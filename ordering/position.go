// Package ordering keeps the ordered collections of a board consistent:
// position allocation, array moves, drag reconciliation and the invariant
// checker. Nothing in here performs I/O.
package ordering

import (
	"sort"

	"github.com/CrowderSoup/kanban-board/database"
)

// Append returns the position for an item appended to a container that
// currently holds n items.
func Append(n int) int {
	return n
}

// Renumber assigns 0..n-1 to ids in order.
func Renumber(ids []string) map[string]int {
	positions := make(map[string]int, len(ids))
	for i, id := range ids {
		positions[id] = i
	}
	return positions
}

// Dense reports whether positions are exactly 0..n-1 in order.
func Dense(positions []int) bool {
	for i, p := range positions {
		if p != i {
			return false
		}
	}
	return true
}

// RenumberColumns sets each column's position to its index and reports
// whether anything changed.
func RenumberColumns(b *database.Board) bool {
	current := make([]int, len(b.Columns))
	for i, c := range b.Columns {
		current[i] = c.Position
	}
	if Dense(current) {
		return false
	}
	positions := Renumber(b.ColumnOrder())
	for i := range b.Columns {
		b.Columns[i].Position = positions[b.Columns[i].ID]
	}
	return true
}

// RenumberTasks sets each task's position to its index within the column.
func RenumberTasks(col *database.Column) bool {
	current := make([]int, len(col.Tasks))
	for i, t := range col.Tasks {
		current[i] = t.Position
	}
	if Dense(current) {
		return false
	}
	positions := Renumber(col.TaskIDs())
	for i := range col.Tasks {
		col.Tasks[i].Position = positions[col.Tasks[i].ID]
	}
	return true
}

// RenumberItems sets each checklist item's position to its index.
func RenumberItems(cl *database.Checklist) bool {
	current := make([]int, len(cl.Items))
	for i, item := range cl.Items {
		current[i] = item.Position
	}
	if Dense(current) {
		return false
	}
	positions := Renumber(cl.ItemIDs())
	for i := range cl.Items {
		cl.Items[i].Position = positions[cl.Items[i].ID]
	}
	return true
}

// Sort orders columns, tasks and checklist items by ascending position.
// Items with equal positions keep their fetched order.
func Sort(b *database.Board) {
	sort.SliceStable(b.Columns, func(i, j int) bool {
		return b.Columns[i].Position < b.Columns[j].Position
	})
	for ci := range b.Columns {
		tasks := b.Columns[ci].Tasks
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Position < tasks[j].Position
		})
		for ti := range tasks {
			for k := range tasks[ti].Checklists {
				items := tasks[ti].Checklists[k].Items
				sort.SliceStable(items, func(i, j int) bool {
					return items[i].Position < items[j].Position
				})
			}
		}
	}
}
