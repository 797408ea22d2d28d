package ordering

import (
	"fmt"

	"github.com/CrowderSoup/kanban-board/database"
)

// Rule names the ordering invariant a board violates.
type Rule string

const (
	RuleDuplicateColumn Rule = "DUPLICATE_COLUMN"
	RuleDuplicateTask   Rule = "DUPLICATE_TASK"
	RuleDuplicateItem   Rule = "DUPLICATE_CHECKLIST_ITEM"
	RuleColumnPosition  Rule = "COLUMN_POSITION"
	RuleTaskPosition    Rule = "TASK_POSITION"
	RuleItemPosition    Rule = "CHECKLIST_ITEM_POSITION"
	RuleUnknownLabel    Rule = "UNKNOWN_LABEL"
)

// InvariantError reports the first violated invariant.
type InvariantError struct {
	Rule        Rule
	ContainerID string
	ItemID      string
	Detail      string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s (container=%s, item=%s)", e.Rule, e.Detail, e.ContainerID, e.ItemID)
}

// Check verifies that every container on the board is gap-free and
// zero-based, that no id appears twice, and that task labels reference the
// board's label set.
func Check(b *database.Board) error {
	labels := make(map[string]bool, len(b.Labels))
	for _, l := range b.Labels {
		labels[l.ID] = true
	}

	columns := make(map[string]bool, len(b.Columns))
	tasks := make(map[string]string)
	items := make(map[string]bool)

	for ci, col := range b.Columns {
		if columns[col.ID] {
			return &InvariantError{Rule: RuleDuplicateColumn, ContainerID: b.ID, ItemID: col.ID, Detail: "column appears twice"}
		}
		columns[col.ID] = true
		if col.Position != ci {
			return &InvariantError{Rule: RuleColumnPosition, ContainerID: b.ID, ItemID: col.ID,
				Detail: fmt.Sprintf("position %d at index %d", col.Position, ci)}
		}

		for ti, task := range col.Tasks {
			if owner, ok := tasks[task.ID]; ok {
				return &InvariantError{Rule: RuleDuplicateTask, ContainerID: col.ID, ItemID: task.ID,
					Detail: fmt.Sprintf("task also held by column %s", owner)}
			}
			tasks[task.ID] = col.ID
			if task.Position != ti {
				return &InvariantError{Rule: RuleTaskPosition, ContainerID: col.ID, ItemID: task.ID,
					Detail: fmt.Sprintf("position %d at index %d", task.Position, ti)}
			}
			for _, l := range task.Labels {
				if !labels[l.ID] {
					return &InvariantError{Rule: RuleUnknownLabel, ContainerID: task.ID, ItemID: l.ID,
						Detail: "label is not defined on the board"}
				}
			}

			for _, cl := range task.Checklists {
				for ii, item := range cl.Items {
					if items[item.ID] {
						return &InvariantError{Rule: RuleDuplicateItem, ContainerID: cl.ID, ItemID: item.ID,
							Detail: "checklist item appears twice"}
					}
					items[item.ID] = true
					if item.Position != ii {
						return &InvariantError{Rule: RuleItemPosition, ContainerID: cl.ID, ItemID: item.ID,
							Detail: fmt.Sprintf("position %d at index %d", item.Position, ii)}
					}
				}
			}
		}
	}
	return nil
}
