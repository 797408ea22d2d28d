package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/ordering"
)

// CreateLabel adds a label to the board's label set.
func (s *BoardStore) CreateLabel(ctx context.Context, name, color string) (*database.Label, error) {
	var created database.Label
	err := s.create(ctx, func(ctx context.Context, b *database.Board) (func(*database.Board) error, error) {
		label, err := s.gateway.CreateLabel(ctx, b.ID, name, color)
		if err != nil {
			return nil, s.fail("createLabel", err)
		}
		created = *label
		return func(next *database.Board) error {
			next.Labels = append(next.Labels, *label)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteLabel removes a label from the board and from every task that
// carries it.
func (s *BoardStore) DeleteLabel(ctx context.Context, id string) error {
	return s.mutate(ctx, "deleteLabel",
		func(b *database.Board) error {
			li := -1
			for i, l := range b.Labels {
				if l.ID == id {
					li = i
					break
				}
			}
			if li < 0 {
				return errUnchanged
			}
			b.Labels = ordering.Remove(b.Labels, li)
			for ci := range b.Columns {
				for ti := range b.Columns[ci].Tasks {
					t := &b.Columns[ci].Tasks[ti]
					kept := t.Labels[:0]
					for _, l := range t.Labels {
						if l.ID != id {
							kept = append(kept, l)
						}
					}
					t.Labels = kept
				}
			}
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.DeleteLabel(ctx, id)
		})
}

// AddChecklist attaches an empty checklist to a task.
func (s *BoardStore) AddChecklist(ctx context.Context, taskID, title string) (*database.Checklist, error) {
	var created database.Checklist
	err := s.create(ctx, func(ctx context.Context, b *database.Board) (func(*database.Board) error, error) {
		if ci, _ := findTask(b, taskID); ci < 0 {
			return nil, ErrTaskNotFound
		}
		cl, err := s.gateway.CreateChecklist(ctx, taskID, title)
		if err != nil {
			return nil, s.fail("addChecklist", err)
		}
		if cl.Items == nil {
			cl.Items = []database.ChecklistItem{}
		}
		created = *cl
		return func(next *database.Board) error {
			ci, ti := findTask(next, taskID)
			if ci < 0 {
				return ErrTaskNotFound
			}
			t := &next.Columns[ci].Tasks[ti]
			t.Checklists = append(t.Checklists, *cl)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// AddChecklistItem appends an unchecked item to a checklist.
func (s *BoardStore) AddChecklistItem(ctx context.Context, checklistID, title string) (*database.ChecklistItem, error) {
	var created database.ChecklistItem
	err := s.create(ctx, func(ctx context.Context, b *database.Board) (func(*database.Board) error, error) {
		ci, ti, k := findChecklist(b, checklistID)
		if ci < 0 {
			return nil, ErrChecklistNotFound
		}
		position := ordering.Append(len(b.Columns[ci].Tasks[ti].Checklists[k].Items))
		item, err := s.gateway.CreateChecklistItem(ctx, checklistID, title, position)
		if err != nil {
			return nil, s.fail("addChecklistItem", err)
		}
		created = *item
		return func(next *database.Board) error {
			ci, ti, k := findChecklist(next, checklistID)
			if ci < 0 {
				return ErrChecklistNotFound
			}
			cl := &next.Columns[ci].Tasks[ti].Checklists[k]
			cl.Items = append(cl.Items, *item)
			ordering.RenumberItems(cl)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ToggleChecklistItem sets an item's checked flag.
func (s *BoardStore) ToggleChecklistItem(ctx context.Context, itemID string, checked bool) error {
	return s.mutate(ctx, "toggleChecklistItem",
		func(b *database.Board) error {
			ci, ti, k, ii := findChecklistItem(b, itemID)
			if ci < 0 {
				return ErrChecklistItemNotFound
			}
			b.Columns[ci].Tasks[ti].Checklists[k].Items[ii].Checked = checked
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.UpdateChecklistItem(ctx, itemID, checked)
		})
}

// DeleteChecklistItem removes an item and closes the gap it leaves.
func (s *BoardStore) DeleteChecklistItem(ctx context.Context, itemID string) error {
	return s.mutate(ctx, "deleteChecklistItem",
		func(b *database.Board) error {
			ci, ti, k, ii := findChecklistItem(b, itemID)
			if ci < 0 {
				return errUnchanged
			}
			cl := &b.Columns[ci].Tasks[ti].Checklists[k]
			cl.Items = ordering.Remove(cl.Items, ii)
			ordering.RenumberItems(cl)
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.DeleteChecklistItem(ctx, itemID)
		})
}

// ReorderChecklistItems puts a checklist's items in the given order.
func (s *BoardStore) ReorderChecklistItems(ctx context.Context, checklistID string, ids []string) error {
	return s.mutate(ctx, "reorderChecklistItems",
		func(b *database.Board) error {
			ci, ti, k := findChecklist(b, checklistID)
			if ci < 0 {
				return ErrChecklistNotFound
			}
			cl := &b.Columns[ci].Tasks[ti].Checklists[k]
			order := cl.ItemIDs()
			if !ordering.IsPermutation(order, ids) {
				return ErrNotPermutation
			}
			if equal(order, ids) {
				return errUnchanged
			}
			byID := make(map[string]database.ChecklistItem, len(cl.Items))
			for _, item := range cl.Items {
				byID[item.ID] = item
			}
			items := make([]database.ChecklistItem, len(ids))
			for i, id := range ids {
				items[i] = byID[id]
			}
			cl.Items = items
			ordering.RenumberItems(cl)
			return nil
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.SaveChecklistItemOrder(ctx, checklistID, ids)
		})
}

// AddComment appends a comment by userID to a task.
func (s *BoardStore) AddComment(ctx context.Context, taskID, userID, content string) (*database.Comment, error) {
	var created database.Comment
	err := s.create(ctx, func(ctx context.Context, b *database.Board) (func(*database.Board) error, error) {
		if ci, _ := findTask(b, taskID); ci < 0 {
			return nil, ErrTaskNotFound
		}
		cm, err := s.gateway.CreateComment(ctx, taskID, userID, content)
		if err != nil {
			return nil, s.fail("addComment", err)
		}
		created = *cm
		return func(next *database.Board) error {
			ci, ti := findTask(next, taskID)
			if ci < 0 {
				return ErrTaskNotFound
			}
			t := &next.Columns[ci].Tasks[ti]
			t.Comments = append(t.Comments, *cm)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *BoardStore) DeleteComment(ctx context.Context, commentID string) error {
	return s.mutate(ctx, "deleteComment",
		func(b *database.Board) error {
			for ci := range b.Columns {
				for ti := range b.Columns[ci].Tasks {
					t := &b.Columns[ci].Tasks[ti]
					for i, cm := range t.Comments {
						if cm.ID == commentID {
							t.Comments = ordering.Remove(t.Comments, i)
							return nil
						}
					}
				}
			}
			return errUnchanged
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.DeleteComment(ctx, commentID)
		})
}

// AddAttachment stores the file, then records it on the task. A file that
// was saved but could not be recorded is removed again.
func (s *BoardStore) AddAttachment(ctx context.Context, taskID, name string, r io.Reader) (*database.Attachment, error) {
	if s.files == nil {
		return nil, ErrNoFileStore
	}
	var created database.Attachment
	err := s.create(ctx, func(ctx context.Context, b *database.Board) (func(*database.Board) error, error) {
		if ci, _ := findTask(b, taskID); ci < 0 {
			return nil, ErrTaskNotFound
		}
		url, err := s.files.Save(ctx, taskID, name, r)
		if err != nil {
			log.Printf("Error saving attachment %s: %v", name, err)
			return nil, fmt.Errorf("failed to save attachment: %w", err)
		}
		a, err := s.gateway.CreateAttachment(ctx, taskID, name, url)
		if err != nil {
			if rmErr := s.files.Remove(ctx, url); rmErr != nil {
				log.Printf("Error removing orphaned attachment %s: %v", url, rmErr)
			}
			return nil, s.fail("addAttachment", err)
		}
		created = *a
		return func(next *database.Board) error {
			ci, ti := findTask(next, taskID)
			if ci < 0 {
				return ErrTaskNotFound
			}
			t := &next.Columns[ci].Tasks[ti]
			t.Attachments = append(t.Attachments, *a)
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAttachment removes the attachment record and then its file.
func (s *BoardStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	var url string
	err := s.mutate(ctx, "deleteAttachment",
		func(b *database.Board) error {
			for ci := range b.Columns {
				for ti := range b.Columns[ci].Tasks {
					t := &b.Columns[ci].Tasks[ti]
					for i, a := range t.Attachments {
						if a.ID == attachmentID {
							url = a.URL
							t.Attachments = ordering.Remove(t.Attachments, i)
							return nil
						}
					}
				}
			}
			return errUnchanged
		},
		func(ctx context.Context, _ *database.Board) error {
			return s.gateway.DeleteAttachment(ctx, attachmentID)
		})
	if err != nil || url == "" || s.files == nil {
		return err
	}
	if err := s.files.Remove(ctx, url); err != nil {
		log.Printf("Error removing attachment file %s: %v", url, err)
	}
	return nil
}

// InviteMember gives userID member access to the board.
func (s *BoardStore) InviteMember(ctx context.Context, userID string) error {
	return s.mutate(ctx, "inviteMember",
		func(b *database.Board) error {
			if memberIndex(b, userID) >= 0 {
				return ErrAlreadyMember
			}
			b.Members = append(b.Members, database.BoardMember{UserID: userID, Role: database.RoleMember})
			return nil
		},
		func(ctx context.Context, b *database.Board) error {
			return s.gateway.AddMember(ctx, b.ID, userID, database.RoleMember)
		})
}

// RemoveMember revokes a member's access. The owner cannot be removed.
func (s *BoardStore) RemoveMember(ctx context.Context, userID string) error {
	return s.mutate(ctx, "removeMember",
		func(b *database.Board) error {
			if userID == b.OwnerID {
				return ErrOwnerImmutable
			}
			i := memberIndex(b, userID)
			if i < 0 {
				return errUnchanged
			}
			if b.Members[i].Role == database.RoleOwner {
				return ErrOwnerImmutable
			}
			b.Members = ordering.Remove(b.Members, i)
			return nil
		},
		func(ctx context.Context, b *database.Board) error {
			return s.gateway.RemoveMember(ctx, b.ID, userID)
		})
}

func memberIndex(b *database.Board, userID string) int {
	for i, m := range b.Members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

func findChecklist(b *database.Board, id string) (col, task, checklist int) {
	for ci := range b.Columns {
		for ti := range b.Columns[ci].Tasks {
			for k := range b.Columns[ci].Tasks[ti].Checklists {
				if b.Columns[ci].Tasks[ti].Checklists[k].ID == id {
					return ci, ti, k
				}
			}
		}
	}
	return -1, -1, -1
}

func findChecklistItem(b *database.Board, id string) (col, task, checklist, item int) {
	for ci := range b.Columns {
		for ti := range b.Columns[ci].Tasks {
			for k, cl := range b.Columns[ci].Tasks[ti].Checklists {
				for ii := range cl.Items {
					if cl.Items[ii].ID == id {
						return ci, ti, k, ii
					}
				}
			}
		}
	}
	return -1, -1, -1, -1
}
