package database

import (
	"encoding/json"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities. The empty
// priority means "unset" and is also valid.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Board is the root container. Columns is the single authoritative order of
// the board's columns; ColumnOrder is derived from it.
type Board struct {
	ID         string        `json:"id"`
	OwnerID    string        `json:"ownerId"`
	Background string        `json:"background,omitempty"`
	Columns    []Column      `json:"columns"`
	Labels     []Label       `json:"labels"`
	Members    []BoardMember `json:"members"`
}

type Column struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Tasks    []Task `json:"tasks"`
}

type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Position    int          `json:"position"`
	DueDate     string       `json:"dueDate,omitempty"`
	Priority    Priority     `json:"priority,omitempty"`
	Archived    bool         `json:"archived"`
	Labels      []Label      `json:"labels"`
	Checklists  []Checklist  `json:"checklists"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments"`
}

type Checklist struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

type ChecklistItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Checked  bool   `json:"checked"`
	Position int    `json:"position"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type BoardMember struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// TaskPatch carries a partial task update. Nil fields are left untouched.
// An empty DueDate or Priority clears the field.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Archived    *bool     `json:"archived,omitempty"`
	Labels      *[]Label  `json:"labels,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.Archived == nil && p.Labels == nil
}

// Apply merges the patch into t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Archived != nil {
		t.Archived = *p.Archived
	}
	if p.Labels != nil {
		t.Labels = append([]Label{}, (*p.Labels)...)
	}
}

// ColumnOrder returns the column ids in board order.
func (b *Board) ColumnOrder() []string {
	ids := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		ids[i] = col.ID
	}
	return ids
}

// TaskIDs returns the column's task ids in order.
func (c *Column) TaskIDs() []string {
	ids := make([]string, len(c.Tasks))
	for i, task := range c.Tasks {
		ids[i] = task.ID
	}
	return ids
}

// ItemIDs returns the checklist's item ids in order.
func (c *Checklist) ItemIDs() []string {
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ID
	}
	return ids
}

// MarshalJSON adds the derived columnOrder index for clients that still
// expect it next to the columns.
func (b Board) MarshalJSON() ([]byte, error) {
	type plain Board
	return json.Marshal(struct {
		plain
		ColumnOrder []string `json:"columnOrder"`
	}{plain(b), b.ColumnOrder()})
}

// Clone returns a deep copy of the board. Every nested slice is copied so
// the result shares no backing arrays with b.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := *b
	out.Labels = append([]Label{}, b.Labels...)
	out.Members = append([]BoardMember{}, b.Members...)
	out.Columns = make([]Column, len(b.Columns))
	for i, col := range b.Columns {
		out.Columns[i] = col.Clone()
	}
	return &out
}

func (c Column) Clone() Column {
	out := c
	out.Tasks = make([]Task, len(c.Tasks))
	for i, task := range c.Tasks {
		out.Tasks[i] = task.Clone()
	}
	return out
}

func (t Task) Clone() Task {
	out := t
	out.Labels = append([]Label{}, t.Labels...)
	out.Comments = append([]Comment{}, t.Comments...)
	out.Attachments = append([]Attachment{}, t.Attachments...)
	out.Checklists = make([]Checklist, len(t.Checklists))
	for i, cl := range t.Checklists {
		cl.Items = append([]ChecklistItem{}, cl.Items...)
		out.Checklists[i] = cl
	}
	return out
}
