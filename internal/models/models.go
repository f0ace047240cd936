package models

import (
	"strings"
	"time"
)

// Status is the board column a task or subtask sits in.
type Status string

const (
	StatusTicket     Status = "ticket"
	StatusCheck      Status = "check"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
)

// ValidTaskStatuses enumerates the statuses accepted for tasks and subtasks.
var ValidTaskStatuses = []Status{StatusTicket, StatusCheck, StatusInProgress, StatusComplete}

// Valid reports whether s is one of ValidTaskStatuses.
func (s Status) Valid() bool {
	for _, v := range ValidTaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// StatusList joins the valid statuses for error messages.
func StatusList() string {
	names := make([]string, len(ValidTaskStatuses))
	for i, s := range ValidTaskStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// TaskDetails is the shape shared by tasks and subtasks.
type TaskDetails struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
}

// Check verifies the document-level constraints enforced on every write.
func (d TaskDetails) Check() bool {
	return strings.TrimSpace(d.Title) != "" && d.Status.Valid()
}

// SubTask is a TaskDetails embedded in its parent task with its own identity.
type SubTask struct {
	ID string `json:"_id"`
	TaskDetails
}

// Task is a single task document including its embedded subtasks.
type Task struct {
	ID string `json:"_id"`
	TaskDetails
	SubTasks  []SubTask `json:"subTask"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubTask returns the embedded subtask with the given id.
func (t *Task) SubTask(id string) (*SubTask, bool) {
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == id {
			return &t.SubTasks[i], true
		}
	}
	return nil, false
}

// TaskPatch is a sparse update: nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Apply copies the supplied fields onto d.
func (p TaskPatch) Apply(d *TaskDetails) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
}

// Fields returns the patch as field name to value pairs, in declaration order.
func (p TaskPatch) Fields() []Field {
	var fields []Field
	if p.Title != nil {
		fields = append(fields, Field{Name: "title", Value: *p.Title})
	}
	if p.Description != nil {
		fields = append(fields, Field{Name: "description", Value: *p.Description})
	}
	if p.Status != nil {
		fields = append(fields, Field{Name: "status", Value: string(*p.Status)})
	}
	return fields
}

// Field is one named value of a TaskPatch.
type Field struct {
	Name  string
	Value string
}

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
