package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	for _, s := range ValidTaskStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("done").Valid())
	assert.False(t, Status("").Valid())
	assert.Equal(t, "ticket, check, in-progress, complete", StatusList())
}

func TestTaskDetailsCheck(t *testing.T) {
	assert.True(t, TaskDetails{Title: "a", Status: StatusTicket}.Check())
	assert.False(t, TaskDetails{Title: "  ", Status: StatusTicket}.Check())
	assert.False(t, TaskDetails{Title: "a", Status: "done"}.Check())
}

func TestTaskPatch(t *testing.T) {
	assert.True(t, TaskPatch{}.Empty())

	title := "new"
	status := StatusComplete
	p := TaskPatch{Title: &title, Status: &status}
	assert.False(t, p.Empty())

	d := TaskDetails{Title: "old", Description: "keep", Status: StatusTicket}
	p.Apply(&d)
	assert.Equal(t, TaskDetails{Title: "new", Description: "keep", Status: StatusComplete}, d)

	assert.Equal(t, []Field{{Name: "title", Value: "new"}, {Name: "status", Value: "complete"}}, p.Fields())
}

func TestTaskSubTask(t *testing.T) {
	task := Task{SubTasks: []SubTask{{ID: "a"}, {ID: "b"}}}

	sub, ok := task.SubTask("b")
	require.True(t, ok)
	sub.Title = "edited"
	assert.Equal(t, "edited", task.SubTasks[1].Title)

	_, ok = task.SubTask("c")
	assert.False(t, ok)
}
