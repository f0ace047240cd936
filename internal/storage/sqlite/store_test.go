package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskapi/internal/models"
	"taskapi/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", nil)
	require.Error(t, err)
}

func TestCreateAndGetTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, models.TaskDetails{Title: "Draft release notes", Status: models.StatusTicket})
	require.NoError(t, err)
	assert.Len(t, created.ID, 24)
	assert.Equal(t, "Draft release notes", created.Title)
	assert.NotNil(t, created.SubTasks)
	assert.Empty(t, created.SubTasks)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.TaskDetails, got.TaskDetails)
}

func TestCreateTask_RejectsInvalidDocument(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateTask(context.Background(), models.TaskDetails{Title: "x", Status: "done"})
	require.Error(t, err)

	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestGetTask_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetTask(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListTasks_CreationOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.CreateTask(ctx, models.TaskDetails{Title: title, Status: models.StatusCheck})
		require.NoError(t, err)
	}

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "one", tasks[0].Title)
	assert.Equal(t, "three", tasks[2].Title)
}

func TestUpdateTask_OnlySuppliedFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, models.TaskDetails{Title: "a", Description: "keep", Status: models.StatusTicket})
	require.NoError(t, err)

	updated, err := s.UpdateTask(ctx, created.ID, models.TaskPatch{Status: ptr(models.StatusComplete)})
	require.NoError(t, err)
	assert.Equal(t, "a", updated.Title)
	assert.Equal(t, "keep", updated.Description)
	assert.Equal(t, models.StatusComplete, updated.Status)

	reloaded, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.TaskDetails, reloaded.TaskDetails)
}

func TestUpdateTask_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.UpdateTask(context.Background(), primitive.NewObjectID().Hex(), models.TaskPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPushAndUpdateSubTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, models.TaskDetails{Title: "parent", Status: models.StatusTicket})
	require.NoError(t, err)

	for _, title := range []string{"first", "second", "third"} {
		task, err = s.PushSubTask(ctx, task.ID, models.TaskDetails{Title: title, Status: models.StatusTicket})
		require.NoError(t, err)
	}
	require.Len(t, task.SubTasks, 3)
	assert.Equal(t, "first", task.SubTasks[0].Title)
	assert.Equal(t, "third", task.SubTasks[2].Title)
	assert.NotEqual(t, task.ID, task.SubTasks[0].ID)
	assert.NotEqual(t, task.SubTasks[0].ID, task.SubTasks[1].ID)

	target := task.SubTasks[1]
	updated, err := s.UpdateSubTask(ctx, task.ID, target.ID, models.TaskPatch{Status: ptr(models.StatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, task.SubTasks[0], updated.SubTasks[0])
	assert.Equal(t, task.SubTasks[2], updated.SubTasks[2])
	assert.Equal(t, models.StatusInProgress, updated.SubTasks[1].Status)
	assert.Equal(t, "second", updated.SubTasks[1].Title)
	assert.Equal(t, models.StatusTicket, updated.Status)

	reloaded, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.SubTasks, reloaded.SubTasks)
}

func TestUpdateSubTask_MissingSubTaskLeavesDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, models.TaskDetails{Title: "parent", Status: models.StatusTicket})
	require.NoError(t, err)
	task, err = s.PushSubTask(ctx, task.ID, models.TaskDetails{Title: "child", Status: models.StatusTicket})
	require.NoError(t, err)

	_, err = s.UpdateSubTask(ctx, task.ID, primitive.NewObjectID().Hex(), models.TaskPatch{Title: ptr("nope")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	reloaded, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.SubTasks, reloaded.SubTasks)
}

func TestDeleteTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, models.TaskDetails{Title: "gone", Status: models.StatusTicket})
	require.NoError(t, err)
	_, err = s.PushSubTask(ctx, task.ID, models.TaskDetails{Title: "child", Status: models.StatusTicket})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	_, err = s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), storage.ErrNotFound)
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = s.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	found, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	_, err = s.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListTasks_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM tasks").WillReturnError(errors.New("disk I/O error"))

	_, err = New(db, nil).ListTasks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
