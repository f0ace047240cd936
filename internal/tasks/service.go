// Package tasks implements task and subtask CRUD on top of a document store.
package tasks

import (
	"context"
	"errors"

	"taskapi/internal/apperror"
	"taskapi/internal/models"
	"taskapi/internal/storage"
	"taskapi/internal/validation"
)

const (
	msgTaskNotFound        = "Task not found"
	msgTaskOrSubNotFound   = "Task or subtask not found"
	msgSubTaskDataRequired = "SubTask data is required"
)

// Store persists task documents. Every method touches a single document.
type Store interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	CreateTask(ctx context.Context, d models.TaskDetails) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	PushSubTask(ctx context.Context, id string, d models.TaskDetails) (models.Task, error)
	UpdateSubTask(ctx context.Context, id, subID string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Service validates requests and delegates to the Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns all tasks.
func (s *Service) List(ctx context.Context) ([]models.Task, error) {
	return s.store.ListTasks(ctx)
}

// Get returns the task with the given id.
func (s *Service) Get(ctx context.Context, id string) (models.Task, error) {
	if err := validation.ValidateID(id); err != nil {
		return models.Task{}, err
	}
	t, err := s.store.GetTask(ctx, id)
	return t, notFound(err, msgTaskNotFound)
}

// Create validates data and stores a new task with no subtasks.
func (s *Service) Create(ctx context.Context, data validation.Payload) (models.Task, error) {
	details, err := validation.ValidateTaskFields(data)
	if err != nil {
		return models.Task{}, err
	}
	return s.store.CreateTask(ctx, details)
}

// Update applies only the supplied fields of data to the task.
func (s *Service) Update(ctx context.Context, id string, data validation.Payload) (models.Task, error) {
	if err := validation.ValidateID(id); err != nil {
		return models.Task{}, err
	}
	patch, err := validation.ValidateUpdateFields(data)
	if err != nil {
		return models.Task{}, err
	}
	t, err := s.store.UpdateTask(ctx, id, patch)
	return t, notFound(err, msgTaskNotFound)
}

// AddSubTask appends a new subtask to the task.
func (s *Service) AddSubTask(ctx context.Context, id string, data validation.Payload) (models.Task, error) {
	if err := validation.ValidateID(id); err != nil {
		return models.Task{}, err
	}
	details, err := validation.ValidateSubTaskFields(data)
	if err != nil {
		return models.Task{}, err
	}
	t, err := s.store.PushSubTask(ctx, id, details)
	return t, notFound(err, msgTaskNotFound)
}

// UpdateSubTask patches the subtask whose "_id" is given in data. Other
// subtasks of the task are left as they are.
func (s *Service) UpdateSubTask(ctx context.Context, id string, data validation.Payload) (models.Task, error) {
	if data == nil {
		return models.Task{}, apperror.Validation(msgSubTaskDataRequired)
	}

	fields := make(validation.Payload, len(data))
	for k, v := range data {
		if k != "_id" {
			fields[k] = v
		}
	}
	subID, _ := data["_id"].(string)

	if err := validation.ValidateID(id); err != nil {
		return models.Task{}, err
	}
	if err := validation.ValidateID(subID); err != nil {
		return models.Task{}, err
	}
	patch, err := validation.ValidateUpdateFields(fields)
	if err != nil {
		return models.Task{}, err
	}

	t, err := s.store.UpdateSubTask(ctx, id, subID, patch)
	return t, notFound(err, msgTaskOrSubNotFound)
}

// Delete removes the task and its subtasks.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := validation.ValidateID(id); err != nil {
		return err
	}
	return notFound(s.store.DeleteTask(ctx, id), msgTaskNotFound)
}

// notFound maps storage.ErrNotFound to a 404 carrying message.
func notFound(err error, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.NotFound(message)
	}
	return err
}
