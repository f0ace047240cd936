// Package mongodb stores tasks and users in MongoDB. Subtasks are embedded in
// their parent document and updated in place with the positional operator, so
// every task write touches exactly one document.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskapi/internal/models"
	"taskapi/internal/storage"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"
)

type subTaskDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Status      string             `bson:"status"`
}

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Status      string             `bson:"status"`
	SubTask     []subTaskDoc       `bson:"subTask"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// Store is a MongoDB backed task and credential store.
type Store struct {
	client *mongo.Client
	tasks  *mongo.Collection
	users  *mongo.Collection
	logger *slog.Logger
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		tasks:  db.Collection(tasksCollection),
		users:  db.Collection(usersCollection),
		logger: logger,
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create username index: %w", err)
	}

	logger.Info("mongo store ready", slog.String("database", database))
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// ListTasks returns every task in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	cur, err := s.tasks.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cur.Close(ctx)

	tasks := []models.Task{}
	for cur.Next(ctx) {
		var doc taskDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, doc.model())
	}
	return tasks, cur.Err()
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.Task{}, err
	}

	var doc taskDoc
	err = s.tasks.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return doc.model(), nil
}

// CreateTask inserts a new task with an empty subtask list.
func (s *Store) CreateTask(ctx context.Context, d models.TaskDetails) (models.Task, error) {
	if !d.Check() {
		return models.Task{}, fmt.Errorf("insert task: invalid document")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := taskDoc{
		ID:          primitive.NewObjectID(),
		Title:       d.Title,
		Description: d.Description,
		Status:      string(d.Status),
		SubTask:     []subTaskDoc{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.tasks.InsertOne(ctx, doc); err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return doc.model(), nil
}

// UpdateTask sets the supplied patch fields on the task.
func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.Task{}, err
	}
	filter := bson.D{{Key: "_id", Value: oid}}
	update := bson.D{{Key: "$set", Value: setFields("", patch)}}
	return s.findOneAndUpdate(ctx, filter, update, "task "+id)
}

// PushSubTask appends a subtask with a fresh id to the task.
func (s *Store) PushSubTask(ctx context.Context, id string, d models.TaskDetails) (models.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.Task{}, err
	}
	if !d.Check() {
		return models.Task{}, fmt.Errorf("push subtask: invalid document")
	}

	sub := subTaskDoc{
		ID:          primitive.NewObjectID(),
		Title:       d.Title,
		Description: d.Description,
		Status:      string(d.Status),
	}
	filter := bson.D{{Key: "_id", Value: oid}}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "subTask", Value: sub}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}
	return s.findOneAndUpdate(ctx, filter, update, "task "+id)
}

// UpdateSubTask sets the patch fields on the subtask matched by subID. The
// filter matches both ids, so a missing task and a missing subtask look alike.
func (s *Store) UpdateSubTask(ctx context.Context, id, subID string, patch models.TaskPatch) (models.Task, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.Task{}, err
	}
	subOID, err := objectID(subID)
	if err != nil {
		return models.Task{}, err
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "subTask._id", Value: subOID},
	}
	update := bson.D{{Key: "$set", Value: setFields("subTask.$.", patch)}}
	return s.findOneAndUpdate(ctx, filter, update, "task "+id+" subtask "+subID)
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.D, what string) (models.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDoc
	err := s.tasks.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("update %s: %w", what, err)
	}
	return doc.model(), nil
}

// DeleteTask removes a task document and its embedded subtasks.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.tasks.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// CreateUser stores a new account. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, fmt.Errorf("user %q: %w", username, storage.ErrDuplicate)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.model(), nil
}

// FindUserByUsername looks an account up by its username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return doc.model(), nil
}

// setFields turns a patch into a $set document, prefixing every field name.
// updatedAt is always refreshed on the parent.
func setFields(prefix string, patch models.TaskPatch) bson.D {
	set := bson.D{}
	for _, f := range patch.Fields() {
		set = append(set, bson.E{Key: prefix + f.Name, Value: f.Value})
	}
	return append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("id %q: %w", id, storage.ErrNotFound)
	}
	return oid, nil
}

func (d taskDoc) model() models.Task {
	t := models.Task{
		ID: d.ID.Hex(),
		TaskDetails: models.TaskDetails{
			Title:       d.Title,
			Description: d.Description,
			Status:      models.Status(d.Status),
		},
		SubTasks:  make([]models.SubTask, 0, len(d.SubTask)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, sub := range d.SubTask {
		t.SubTasks = append(t.SubTasks, models.SubTask{
			ID: sub.ID.Hex(),
			TaskDetails: models.TaskDetails{
				Title:       sub.Title,
				Description: sub.Description,
				Status:      models.Status(sub.Status),
			},
		})
	}
	return t
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
