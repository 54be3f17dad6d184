package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mesada/internal/models"
	"mesada/internal/notify"
	"mesada/internal/storage/sqlite"
)

// Client issues task operations against the store and keeps a per-user local
// mirror of the result set. The store stays the source of truth; the mirror
// is point-updated after each successful operation and left untouched on
// failure. Every operation takes the session explicitly and silently no-ops
// when no user is present.
type Client struct {
	store    *sqlite.Store
	notifier notify.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	mirrors map[string][]models.Task
}

// CreateInput carries the caller-supplied fields for a new task.
type CreateInput struct {
	Title       string
	Description string
	AssignedTo  string
	Status      string
	Points      int64
	DueDate     *time.Time
	Category    string
}

// NewClient builds a task client over the given store.
func NewClient(store *sqlite.Store, notifier notify.Notifier, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogger(logger)
	}
	return &Client{
		store:    store,
		notifier: notifier,
		logger:   logger,
		mirrors:  make(map[string][]models.Task),
	}
}

// List fetches all tasks owned by the session user, newest first, and
// replaces the local mirror with the result.
func (c *Client) List(ctx context.Context, sess models.Session) ([]models.Task, error) {
	if !sess.Valid() {
		return nil, nil
	}

	tasks, err := c.store.ListTasks(ctx, sess.UserID)
	if err != nil {
		c.logger.Error("fetch tasks failed", slog.String("error", err.Error()))
		c.notifier.Failure(sess.UserID, "Erro ao carregar tarefas", "Não foi possível carregar as tarefas")
		return nil, err
	}

	c.mu.Lock()
	c.mirrors[sess.UserID] = tasks
	c.mu.Unlock()
	return copyTasks(tasks), nil
}

// Create inserts a new task and prepends the persisted record to the mirror.
func (c *Client) Create(ctx context.Context, sess models.Session, in CreateInput) (models.Task, error) {
	if !sess.Valid() {
		return models.Task{}, nil
	}

	task, err := c.store.CreateTask(ctx, models.Task{
		UserID:      sess.UserID,
		Title:       in.Title,
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		Status:      in.Status,
		Points:      in.Points,
		DueDate:     in.DueDate,
		Category:    in.Category,
	})
	if err != nil {
		c.logger.Error("create task failed", slog.String("error", err.Error()))
		c.notifier.Failure(sess.UserID, "Erro ao criar tarefa", "Não foi possível criar a tarefa")
		return models.Task{}, err
	}

	c.mu.Lock()
	c.mirrors[sess.UserID] = append([]models.Task{task}, c.mirrors[sess.UserID]...)
	c.mu.Unlock()

	c.notifier.Success(sess.UserID, "Tarefa criada com sucesso!", fmt.Sprintf("A tarefa %q foi criada", task.Title))
	return task, nil
}

// Update applies a partial update to an owned task and merges the persisted
// fields into the matching mirror entry.
func (c *Client) Update(ctx context.Context, sess models.Session, id string, changes map[string]any) (models.Task, error) {
	if !sess.Valid() {
		return models.Task{}, nil
	}

	task, err := c.store.UpdateTask(ctx, id, sess.UserID, changes)
	if err != nil {
		c.logger.Error("update task failed", slog.String("task", id), slog.String("error", err.Error()))
		c.notifier.Failure(sess.UserID, "Erro ao atualizar tarefa", "Não foi possível atualizar a tarefa")
		return models.Task{}, err
	}

	c.mu.Lock()
	mirror := c.mirrors[sess.UserID]
	for i := range mirror {
		if mirror[i].ID == id {
			mirror[i] = task
			break
		}
	}
	c.mu.Unlock()

	c.notifier.Success(sess.UserID, "Tarefa atualizada!", "A tarefa foi atualizada com sucesso")
	return task, nil
}

// Toggle advances a task one step through the status cycle with a single
// update call.
func (c *Client) Toggle(ctx context.Context, sess models.Session, id string) (models.Task, error) {
	if !sess.Valid() {
		return models.Task{}, nil
	}

	current, ok := c.fromMirror(sess.UserID, id)
	if !ok {
		var err error
		current, err = c.store.GetTask(ctx, id, sess.UserID)
		if err != nil {
			c.logger.Error("toggle task failed", slog.String("task", id), slog.String("error", err.Error()))
			c.notifier.Failure(sess.UserID, "Erro ao atualizar tarefa", "Não foi possível atualizar a tarefa")
			return models.Task{}, err
		}
	}

	return c.Update(ctx, sess, id, map[string]any{"status": models.NextStatus(current.Status)})
}

// Delete removes an owned task and drops it from the mirror.
func (c *Client) Delete(ctx context.Context, sess models.Session, id string) error {
	if !sess.Valid() {
		return nil
	}

	if err := c.store.DeleteTask(ctx, id, sess.UserID); err != nil {
		c.logger.Error("delete task failed", slog.String("task", id), slog.String("error", err.Error()))
		c.notifier.Failure(sess.UserID, "Erro ao excluir tarefa", "Não foi possível excluir a tarefa")
		return err
	}

	c.mu.Lock()
	mirror := c.mirrors[sess.UserID]
	next := mirror[:0]
	for _, t := range mirror {
		if t.ID != id {
			next = append(next, t)
		}
	}
	c.mirrors[sess.UserID] = next
	c.mu.Unlock()

	c.notifier.Success(sess.UserID, "Tarefa excluída!", "A tarefa foi excluída com sucesso")
	return nil
}

// Mirror returns a copy of the session user's local mirror.
func (c *Client) Mirror(sess models.Session) []models.Task {
	if !sess.Valid() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyTasks(c.mirrors[sess.UserID])
}

// Stats computes the dashboard counters from the given task list.
func Stats(tasks []models.Task) models.Stats {
	var st models.Stats
	for _, t := range tasks {
		switch t.Status {
		case models.StatusCompleted:
			st.CompletedTasks++
			st.TotalEarned += t.Points
		case models.StatusInProgress:
			st.InProgressTasks++
		default:
			st.PendingTasks++
		}
	}
	if total := int64(len(tasks)); total > 0 {
		st.CompletionPercent = float64(st.CompletedTasks) / float64(total) * 100
	}
	return st
}

func (c *Client) fromMirror(userID, id string) (models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.mirrors[userID] {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func copyTasks(tasks []models.Task) []models.Task {
	if tasks == nil {
		return nil
	}
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	return out
}
