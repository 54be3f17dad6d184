package models

import "time"

// Task statuses cycled by the board.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ValidTaskStatuses enumerates the statuses a task may hold.
var ValidTaskStatuses = map[string]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
}

// NextStatus returns the next status in the pending → in_progress →
// completed → pending cycle. Unknown statuses restart at pending.
func NextStatus(status string) string {
	switch status {
	case StatusPending:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	default:
		return StatusPending
	}
}

// DefaultTaskPoints is assigned when a task is created without a point value.
const DefaultTaskPoints = 10

// Message kinds. The kind drives rendering on the chat view only; rows are
// stored identically regardless of kind.
const (
	MessageTypeUser         = "user"
	MessageTypeBot          = "bot"
	MessageTypeNotification = "notification"
)

// User is a registered parent account. The password hash never leaves the
// server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session identifies the authenticated caller for a single operation. A zero
// session means "no user": client operations treat it as a silent no-op.
type Session struct {
	UserID string
	Email  string
}

// Valid reports whether the session carries a user.
func (s Session) Valid() bool {
	return s.UserID != ""
}

// Task is a chore assigned to a child, worth a number of allowance points.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Status      string     `json:"status"`
	Points      int64      `json:"points"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Category    string     `json:"category,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Message is a single entry in the simulated WhatsApp conversation. Rows
// written by the webhook carry no user id because the webhook has no session.
type Message struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Sender      string    `json:"sender"`
	SenderName  string    `json:"sender_name"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// Child is a family member tasks can be assigned to.
type Child struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Age       int64     `json:"age"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarizes task progress for the dashboard cards.
type Stats struct {
	CompletedTasks    int64   `json:"completed_tasks"`
	PendingTasks      int64   `json:"pending_tasks"`
	InProgressTasks   int64   `json:"in_progress_tasks"`
	TotalEarned       int64   `json:"total_earned"`
	CompletionPercent float64 `json:"completion_percent"`
}
