package notify

import (
	"log/slog"
	"sync"
)

// Notice is a transient user-facing notification. Notices carry no business
// logic; they mirror what a toast would show in the dashboard.
type Notice struct {
	UserID  string
	Title   string
	Detail  string
	Failure bool
}

// Notifier receives transient notifications emitted by the client packages.
type Notifier interface {
	Success(userID, title, detail string)
	Failure(userID, title, detail string)
}

// Logger is the default Notifier: it writes notices to the application log.
type Logger struct {
	logger *slog.Logger
}

// NewLogger builds a log-backed notifier.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Success(userID, title, detail string) {
	l.logger.Info("notice", slog.String("user", userID), slog.String("title", title), slog.String("detail", detail))
}

func (l *Logger) Failure(userID, title, detail string) {
	l.logger.Warn("notice", slog.String("user", userID), slog.String("title", title), slog.String("detail", detail))
}

// Recorder keeps notices in memory. Used by tests to assert on the transient
// notification side effects.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Success(userID, title, detail string) {
	r.record(Notice{UserID: userID, Title: title, Detail: detail})
}

func (r *Recorder) Failure(userID, title, detail string) {
	r.record(Notice{UserID: userID, Title: title, Detail: detail, Failure: true})
}

func (r *Recorder) record(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}
