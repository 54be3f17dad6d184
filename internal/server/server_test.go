package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesada/internal/auth"
	"mesada/internal/chat"
	"mesada/internal/models"
	"mesada/internal/notify"
	"mesada/internal/storage/sqlite"
	"mesada/internal/tasks"
	"mesada/internal/whatsapp"
)

func newTestServer(t *testing.T) (*Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	notifier := &notify.Recorder{}
	chatClient := chat.NewClient(store, notifier, nil)
	chatClient.SetReplyDelay(10 * time.Millisecond)
	t.Cleanup(chatClient.Close)

	srv := New(Config{
		Store:       store,
		Tasks:       tasks.NewClient(store, notifier, nil),
		Chat:        chatClient,
		Auth:        auth.NewManager(auth.Config{SecretKey: "test-secret", TokenDuration: time.Hour}),
		Sender:      whatsapp.NewSender("", nil),
		VerifyToken: DefaultVerifyToken,
	})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func registerUser(t *testing.T, srv *Server, email string) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret123",
		"name":     "Tester",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "parent@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "parent@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "parent@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "parent@example.com",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasksRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/tasks", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "parent@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":  "Organizar o quarto",
		"points": 15,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &created)
	assert.Equal(t, models.StatusPending, created.Task.Status)
	assert.EqualValues(t, 15, created.Task.Points)

	rec = doJSON(t, srv, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Tasks []models.Task `json:"tasks"`
	}
	decode(t, rec, &listed)
	require.NotEmpty(t, listed.Tasks)
	assert.Equal(t, created.Task.ID, listed.Tasks[0].ID)

	togglePath := "/api/tasks/" + created.Task.ID + "/toggle"
	for _, want := range []string{models.StatusInProgress, models.StatusCompleted, models.StatusPending} {
		rec = doJSON(t, srv, http.MethodPost, togglePath, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var toggled struct {
			Task models.Task `json:"task"`
		}
		decode(t, rec, &toggled)
		assert.Equal(t, want, toggled.Task.Status)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/tasks/"+created.Task.ID, token, map[string]any{
		"description": "Guardar brinquedos e arrumar a cama",
		"category":    "quarto",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, "Guardar brinquedos e arrumar a cama", updated.Task.Description)
	assert.Equal(t, "quarto", updated.Task.Category)

	rec = doJSON(t, srv, http.MethodDelete, "/api/tasks/"+created.Task.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/tasks/"+created.Task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "parent@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/tasks", token, map[string]any{"points": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasksAreOwnerScoped(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := registerUser(t, srv, "alice@example.com")
	bob := registerUser(t, srv, "bob@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/tasks", alice, map[string]any{"title": "Tarefa da Alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &created)

	rec = doJSON(t, srv, http.MethodGet, "/api/tasks", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Tasks []models.Task `json:"tasks"`
	}
	decode(t, rec, &listed)
	assert.Empty(t, listed.Tasks)

	rec = doJSON(t, srv, http.MethodDelete, "/api/tasks/"+created.Task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessagingFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "parent@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/api/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var initial struct {
		Messages   []models.Message `json:"messages"`
		Connection string           `json:"connection"`
	}
	decode(t, rec, &initial)
	assert.Empty(t, initial.Messages)
	assert.Equal(t, string(chat.ConnDisconnected), initial.Connection)

	rec = doJSON(t, srv, http.MethodPost, "/api/whatsapp/connect", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conn struct {
		Connection string `json:"connection"`
	}
	decode(t, rec, &conn)
	assert.Equal(t, string(chat.ConnConnected), conn.Connection)

	rec = doJSON(t, srv, http.MethodPost, "/api/messages", token, map[string]string{
		"content": "Pedro terminou a lição de casa",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sent struct {
		Message models.Message `json:"message"`
	}
	decode(t, rec, &sent)
	assert.Equal(t, models.MessageTypeUser, sent.Message.MessageType)
	assert.Equal(t, "family_admin", sent.Message.Sender)

	// The canned bot reply lands after the configured delay.
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		srv.Engine().ServeHTTP(rec, req)

		var listed struct {
			Messages []models.Message `json:"messages"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
			return false
		}
		for _, m := range listed.Messages {
			if m.MessageType == models.MessageTypeBot {
				return true
			}
		}
		return false
	}, time.Second, 20*time.Millisecond)

	rec = doJSON(t, srv, http.MethodPost, "/api/whatsapp/disconnect", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &conn)
	assert.Equal(t, string(chat.ConnDisconnected), conn.Connection)
}

func TestSendMessageRequiresContent(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "parent@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/messages", token, map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChildrenAndStats(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerUser(t, srv, "parent@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/children", token, map[string]any{
		"name": "Pedro Silva",
		"age":  12,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/children", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var children struct {
		Children []models.Child `json:"children"`
	}
	decode(t, rec, &children)
	require.Len(t, children.Children, 1)

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks", token, map[string]any{"title": "Feita", "points": 15})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Task models.Task `json:"task"`
	}
	decode(t, rec, &created)

	rec = doJSON(t, srv, http.MethodPut, "/api/tasks/"+created.Task.ID, token, map[string]any{
		"status": models.StatusCompleted,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/tasks", token, map[string]any{"title": "Pendente"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Stats models.Stats `json:"stats"`
	}
	decode(t, rec, &stats)
	assert.EqualValues(t, 1, stats.Stats.CompletedTasks)
	assert.EqualValues(t, 1, stats.Stats.PendingTasks)
	assert.EqualValues(t, 15, stats.Stats.TotalEarned)
	assert.InDelta(t, 50.0, stats.Stats.CompletionPercent, 0.001)
}
