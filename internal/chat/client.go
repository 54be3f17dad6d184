package chat

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"mesada/internal/models"
	"mesada/internal/notify"
	"mesada/internal/storage/sqlite"
)

// ConnState is the connection flag shown on the chat view. It starts unknown
// and is resolved exactly once from the first successful load; afterwards
// only Connect and Disconnect mutate it.
type ConnState string

const (
	ConnUnknown      ConnState = "unknown"
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
)

// Fixed identities used by the simulated conversation.
const (
	adminSender  = "family_admin"
	adminName    = "Administrador"
	botSender    = "mesada_bot"
	botName      = "Mesada Bot"
	welcomeText  = "Olá! WhatsApp conectado com sucesso! Agora posso ajudar a organizar as tarefas da família. 🎉"
	listLimit    = 50
	defaultDelay = time.Second
)

// cannedReplies is the fixed set the bot draws from, uniformly at random.
var cannedReplies = []string{
	"Entendi! Vou processar essa informação e criar as tarefas necessárias. 🎯",
	"Perfeito! Registrei a atividade. Continue assim! 🌟",
	"Ótimo trabalho! A pontuação foi atualizada. 💪",
	"Recebido! Vou acompanhar o progresso dessa tarefa. 📝",
}

// Client issues message operations against the store and keeps a per-user
// local mirror plus the connection flag. The delayed bot reply runs on a
// tracked timer owned by the client and is cancelled by Close.
type Client struct {
	store      *sqlite.Store
	notifier   notify.Notifier
	logger     *slog.Logger
	replyDelay time.Duration

	mu      sync.Mutex
	mirrors map[string][]models.Message
	states  map[string]ConnState
	timers  map[int64]*time.Timer
	nextID  int64
	closed  bool
}

// NewClient builds a chat client over the given store.
func NewClient(store *sqlite.Store, notifier notify.Notifier, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogger(logger)
	}
	return &Client{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		replyDelay: defaultDelay,
		mirrors:    make(map[string][]models.Message),
		states:     make(map[string]ConnState),
		timers:     make(map[int64]*time.Timer),
	}
}

// Close stops every pending bot reply timer. Replies that have not fired yet
// never write after this returns.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

// List fetches up to the 50 most recent messages for the session user,
// newest first, and replaces the local mirror. The first successful load
// resolves an unknown connection flag: non-empty history means connected.
func (c *Client) List(ctx context.Context, sess models.Session) ([]models.Message, error) {
	if !sess.Valid() {
		return nil, nil
	}

	messages, err := c.store.ListMessages(ctx, sess.UserID, listLimit)
	if err != nil {
		c.logger.Error("fetch messages failed", slog.String("error", err.Error()))
		c.notifier.Failure(sess.UserID, "Erro ao carregar mensagens", "Não foi possível carregar as mensagens do WhatsApp")
		return nil, err
	}

	c.mu.Lock()
	c.mirrors[sess.UserID] = messages
	if c.states[sess.UserID] == "" || c.states[sess.UserID] == ConnUnknown {
		if len(messages) > 0 {
			c.states[sess.UserID] = ConnConnected
		} else {
			c.states[sess.UserID] = ConnDisconnected
		}
	}
	c.mu.Unlock()

	return copyMessages(messages), nil
}

// Send inserts a user message attributed to the family admin identity and
// schedules exactly one canned bot reply after the fixed delay. The reply is
// fire-and-forget: a failure is logged, never surfaced.
func (c *Client) Send(ctx context.Context, sess models.Session, content string) (models.Message, error) {
	if !sess.Valid() {
		return models.Message{}, nil
	}

	msg, err := c.store.InsertMessage(ctx, models.Message{
		UserID:      sess.UserID,
		Sender:      adminSender,
		SenderName:  adminName,
		Content:     content,
		MessageType: models.MessageTypeUser,
	})
	if err != nil {
		c.logger.Error("send message failed", slog.String("error", err.Error()))
		c.notifier.Failure(sess.UserID, "Erro ao enviar mensagem", "Não foi possível enviar a mensagem")
		return models.Message{}, err
	}

	c.prepend(sess.UserID, msg)
	c.scheduleBotReply(sess)
	return msg, nil
}

// Connect flips the flag to connected, announces it, writes the welcome
// notification message and refreshes the mirror from the store.
func (c *Client) Connect(ctx context.Context, sess models.Session) error {
	if !sess.Valid() {
		return nil
	}

	c.mu.Lock()
	c.states[sess.UserID] = ConnConnected
	c.mu.Unlock()

	c.notifier.Success(sess.UserID, "WhatsApp conectado!", "Agora você pode receber mensagens e tarefas via WhatsApp")

	if _, err := c.store.InsertMessage(ctx, models.Message{
		UserID:      sess.UserID,
		Sender:      botSender,
		SenderName:  botName,
		Content:     welcomeText,
		MessageType: models.MessageTypeNotification,
	}); err != nil {
		c.logger.Error("welcome message failed", slog.String("error", err.Error()))
	}

	_, err := c.List(ctx, sess)
	return err
}

// Disconnect flips the flag to disconnected. Persisted messages are kept.
func (c *Client) Disconnect(sess models.Session) {
	if !sess.Valid() {
		return
	}

	c.mu.Lock()
	c.states[sess.UserID] = ConnDisconnected
	c.mu.Unlock()

	c.notifier.Success(sess.UserID, "WhatsApp desconectado", "A integração com WhatsApp foi desconectada")
}

// Connection returns the session user's connection flag.
func (c *Client) Connection(sess models.Session) ConnState {
	if !sess.Valid() {
		return ConnUnknown
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[sess.UserID]; ok {
		return s
	}
	return ConnUnknown
}

// Mirror returns a copy of the session user's local mirror.
func (c *Client) Mirror(sess models.Session) []models.Message {
	if !sess.Valid() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMessages(c.mirrors[sess.UserID])
}

// SetReplyDelay overrides the bot reply delay. Intended for tests.
func (c *Client) SetReplyDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replyDelay = d
}

func (c *Client) scheduleBotReply(sess models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	id := c.nextID
	c.nextID++
	c.timers[id] = time.AfterFunc(c.replyDelay, func() {
		c.mu.Lock()
		closed := c.closed
		delete(c.timers, id)
		c.mu.Unlock()
		if closed {
			return
		}
		c.sendBotReply(sess)
	})
}

func (c *Client) sendBotReply(sess models.Session) {
	reply := cannedReplies[rand.Intn(len(cannedReplies))]

	msg, err := c.store.InsertMessage(context.Background(), models.Message{
		UserID:      sess.UserID,
		Sender:      botSender,
		SenderName:  botName,
		Content:     reply,
		MessageType: models.MessageTypeBot,
	})
	if err != nil {
		c.logger.Error("bot reply failed", slog.String("error", err.Error()))
		return
	}
	c.prepend(sess.UserID, msg)
}

func (c *Client) prepend(userID string, msg models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirrors[userID] = append([]models.Message{msg}, c.mirrors[userID]...)
}

func copyMessages(messages []models.Message) []models.Message {
	if messages == nil {
		return nil
	}
	out := make([]models.Message, len(messages))
	copy(out, messages)
	return out
}
