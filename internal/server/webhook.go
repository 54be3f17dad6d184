package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mesada/internal/models"
)

// DefaultVerifyToken is the pre-shared handshake secret used when none is
// configured in the environment.
const DefaultVerifyToken = "mesada_mestre_token"

const mediaPlaceholder = "Mensagem de mídia"

// webhookPayload mirrors the nested shape of a Meta webhook delivery. Only
// the fields the handler reads are declared.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
				Contacts []inboundContact `json:"contacts"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
}

type inboundContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// handleWebhook is the provider-facing endpoint. It is stateless and has no
// concept of a current user: inbound rows are stored without an owner.
func (s *Server) handleWebhook(c *gin.Context) {
	setCORSHeaders(c)

	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
	case http.MethodGet:
		s.handleWebhookVerify(c)
	case http.MethodPost:
		s.handleWebhookEvent(c)
	default:
		c.String(http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleWebhookVerify answers the provider's challenge/response handshake.
// On success the challenge value is echoed back byte for byte.
func (s *Server) handleWebhookVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		s.logger.Info("whatsapp webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "Forbidden")
}

// handleWebhookEvent persists the first inbound message of a delivery and
// dispatches one synthetic reply. Persistence and dispatch failures are
// logged, never retried; the provider still gets a success response. Only a
// body that fails to parse yields an error status. Re-delivery of the same
// payload is not deduplicated.
func (s *Server) handleWebhookEvent(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if msg, ok := firstMessage(payload); ok {
		name := msg.From
		if contact, ok := firstContact(payload); ok && contact.Profile.Name != "" {
			name = contact.Profile.Name
		}

		content := mediaPlaceholder
		if msg.Text != nil && msg.Text.Body != "" {
			content = msg.Text.Body
		}

		if _, err := s.store.InsertMessage(c.Request.Context(), models.Message{
			Sender:      msg.From,
			SenderName:  name,
			Content:     content,
			MessageType: models.MessageTypeUser,
		}); err != nil {
			s.logger.Error("saving webhook message failed", slog.String("error", err.Error()))
		}

		reply := fmt.Sprintf("Olá! Recebi sua mensagem: \"%s\". Vou processar e criar as tarefas necessárias! 🎯", content)
		result, err := s.sender.Send(msg.From, reply)
		if err != nil {
			s.logger.Error("webhook reply failed", slog.String("error", err.Error()))
		} else {
			s.logger.Info("webhook reply dispatched",
				slog.String("to", msg.From), slog.Bool("simulated", result.Simulated))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func firstMessage(p webhookPayload) (inboundMessage, bool) {
	if len(p.Entry) > 0 && len(p.Entry[0].Changes) > 0 && len(p.Entry[0].Changes[0].Value.Messages) > 0 {
		return p.Entry[0].Changes[0].Value.Messages[0], true
	}
	return inboundMessage{}, false
}

func firstContact(p webhookPayload) (inboundContact, bool) {
	if len(p.Entry) > 0 && len(p.Entry[0].Changes) > 0 && len(p.Entry[0].Changes[0].Value.Contacts) > 0 {
		return p.Entry[0].Changes[0].Value.Contacts[0], true
	}
	return inboundContact{}, false
}

func setCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}
