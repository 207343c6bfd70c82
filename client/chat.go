package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"datahalo/internal/models"
)

// historyWindow is how many prior turns accompany each tutor request.
const historyWindow = 8

// apologyText is injected as an assistant turn when a send fails. The
// exchange is never retried automatically.
const apologyText = "Sorry, I'm having trouble responding right now. Please try again in a moment."

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSendInFlight = errors.New("a send is already in flight")
)

// ChatController drives the message exchange for the active session. A send
// moves Idle -> Sending -> Idle; the in-flight flag, checked and set under
// the mutex, is the only send serialization.
type ChatController struct {
	api    *Client
	store  *SessionStore
	auth   Authenticator
	notify func(string)

	mu      sync.Mutex
	sending bool
}

func NewChatController(api *Client, store *SessionStore, auth Authenticator, notify func(string)) *ChatController {
	if notify == nil {
		notify = func(string) {}
	}
	return &ChatController{api: api, store: store, auth: auth, notify: notify}
}

// Sending reports whether an exchange is in flight.
func (c *ChatController) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// SendMessage runs one exchange. Blank input and overlapping sends are
// rejected before any state changes or network traffic. The user turn is
// appended optimistically; on failure a canned apology takes the place of
// the assistant reply.
func (c *ChatController) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	c.sending = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	history := c.recentTurns()
	firstTurn := len(history) == 0

	c.store.appendMessage(models.Message{
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	req := models.TutorRequest{
		Message:             text,
		ConversationHistory: history,
		ChatID:              c.store.ActiveID(),
	}
	if user := c.auth.CurrentUser(); user != nil {
		req.UserID = &user.ID
	}
	if firstTurn && req.ChatID == nil {
		title := DeriveTitle(text)
		req.ChatTitle = &title
	}

	resp, err := c.api.Ask(ctx, req)
	if err != nil {
		c.store.appendMessage(models.Message{
			Role:      models.RoleAssistant,
			Content:   apologyText,
			Timestamp: time.Now(),
		})
		c.notify("The tutor couldn't respond. Please try again.")
		return err
	}

	c.store.appendMessage(models.Message{
		Role:          models.RoleAssistant,
		Content:       resp.Response,
		Timestamp:     time.Now(),
		WebSearchUsed: resp.ContextUsed,
		Sources:       resp.Sources,
	})

	// A conversation that started without a session adopts the
	// server-assigned id and refreshes the list so it shows up.
	if c.store.ActiveID() == nil && resp.ChatID != nil {
		c.store.adoptSession(*resp.ChatID)
		c.store.ListSessions(ctx)
	}
	return nil
}

// recentTurns converts the tail of the message log into {role, content}
// pairs. The store already excludes the synthetic greeting.
func (c *ChatController) recentTurns() []models.ChatTurn {
	messages := c.store.historyMessages()

	turns := make([]models.ChatTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, models.ChatTurn{Role: m.Role, Content: m.Content})
	}

	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}
	return turns
}

// DeriveTitle names a fresh session after its opening message, truncated to
// 50 characters.
func DeriveTitle(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return message
}
