package client

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"datahalo/internal/models"
)

// welcomeText opens every fresh session. It lives only in client state and is
// never persisted server-side.
const welcomeText = "Hi! I'm your DataHalo tutor. Ask me anything about media literacy, " +
	"spotting misinformation, or evaluating sources."

// SessionStore keeps the in-memory chat session list plus the active
// session's ordered message log, guarded by a mutex. Local mutations are
// applied after server acknowledgment; a full refresh treats the server
// response as authoritative.
type SessionStore struct {
	api    *Client
	auth   Authenticator
	notify func(string)

	mu       sync.Mutex
	sessions []models.ChatSession
	activeID *uuid.UUID
	messages []models.Message
	// greeted marks that messages[0] is the synthetic greeting this store
	// injected, so it can be skipped structurally rather than by content.
	greeted bool
}

// NewSessionStore builds a store. notify receives user-facing error text and
// may be nil.
func NewSessionStore(api *Client, auth Authenticator, notify func(string)) *SessionStore {
	if notify == nil {
		notify = func(string) {}
	}
	return &SessionStore{api: api, auth: auth, notify: notify}
}

func (s *SessionStore) Sessions() []models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

func (s *SessionStore) ActiveID() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *SessionStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

// historyMessages is the active log minus the injected greeting, for replay
// as conversation history.
func (s *SessionStore) historyMessages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := s.messages
	if s.greeted && len(messages) > 0 {
		messages = messages[1:]
	}
	out := make([]models.Message, len(messages))
	copy(out, messages)
	return out
}

// ListSessions refreshes the session list. A failed load is not on the
// critical path, so it logs and leaves the list unchanged.
func (s *SessionStore) ListSessions(ctx context.Context) {
	user := s.auth.CurrentUser()
	if user == nil {
		return
	}

	sessions, err := s.api.ListChats(ctx, user.ID)
	if err != nil {
		log.Printf("failed to load chat sessions: %v", err)
		return
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
}

// LoadMessages switches the active session and replaces the message log
// wholesale. On failure the prior log is kept and the user is notified.
func (s *SessionStore) LoadMessages(ctx context.Context, sessionID uuid.UUID) error {
	messages, err := s.api.GetMessages(ctx, sessionID)
	if err != nil {
		s.notify("Couldn't load this conversation. Please try again.")
		return err
	}

	s.mu.Lock()
	s.activeID = &sessionID
	s.messages = messages
	s.greeted = false
	s.mu.Unlock()
	return nil
}

// CreateSession makes a new server-side session, prepends it to the list,
// and activates it with a single synthetic greeting.
func (s *SessionStore) CreateSession(ctx context.Context, title string) (*models.ChatSession, error) {
	user := s.auth.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	resp, err := s.api.CreateChat(ctx, user.ID, title)
	if err != nil {
		s.notify("Couldn't create a new chat. Please try again.")
		return nil, err
	}

	now := time.Now()
	session := models.ChatSession{
		ID:        resp.ChatID,
		Title:     resp.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions = append([]models.ChatSession{session}, s.sessions...)
	s.activeID = &session.ID
	s.messages = []models.Message{{
		Role:      models.RoleAssistant,
		Content:   welcomeText,
		Timestamp: now,
	}}
	s.greeted = true
	s.mu.Unlock()
	return &session, nil
}

// RenameSession updates the title locally once the server acknowledges.
func (s *SessionStore) RenameSession(ctx context.Context, sessionID uuid.UUID, title string) error {
	if err := s.api.RenameChat(ctx, sessionID, title); err != nil {
		s.notify("Couldn't rename the chat. Please try again.")
		return err
	}

	s.mu.Lock()
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			s.sessions[i].Title = title
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteSession removes the session after server acknowledgment. Deleting the
// active session falls back to the first remaining one, or an empty log when
// none remain.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.api.DeleteChat(ctx, sessionID); err != nil {
		s.notify("Couldn't delete the chat. Please try again.")
		return err
	}

	s.mu.Lock()
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}

	if s.activeID == nil || *s.activeID != sessionID {
		s.mu.Unlock()
		return nil
	}

	if len(s.sessions) > 0 {
		next := s.sessions[0].ID
		s.mu.Unlock()
		return s.LoadMessages(ctx, next)
	}
	s.activeID = nil
	s.messages = nil
	s.greeted = false
	s.mu.Unlock()
	return nil
}

// adoptSession records a server-assigned session id for a conversation that
// started without one.
func (s *SessionStore) adoptSession(id uuid.UUID) {
	s.mu.Lock()
	s.activeID = &id
	s.mu.Unlock()
}

// appendMessage adds to the active log in call order.
func (s *SessionStore) appendMessage(m models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}
