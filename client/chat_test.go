package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"datahalo/internal/models"
)

// tutorServer answers POST /ai-tutor with a canned reply and serves an empty
// chat list; it counts every request it sees.
func tutorServer(t *testing.T, reply func(req models.TutorRequest) models.TutorResponse) (*Client, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/ai-tutor":
			var req models.TutorRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("Failed to decode tutor request: %v", err)
			}
			json.NewEncoder(w).Encode(reply(req))
		case strings.HasPrefix(r.URL.Path, "/ai-tutor/chats/"):
			w.Write([]byte(`{"status":"success","chats":[]}`))
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	return api, &calls
}

func TestSendMessagePreservesCallOrder(t *testing.T) {
	var replyNum atomic.Int64
	api, _ := tutorServer(t, func(req models.TutorRequest) models.TutorResponse {
		id := uuid.New()
		return models.TutorResponse{
			Response: fmt.Sprintf("reply %d", replyNum.Add(1)),
			ChatID:   &id,
		}
	})

	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	ctrl := NewChatController(api, store, auth, nil)

	for i := 1; i <= 3; i++ {
		if err := ctrl.SendMessage(context.Background(), fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("SendMessage %d failed: %v", i, err)
		}
	}

	want := []string{
		"question 1", "reply 1",
		"question 2", "reply 2",
		"question 3", "reply 3",
	}
	messages := store.Messages()
	if len(messages) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(messages))
	}
	for i, m := range messages {
		if m.Content != want[i] {
			t.Errorf("Message %d: expected %q, got %q", i, want[i], m.Content)
		}
		wantRole := models.RoleUser
		if i%2 == 1 {
			wantRole = models.RoleAssistant
		}
		if m.Role != wantRole {
			t.Errorf("Message %d: expected role %q, got %q", i, wantRole, m.Role)
		}
	}
}

func TestSendMessageRejectsBlankInput(t *testing.T) {
	api, calls := tutorServer(t, func(models.TutorRequest) models.TutorResponse {
		return models.TutorResponse{Response: "should not happen"}
	})

	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	ctrl := NewChatController(api, store, auth, nil)

	for _, input := range []string{"", "   ", "\n\t "} {
		if err := ctrl.SendMessage(context.Background(), input); err != ErrEmptyMessage {
			t.Errorf("Input %q: expected ErrEmptyMessage, got %v", input, err)
		}
	}

	if n := calls.Load(); n != 0 {
		t.Errorf("Expected no network calls, got %d", n)
	}
	if len(store.Messages()) != 0 {
		t.Errorf("Expected empty message log, got %d messages", len(store.Messages()))
	}
}

func TestSendMessageRejectsOverlappingSend(t *testing.T) {
	api, calls := tutorServer(t, func(models.TutorRequest) models.TutorResponse {
		return models.TutorResponse{Response: "ok"}
	})

	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	ctrl := NewChatController(api, store, auth, nil)

	ctrl.sending = true
	if err := ctrl.SendMessage(context.Background(), "hello"); err != ErrSendInFlight {
		t.Errorf("Expected ErrSendInFlight, got %v", err)
	}

	if n := calls.Load(); n != 0 {
		t.Errorf("Expected no network calls, got %d", n)
	}
	if len(store.Messages()) != 0 {
		t.Errorf("Expected empty message log, got %d messages", len(store.Messages()))
	}
}

func TestFirstTurnInNewSessionAdoptsServerChatID(t *testing.T) {
	serverChatID := uuid.New()
	var listRefreshed atomic.Bool
	var captured models.TutorRequest

	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/ai-tutor":
			json.NewDecoder(r.Body).Decode(&captured)
			json.NewEncoder(w).Encode(models.TutorResponse{
				Response: "Media bias is...",
				ChatID:   &serverChatID,
			})
		case strings.HasPrefix(r.URL.Path, "/ai-tutor/chats/"):
			listRefreshed.Store(true)
			fmt.Fprintf(w, `{"status":"success","chats":[{"id":%q,"title":"What is media bias?"}]}`, serverChatID)
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	ctrl := NewChatController(api, store, auth, nil)

	if err := ctrl.SendMessage(context.Background(), "What is media bias?"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if captured.ChatID != nil {
		t.Errorf("Expected chat_id null on first turn, got %v", captured.ChatID)
	}
	if captured.ChatTitle == nil || *captured.ChatTitle != "What is media bias?" {
		t.Errorf("Expected chat_title 'What is media bias?', got %v", captured.ChatTitle)
	}
	if store.ActiveID() == nil || *store.ActiveID() != serverChatID {
		t.Errorf("Expected store to adopt server chat id %s, got %v", serverChatID, store.ActiveID())
	}
	if !listRefreshed.Load() {
		t.Error("Expected the session list to be refreshed after id adoption")
	}
	if len(store.Sessions()) != 1 {
		t.Errorf("Expected 1 session after refresh, got %d", len(store.Sessions()))
	}
}

func TestSendMessageFailureAppendsApology(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Model unavailable"}}`))
	}))

	var notified string
	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	ctrl := NewChatController(api, store, auth, func(msg string) { notified = msg })

	if err := ctrl.SendMessage(context.Background(), "hello"); err == nil {
		t.Fatal("Expected an error from the failed send")
	}

	messages := store.Messages()
	if len(messages) != 2 {
		t.Fatalf("Expected user message plus apology, got %d messages", len(messages))
	}
	if messages[1].Role != models.RoleAssistant || messages[1].Content != apologyText {
		t.Errorf("Expected apology assistant message, got %+v", messages[1])
	}
	if notified == "" {
		t.Error("Expected a user notification on failure")
	}
	if ctrl.Sending() {
		t.Error("Expected controller back in idle state after failure")
	}
}

func TestConversationHistoryWindow(t *testing.T) {
	var captured models.TutorRequest
	api, _ := tutorServer(t, func(req models.TutorRequest) models.TutorResponse {
		captured = req
		return models.TutorResponse{Response: "ok"}
	})

	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	id := uuid.New()
	store.activeID = &id
	store.messages = append(store.messages, models.Message{Role: models.RoleAssistant, Content: welcomeText})
	store.greeted = true
	for i := 0; i < 12; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		store.messages = append(store.messages, models.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	ctrl := NewChatController(api, store, auth, nil)
	if err := ctrl.SendMessage(context.Background(), "latest question"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if len(captured.ConversationHistory) != historyWindow {
		t.Fatalf("Expected %d history turns, got %d", historyWindow, len(captured.ConversationHistory))
	}
	if captured.ConversationHistory[0].Content != "turn 4" {
		t.Errorf("Expected history to start at 'turn 4', got %q", captured.ConversationHistory[0].Content)
	}
	for _, turn := range captured.ConversationHistory {
		if turn.Content == welcomeText {
			t.Error("Synthetic greeting must not appear in conversation history")
		}
	}
}

func TestWebSearchFlagFollowsContextUsed(t *testing.T) {
	tests := []struct {
		name string
		resp models.TutorResponse
		want bool
	}{
		{"grounded without sources", models.TutorResponse{Response: "Grounded answer", ContextUsed: true}, true},
		{"plain answer", models.TutorResponse{Response: "Plain answer"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api, _ := tutorServer(t, func(models.TutorRequest) models.TutorResponse { return tc.resp })

			auth := &fakeAuth{user: testUser()}
			store := NewSessionStore(api, auth, nil)
			id := uuid.New()
			store.activeID = &id
			ctrl := NewChatController(api, store, auth, nil)

			if err := ctrl.SendMessage(context.Background(), "What happened today?"); err != nil {
				t.Fatalf("SendMessage failed: %v", err)
			}

			messages := store.Messages()
			if len(messages) != 2 {
				t.Fatalf("Expected 2 messages, got %d", len(messages))
			}
			if messages[1].WebSearchUsed != tc.want {
				t.Errorf("Expected WebSearchUsed=%v, got %v", tc.want, messages[1].WebSearchUsed)
			}
		})
	}
}

func TestConcurrentSendRejectedWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		json.NewEncoder(w).Encode(models.TutorResponse{Response: "ok"})
	}))

	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	id := uuid.New()
	store.activeID = &id
	ctrl := NewChatController(api, store, auth, nil)

	firstDone := make(chan error, 1)
	go func() { firstDone <- ctrl.SendMessage(context.Background(), "first") }()

	// The in-flight flag is set before the request goes out, so once the
	// server has seen it the second send must be rejected.
	<-started
	if err := ctrl.SendMessage(context.Background(), "second"); err != ErrSendInFlight {
		t.Errorf("Expected ErrSendInFlight, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("First send failed: %v", err)
	}

	messages := store.Messages()
	if len(messages) != 2 {
		t.Errorf("Expected only the first exchange in the log, got %d messages", len(messages))
	}
	if ctrl.Sending() {
		t.Error("Expected controller idle after the first send finished")
	}
}

func TestHistoryKeepsUserEchoOfGreetingText(t *testing.T) {
	var captured models.TutorRequest
	api, _ := tutorServer(t, func(req models.TutorRequest) models.TutorResponse {
		captured = req
		return models.TutorResponse{Response: "ok"}
	})

	auth := &fakeAuth{user: testUser()}
	store := NewSessionStore(api, auth, nil)
	id := uuid.New()
	store.activeID = &id
	store.messages = []models.Message{
		{Role: models.RoleAssistant, Content: welcomeText},
		{Role: models.RoleUser, Content: welcomeText},
		{Role: models.RoleAssistant, Content: "That's my line!"},
	}
	store.greeted = true

	ctrl := NewChatController(api, store, auth, nil)
	if err := ctrl.SendMessage(context.Background(), "anyway"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if len(captured.ConversationHistory) != 2 {
		t.Fatalf("Expected 2 history turns, got %d", len(captured.ConversationHistory))
	}
	first := captured.ConversationHistory[0]
	if first.Role != models.RoleUser || first.Content != welcomeText {
		t.Errorf("Expected the user turn repeating the greeting text kept, got %+v", first)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"short message", "What is media bias?", "What is media bias?"},
		{"trims whitespace", "  hello  ", "hello"},
		{"truncates at 50 runes", strings.Repeat("a", 60), strings.Repeat("a", 50)},
		{"multibyte runes", strings.Repeat("ы", 60), strings.Repeat("ы", 50)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.message); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}
