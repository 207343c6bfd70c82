package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"datahalo/internal/models"
)

func TestCreateSessionRequiresAuth(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
	}))
	store := NewSessionStore(api, &fakeAuth{}, nil)

	if _, err := store.CreateSession(context.Background(), "New Chat"); err != ErrNotAuthenticated {
		t.Fatalf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestCreateSessionPrependsAndGreets(t *testing.T) {
	newID := uuid.New()
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ChatCreateResponse{
			Status: "success",
			ChatID: newID,
			Title:  "New Chat",
		})
	}))

	store := NewSessionStore(api, &fakeAuth{user: testUser()}, nil)
	existing := models.ChatSession{ID: uuid.New(), Title: "Older chat"}
	store.sessions = []models.ChatSession{existing}

	session, err := store.CreateSession(context.Background(), "New Chat")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID != newID {
		t.Errorf("Expected session id %s, got %s", newID, session.ID)
	}

	if len(store.Sessions()) != 2 || store.Sessions()[0].ID != newID {
		t.Errorf("Expected new session prepended, got %+v", store.Sessions())
	}
	if store.ActiveID() == nil || *store.ActiveID() != newID {
		t.Errorf("Expected new session active, got %v", store.ActiveID())
	}

	messages := store.Messages()
	if len(messages) != 1 {
		t.Fatalf("Expected a single synthetic greeting, got %d messages", len(messages))
	}
	if messages[0].Role != models.RoleAssistant || messages[0].Content != welcomeText {
		t.Errorf("Expected assistant greeting, got %+v", messages[0])
	}
}

func TestListSessionsFailsSilently(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`))
	}))

	var notified string
	store := NewSessionStore(api, &fakeAuth{user: testUser()}, func(msg string) { notified = msg })
	prior := []models.ChatSession{{ID: uuid.New(), Title: "Kept"}}
	store.sessions = prior

	store.ListSessions(context.Background())

	if len(store.Sessions()) != 1 || store.Sessions()[0].Title != "Kept" {
		t.Errorf("Expected session list unchanged on failure, got %+v", store.Sessions())
	}
	if notified != "" {
		t.Errorf("List failures are off the critical path; expected no notification, got %q", notified)
	}
}

func TestLoadMessagesKeepsPriorStateOnFailure(t *testing.T) {
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"Chat not found"}}`))
	}))

	var notified string
	store := NewSessionStore(api, &fakeAuth{user: testUser()}, func(msg string) { notified = msg })
	priorID := uuid.New()
	store.activeID = &priorID
	store.messages = []models.Message{{Role: models.RoleUser, Content: "kept"}}

	if err := store.LoadMessages(context.Background(), uuid.New()); err == nil {
		t.Fatal("Expected an error")
	}

	if store.ActiveID() == nil || *store.ActiveID() != priorID {
		t.Errorf("Expected active session unchanged, got %v", store.ActiveID())
	}
	if len(store.Messages()) != 1 || store.Messages()[0].Content != "kept" {
		t.Errorf("Expected message log untouched, got %+v", store.Messages())
	}
	if notified == "" {
		t.Error("Expected a user-visible notification")
	}
}

func TestDeleteActiveSessionFallsBackToFirstRemaining(t *testing.T) {
	first := models.ChatSession{ID: uuid.New(), Title: "First"}
	active := models.ChatSession{ID: uuid.New(), Title: "Active"}

	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			w.Write([]byte(`{"status":"success"}`))
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
			if !strings.Contains(r.URL.Path, first.ID.String()) {
				t.Errorf("Expected messages loaded for first remaining session, got %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"status":"success","messages":[{"role":"user","content":"from first"}]}`)
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	store := NewSessionStore(api, &fakeAuth{user: testUser()}, nil)
	store.sessions = []models.ChatSession{active, first}
	store.activeID = &active.ID
	store.messages = []models.Message{{Role: models.RoleUser, Content: "old"}}

	if err := store.DeleteSession(context.Background(), active.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if len(store.Sessions()) != 1 || store.Sessions()[0].ID != first.ID {
		t.Errorf("Expected only the first session to remain, got %+v", store.Sessions())
	}
	if store.ActiveID() == nil || *store.ActiveID() != first.ID {
		t.Errorf("Expected first remaining session active, got %v", store.ActiveID())
	}
	if len(store.Messages()) != 1 || store.Messages()[0].Content != "from first" {
		t.Errorf("Expected messages replaced from new active session, got %+v", store.Messages())
	}
}

func TestDeleteLastSessionEmptiesLog(t *testing.T) {
	only := models.ChatSession{ID: uuid.New(), Title: "Only"}
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"status":"success"}`))
	}))

	store := NewSessionStore(api, &fakeAuth{user: testUser()}, nil)
	store.sessions = []models.ChatSession{only}
	store.activeID = &only.ID
	store.messages = []models.Message{{Role: models.RoleUser, Content: "bye"}}

	if err := store.DeleteSession(context.Background(), only.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if len(store.Sessions()) != 0 {
		t.Errorf("Expected no sessions, got %+v", store.Sessions())
	}
	if store.ActiveID() != nil {
		t.Errorf("Expected no active session, got %v", store.ActiveID())
	}
	if len(store.Messages()) != 0 {
		t.Errorf("Expected empty message log, got %+v", store.Messages())
	}
}

func TestDeleteInactiveSessionKeepsActiveState(t *testing.T) {
	activeSession := models.ChatSession{ID: uuid.New(), Title: "Active"}
	other := models.ChatSession{ID: uuid.New(), Title: "Other"}
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	}))

	store := NewSessionStore(api, &fakeAuth{user: testUser()}, nil)
	store.sessions = []models.ChatSession{activeSession, other}
	store.activeID = &activeSession.ID
	store.messages = []models.Message{{Role: models.RoleUser, Content: "kept"}}

	if err := store.DeleteSession(context.Background(), other.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if store.ActiveID() == nil || *store.ActiveID() != activeSession.ID {
		t.Errorf("Expected active session unchanged, got %v", store.ActiveID())
	}
	if len(store.Messages()) != 1 || store.Messages()[0].Content != "kept" {
		t.Errorf("Expected message log untouched, got %+v", store.Messages())
	}
}
