package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"datahalo/internal/models"
	"datahalo/internal/services"
)

// Server-side cap on how much replayed history goes into the prompt,
// regardless of what the client sends.
const maxHistoryTurns = 20

type chatRepository interface {
	CreateSession(ctx context.Context, s *models.ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error)
	RenameSession(ctx context.Context, id uuid.UUID, title string) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	AppendMessage(ctx context.Context, chatID uuid.UUID, m *models.Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
}

type tutorService interface {
	Respond(ctx context.Context, history []models.ChatTurn, message string) (string, []models.Source, bool, error)
}

type TutorHandler struct {
	chatRepo chatRepository
	tutor    tutorService
}

func NewTutorHandler(chatRepo chatRepository, tutor tutorService) *TutorHandler {
	return &TutorHandler{chatRepo: chatRepo, tutor: tutor}
}

func (h *TutorHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid user ID", r))
		return
	}

	chats, err := h.chatRepo.ListSessionsByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list chats", r))
		return
	}
	if chats == nil {
		chats = []models.ChatSession{}
	}

	writeJSON(w, http.StatusOK, models.ChatListResponse{Status: "success", Chats: chats})
}

func (h *TutorHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "chatId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}

	if _, err := h.chatRepo.GetSession(r.Context(), chatID); err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Chat not found", r))
		return
	}

	messages, err := h.chatRepo.ListMessages(r.Context(), chatID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load messages", r))
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	writeJSON(w, http.StatusOK, models.ChatMessagesResponse{Status: "success", Messages: messages})
}

func (h *TutorHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.UserID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "user_id is required", r))
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New Chat"
	}

	userID := req.UserID
	session := &models.ChatSession{UserID: &userID, Title: title}
	if err := h.chatRepo.CreateSession(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create chat", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatCreateResponse{
		Status: "success",
		ChatID: session.ID,
		Title:  session.Title,
	})
}

func (h *TutorHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	var req models.RenameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	title := strings.TrimSpace(req.Title)
	if req.ChatID == uuid.Nil || title == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "chat_id and title are required", r))
		return
	}

	if err := h.chatRepo.RenameSession(r.Context(), req.ChatID, title); err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Chat not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *TutorHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "chatId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}

	if err := h.chatRepo.DeleteSession(r.Context(), chatID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete chat", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Ask is the main tutor exchange. When chat_id is null a session is created on
// the fly (anonymous users included) and its id returned for the client to adopt.
func (h *TutorHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.TutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	history := req.ConversationHistory
	for _, turn := range history {
		if !turn.Role.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid role in conversation history", r))
			return
		}
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	chatID := req.ChatID
	if chatID == nil {
		title := services.DeriveChatTitle(message)
		if req.ChatTitle != nil && strings.TrimSpace(*req.ChatTitle) != "" {
			title = strings.TrimSpace(*req.ChatTitle)
		}
		session := &models.ChatSession{UserID: req.UserID, Title: title}
		if err := h.chatRepo.CreateSession(r.Context(), session); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create chat", r))
			return
		}
		chatID = &session.ID
	} else if _, err := h.chatRepo.GetSession(r.Context(), *chatID); err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Chat not found", r))
		return
	}

	userMsg := &models.Message{Role: models.RoleUser, Content: message}
	if err := h.chatRepo.AppendMessage(r.Context(), *chatID, userMsg); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store message", r))
		return
	}

	reply, sources, grounded, err := h.tutor.Respond(r.Context(), history, message)
	if err != nil {
		log.Printf("tutor response failed for chat %s: %v", chatID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("AI_ERROR", "Failed to get AI response", r))
		return
	}

	assistantMsg := &models.Message{
		Role:          models.RoleAssistant,
		Content:       reply,
		WebSearchUsed: grounded,
		Sources:       sources,
	}
	if err := h.chatRepo.AppendMessage(r.Context(), *chatID, assistantMsg); err != nil {
		log.Printf("failed to store assistant reply for chat %s: %v", chatID, err)
	}

	writeJSON(w, http.StatusOK, models.TutorResponse{
		Response:    reply,
		ContextUsed: grounded,
		Sources:     sources,
		ChatID:      chatID,
	})
}
