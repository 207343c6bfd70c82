package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"datahalo/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) CreateSession(ctx context.Context, s *models.ChatSession) error {
	s.ID = uuid.New()
	query := `INSERT INTO chat_sessions (id, user_id, title)
		VALUES ($1, $2, $3) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.Title).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *ChatRepo) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	query := `SELECT id, user_id, title, message_count, created_at, updated_at
		FROM chat_sessions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.Title, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessionsByUser returns the user's sessions newest-activity first, the
// order the session sidebar shows them.
func (r *ChatRepo) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	query := `SELECT id, user_id, title, message_count, created_at, updated_at
		FROM chat_sessions WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *ChatRepo) RenameSession(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE chat_sessions SET title = $1, updated_at = NOW() WHERE id = $2", title, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat session %s not found", id)
	}
	return nil
}

func (r *ChatRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_sessions WHERE id = $1", id)
	return err
}

// AppendMessage stores one turn and bumps the session's counters in a single
// transaction so message_count never drifts from the log.
func (r *ChatRepo) AppendMessage(ctx context.Context, chatID uuid.UUID, m *models.Message) error {
	var sourcesJSON []byte
	if len(m.Sources) > 0 {
		sourcesJSON, _ = json.Marshal(m.Sources)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO chat_messages (id, chat_id, role, content, web_search_used, sources)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		uuid.New(), chatID, m.Role, m.Content, m.WebSearchUsed, sourcesJSON,
	).Scan(&m.Timestamp)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		"UPDATE chat_sessions SET message_count = message_count + 1, updated_at = NOW() WHERE id = $1",
		chatID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	query := `SELECT role, content, web_search_used, sources, created_at
		FROM chat_messages WHERE chat_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var sourcesJSON []byte
		if err := rows.Scan(&m.Role, &m.Content, &m.WebSearchUsed, &sourcesJSON, &m.Timestamp); err != nil {
			return nil, err
		}
		if len(sourcesJSON) > 0 {
			json.Unmarshal(sourcesJSON, &m.Sources)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
