// Package client is the typed SDK the DataHalo frontend is built on: an API
// gateway client plus the session store and the chat/analysis controllers
// that manage multi-session tutor state and article grading cycles.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"

	"datahalo/internal/models"
)

// Client issues typed HTTP calls against the DataHalo API. Failures propagate
// to the caller as errors; there is no retry or backoff policy, and no timeout
// beyond the underlying http.Client's.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient builds a client for the given base URL. An empty baseURL falls
// back to the DATAHALO_API_URL environment variable.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("DATAHALO_API_URL")
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// SetToken attaches a bearer token to all subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is a non-2xx response. Message carries the server-provided detail
// verbatim when present, so callers can surface it directly.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// parseAPIError extracts the server's error detail. The API speaks two error
// dialects: the {"error": {code, message}} envelope on most routes, and the
// flat {"status": "error", "message"|"detail"} shape on the analyze routes.
func parseAPIError(status int, body []byte) *APIError {
	var envelope models.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{
			StatusCode: status,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
			Fields:     envelope.Error.Fields,
		}
	}

	var flat struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		if flat.Detail != "" {
			return &APIError{StatusCode: status, Message: flat.Detail}
		}
		if flat.Message != "" {
			return &APIError{StatusCode: status, Message: flat.Message}
		}
	}

	return &APIError{StatusCode: status, Message: string(body)}
}

// ──── AI Tutor ────

func (c *Client) ListChats(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	var resp models.ChatListResponse
	err := c.do(ctx, http.MethodGet, "/ai-tutor/chats/"+userID.String(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

func (c *Client) GetMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	var resp models.ChatMessagesResponse
	err := c.do(ctx, http.MethodGet, "/ai-tutor/chat/"+chatID.String()+"/messages", nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) CreateChat(ctx context.Context, userID uuid.UUID, title string) (*models.ChatCreateResponse, error) {
	var resp models.ChatCreateResponse
	req := models.CreateChatRequest{UserID: userID, Title: title}
	if err := c.do(ctx, http.MethodPost, "/ai-tutor/chat/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RenameChat(ctx context.Context, chatID uuid.UUID, title string) error {
	req := models.RenameChatRequest{ChatID: chatID, Title: title}
	return c.do(ctx, http.MethodPut, "/ai-tutor/chat/title", req, nil)
}

func (c *Client) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/ai-tutor/chat/"+chatID.String(), nil, nil)
}

func (c *Client) Ask(ctx context.Context, req models.TutorRequest) (*models.TutorResponse, error) {
	var resp models.TutorResponse
	if err := c.do(ctx, http.MethodPost, "/ai-tutor", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ──── Article Analyzer ────

func (c *Client) AnalyzeArticle(ctx context.Context, article string) (*models.AnalysisResult, error) {
	var resp models.AnalyzeResponse
	req := models.AnalyzeRequest{Article: article}
	if err := c.do(ctx, http.MethodPost, "/analyze-article", req, &resp); err != nil {
		return nil, err
	}
	if resp.Analysis == nil {
		return nil, fmt.Errorf("analysis missing from response")
	}
	return resp.Analysis, nil
}

func (c *Client) AnalyzeURL(ctx context.Context, articleURL string) (*models.AnalysisResult, error) {
	var resp models.AnalyzeResponse
	req := models.AnalyzeURLRequest{URL: articleURL}
	if err := c.do(ctx, http.MethodPost, "/analyze-url", req, &resp); err != nil {
		return nil, err
	}
	if resp.Analysis == nil {
		return nil, fmt.Errorf("analysis missing from response")
	}
	return resp.Analysis, nil
}

// ──── Auth ────

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	var tokens models.AuthTokens
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthTokens, error) {
	var tokens models.AuthTokens
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	req := models.RefreshRequest{RefreshToken: refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", req, nil)
}

// ──── LMS ────

func (c *Client) StudentCourses(ctx context.Context, studentID uuid.UUID) ([]models.Course, error) {
	var resp models.CoursesResponse
	err := c.do(ctx, http.MethodGet, "/lms/courses/student/"+studentID.String(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Courses, nil
}

func (c *Client) TeacherCourses(ctx context.Context, teacherID uuid.UUID) ([]models.Course, error) {
	var resp models.CoursesResponse
	err := c.do(ctx, http.MethodGet, "/lms/courses/teacher/"+teacherID.String(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Courses, nil
}

func (c *Client) Enroll(ctx context.Context, studentID uuid.UUID, joinCode string) (*models.Course, error) {
	var course models.Course
	req := models.EnrollRequest{StudentID: studentID, JoinCode: joinCode}
	if err := c.do(ctx, http.MethodPost, "/lms/enroll", req, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) SubmitWork(ctx context.Context, req models.SubmitRequest) (*models.Submission, error) {
	var resp struct {
		Status     string             `json:"status"`
		Submission *models.Submission `json:"submission"`
	}
	if err := c.do(ctx, http.MethodPost, "/lms/submissions/submit", req, &resp); err != nil {
		return nil, err
	}
	return resp.Submission, nil
}

func (c *Client) Journalists(ctx context.Context) ([]models.Journalist, error) {
	var resp models.JournalistsResponse
	if err := c.do(ctx, http.MethodGet, "/lms/journalists/all", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Journalists, nil
}
