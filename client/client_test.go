package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"datahalo/internal/models"
)

// fakeAuth satisfies Authenticator with a fixed user (nil = anonymous).
type fakeAuth struct {
	user *models.User
}

func (f *fakeAuth) CurrentUser() *models.User { return f.user }

func testUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Email:    "student@example.com",
		FullName: "Test Student",
		Role:     models.RoleStudent,
	}
}

// newTestClient wires a Client against an httptest server and returns both.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL), server
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "error envelope",
			status:  400,
			body:    `{"error":{"code":"VALIDATION_ERROR","message":"Message is required"}}`,
			wantMsg: "Message is required",
		},
		{
			name:    "flat message",
			status:  400,
			body:    `{"status":"error","message":"Article is too short"}`,
			wantMsg: "Article is too short",
		},
		{
			name:    "flat detail preferred",
			status:  422,
			body:    `{"detail":"Unprocessable article","message":"generic"}`,
			wantMsg: "Unprocessable article",
		},
		{
			name:    "unparseable body",
			status:  502,
			body:    `Bad Gateway`,
			wantMsg: "Bad Gateway",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := parseAPIError(tc.status, []byte(tc.body))
			if err.StatusCode != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, err.StatusCode)
			}
			if err.Message != tc.wantMsg {
				t.Errorf("Expected message %q, got %q", tc.wantMsg, err.Message)
			}
		})
	}
}

func TestClientSetsAuthHeader(t *testing.T) {
	var gotAuth string
	api, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"success","chats":[]}`))
	}))

	api.SetToken("test-token")
	if _, err := api.ListChats(context.Background(), uuid.New()); err != nil {
		t.Fatalf("ListChats failed: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Expected bearer token header, got %q", gotAuth)
	}
}
