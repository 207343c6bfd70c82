package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"datahalo/internal/models"
)

const tutorSystemPrompt = `You are the DataHalo media-literacy tutor. You help students
learn to evaluate news coverage: spotting bias, weak sourcing, missing context,
loaded language, and misleading framing. Be encouraging but precise, cite the
concepts by name, and keep answers focused on the student's question. Name the
sources behind any factual claims you make.`

// TutorService answers student questions with Gemini, replaying conversation
// history and surfacing the citations the model grounded its reply in.
type TutorService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	gate   rateGate
}

func NewTutorService(apiKey string, concurrentReqs int) (*TutorService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(tutorSystemPrompt)},
	}

	return &TutorService{
		client: client,
		model:  model,
		gate:   newRateGate(concurrentReqs),
	}, nil
}

func (s *TutorService) Close() {
	s.client.Close()
}

// Respond sends the message with the prior turns replayed as chat history.
// It returns the reply, the distinct web citations it carried, and whether
// the model grounded the reply in external sources at all (citation metadata
// can be present even when no citation yields a usable URL).
func (s *TutorService) Respond(ctx context.Context, history []models.ChatTurn, message string) (string, []models.Source, bool, error) {
	if err := s.gate.acquire(ctx); err != nil {
		return "", nil, false, err
	}
	defer s.gate.release()

	chat := s.model.StartChat()
	chat.History = make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Role == models.RoleAssistant {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", nil, false, fmt.Errorf("Gemini API error: %w", err)
	}

	reply := strings.TrimSpace(extractText(resp))
	if reply == "" {
		return "", nil, false, fmt.Errorf("Gemini returned an empty reply")
	}

	return reply, citationSources(resp), responseGrounded(resp), nil
}

// responseGrounded reports whether any candidate carries citation metadata,
// independent of whether the citations have extractable URLs.
func responseGrounded(resp *genai.GenerateContentResponse) bool {
	for _, cand := range resp.Candidates {
		if cand.CitationMetadata != nil && len(cand.CitationMetadata.CitationSources) > 0 {
			return true
		}
	}
	return false
}

// citationSources collects the distinct web citations from a response.
func citationSources(resp *genai.GenerateContentResponse) []models.Source {
	var sources []models.Source
	seen := make(map[string]bool)

	for _, cand := range resp.Candidates {
		if cand.CitationMetadata == nil {
			continue
		}
		for _, cs := range cand.CitationMetadata.CitationSources {
			if cs.URI == nil || *cs.URI == "" || seen[*cs.URI] {
				continue
			}
			seen[*cs.URI] = true
			sources = append(sources, models.Source{
				Title: sourceTitle(*cs.URI),
				URL:   *cs.URI,
			})
		}
	}
	return sources
}

func sourceTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// DeriveChatTitle builds a session title from the opening message: its first
// 50 characters.
func DeriveChatTitle(message string) string {
	title := strings.TrimSpace(message)
	runes := []rune(title)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	if title == "" {
		return "New Chat"
	}
	return title
}
