package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"datahalo/internal/models"
)

// MinArticleWords is the shortest article the grader will accept.
const MinArticleWords = 20

// AnalyzerService grades article text: local stats plus a Gemini scoring pass
// across the eight credibility categories.
type AnalyzerService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	gate   rateGate
}

func NewAnalyzerService(apiKey string, concurrentReqs int) (*AnalyzerService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.2)
	model.SetTopP(0.95)

	return &AnalyzerService{
		client: client,
		model:  model,
		gate:   newRateGate(concurrentReqs),
	}, nil
}

func (s *AnalyzerService) Close() {
	s.client.Close()
}

// Analyze grades one article. Validation happens before any model call: text
// under MinArticleWords words is rejected locally.
func (s *AnalyzerService) Analyze(ctx context.Context, article string) (*models.AnalysisResult, error) {
	article = strings.TrimSpace(article)
	if len(strings.Fields(article)) < MinArticleWords {
		return nil, &ValidationError{Fields: map[string]string{
			"article": fmt.Sprintf("Article must be at least %d words", MinArticleWords),
		}}
	}

	stats := ComputeArticleStats(article)

	if err := s.gate.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.gate.release()

	resp, err := s.model.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(article)))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	result, err := parseAnalysis(extractText(resp), stats)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GradeSubmission grades a case-study or assignment submission, condensing the
// full report into a score and short written feedback.
func (s *AnalyzerService) GradeSubmission(ctx context.Context, content string) (int, string, string, error) {
	result, err := s.Analyze(ctx, content)
	if err != nil {
		return 0, "", "", err
	}

	var b strings.Builder
	if len(result.Strengths) > 0 {
		b.WriteString("Strengths: ")
		b.WriteString(strings.Join(result.Strengths, "; "))
		b.WriteString(". ")
	}
	if len(result.CriticalIssues) > 0 {
		b.WriteString("Critical issues: ")
		b.WriteString(strings.Join(result.CriticalIssues, "; "))
		b.WriteString(".")
	}
	feedback := strings.TrimSpace(b.String())
	if feedback == "" {
		feedback = "Graded automatically."
	}

	return result.OverallScore, result.LetterGrade, feedback, nil
}

func buildAnalysisPrompt(article string) string {
	var b strings.Builder

	b.WriteString("You are an expert journalism reviewer grading an article for a media-literacy class.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(`Grade the article 0-100 in each of these categories: accuracy, sourcing, balance,
context, transparency, language, headline, evidence. Then produce the overall report.

JSON schema:
{
  "overallScore": int,
  "confidence": float between 0 and 1,
  "scoreBreakdown": {"accuracy": int, "sourcing": int, "balance": int, "context": int,
                     "transparency": int, "language": int, "headline": int, "evidence": int},
  "strengths": ["string"],
  "criticalIssues": ["string"],
  "detailedIssues": [{"category": "string", "severity": "high"|"medium"|"low",
                      "issue": "string", "suggestion": "string",
                      "location": "string or null", "example": "string or null"}],
  "improvementActions": [{"priority": "high"|"medium"|"low", "issue": "string",
                          "howToFix": "string", "before": "string or null", "after": "string or null"}],
  "learningRecommendations": ["string"],
  "aiInsights": "string or null"
}
`)

	b.WriteString("\n---ARTICLE START---\n")
	b.WriteString(article)
	b.WriteString("\n---ARTICLE END---\n")

	return b.String()
}

// parseAnalysis validates and clamps the model's JSON into an AnalysisResult.
// An unparseable reply is an error; no partial result is ever returned.
func parseAnalysis(raw string, stats models.ArticleStats) (*models.AnalysisResult, error) {
	raw = stripJSONFences(raw)

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		// The model sometimes pads the object with prose; try the outermost braces.
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("analysis response is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
			return nil, fmt.Errorf("analysis response is not valid JSON: %w", err)
		}
	}

	result.OverallScore = clampScore(result.OverallScore)
	result.ScoreBreakdown = models.ScoreBreakdown{
		Accuracy:     clampScore(result.ScoreBreakdown.Accuracy),
		Sourcing:     clampScore(result.ScoreBreakdown.Sourcing),
		Balance:      clampScore(result.ScoreBreakdown.Balance),
		Context:      clampScore(result.ScoreBreakdown.Context),
		Transparency: clampScore(result.ScoreBreakdown.Transparency),
		Language:     clampScore(result.ScoreBreakdown.Language),
		Headline:     clampScore(result.ScoreBreakdown.Headline),
		Evidence:     clampScore(result.ScoreBreakdown.Evidence),
	}

	if result.Confidence != nil {
		c := *result.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		result.Confidence = &c
	}

	for i := range result.DetailedIssues {
		if !result.DetailedIssues[i].Severity.Valid() {
			result.DetailedIssues[i].Severity = models.SeverityMedium
		}
	}
	for i := range result.ImprovementActions {
		if !result.ImprovementActions[i].Priority.Valid() {
			result.ImprovementActions[i].Priority = models.PriorityMedium
		}
	}

	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.CriticalIssues == nil {
		result.CriticalIssues = []string{}
	}
	if result.DetailedIssues == nil {
		result.DetailedIssues = []models.DetailedIssue{}
	}
	if result.ImprovementActions == nil {
		result.ImprovementActions = []models.ImprovementAction{}
	}
	if result.LearningRecommendations == nil {
		result.LearningRecommendations = []string{}
	}

	// The letter grade and article stats are always derived locally.
	result.LetterGrade = models.LetterGrade(result.OverallScore)
	result.ArticleStats = stats

	return &result, nil
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
