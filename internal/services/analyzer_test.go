package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"datahalo/internal/models"
)

var sampleStats = models.ArticleStats{
	WordCount: 95, SentenceCount: 4, ParagraphCount: 4,
	AvgSentenceLength: 23.8, ReadabilityScore: 41.2,
}

func TestParseAnalysis_CleanJSON(t *testing.T) {
	raw := `{
		"overallScore": 84,
		"confidence": 0.9,
		"scoreBreakdown": {"accuracy": 85, "sourcing": 78, "balance": 88, "context": 82,
			"transparency": 80, "language": 90, "headline": 79, "evidence": 86},
		"strengths": ["Multiple perspectives quoted"],
		"criticalIssues": [],
		"detailedIssues": [{"category": "sourcing", "severity": "medium",
			"issue": "Single anonymous source", "suggestion": "Name the source or corroborate"}],
		"improvementActions": [{"priority": "high", "issue": "Unverified figure",
			"howToFix": "Cite the official count"}],
		"learningRecommendations": ["Compare headlines across outlets"],
		"aiInsights": "Solid overall."
	}`

	result, err := parseAnalysis(raw, sampleStats)
	if err != nil {
		t.Fatalf("parseAnalysis failed: %v", err)
	}

	if result.OverallScore != 84 {
		t.Errorf("Expected overall score 84, got %d", result.OverallScore)
	}
	if result.LetterGrade != "B" {
		t.Errorf("Expected letter grade B, got %q", result.LetterGrade)
	}
	if result.ScoreBreakdown.Language != 90 {
		t.Errorf("Expected language score 90, got %d", result.ScoreBreakdown.Language)
	}
	if result.ArticleStats != sampleStats {
		t.Errorf("Expected locally computed stats, got %+v", result.ArticleStats)
	}
	if result.Confidence == nil || *result.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", result.Confidence)
	}
}

func TestParseAnalysis_StripsFencesAndProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"markdown fences", "```json\n{\"overallScore\": 70, \"scoreBreakdown\": {\"accuracy\": 70}}\n```"},
		{"prose padding", "Here is your report:\n{\"overallScore\": 70, \"scoreBreakdown\": {\"accuracy\": 70}}\nHope that helps!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := parseAnalysis(tc.raw, sampleStats)
			if err != nil {
				t.Fatalf("parseAnalysis failed: %v", err)
			}
			if result.OverallScore != 70 {
				t.Errorf("Expected overall score 70, got %d", result.OverallScore)
			}
		})
	}
}

func TestParseAnalysis_ClampsAndDefaults(t *testing.T) {
	raw := `{
		"overallScore": 140,
		"confidence": 1.7,
		"scoreBreakdown": {"accuracy": -5, "sourcing": 101, "balance": 50, "context": 50,
			"transparency": 50, "language": 50, "headline": 50, "evidence": 50},
		"detailedIssues": [{"category": "tone", "severity": "catastrophic", "issue": "x", "suggestion": "y"}],
		"improvementActions": [{"priority": "urgent", "issue": "x", "howToFix": "y"}]
	}`

	result, err := parseAnalysis(raw, sampleStats)
	if err != nil {
		t.Fatalf("parseAnalysis failed: %v", err)
	}

	if result.OverallScore != 100 {
		t.Errorf("Expected overall score clamped to 100, got %d", result.OverallScore)
	}
	if result.ScoreBreakdown.Accuracy != 0 {
		t.Errorf("Expected accuracy clamped to 0, got %d", result.ScoreBreakdown.Accuracy)
	}
	if result.ScoreBreakdown.Sourcing != 100 {
		t.Errorf("Expected sourcing clamped to 100, got %d", result.ScoreBreakdown.Sourcing)
	}
	if result.Confidence == nil || *result.Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", result.Confidence)
	}
	if result.DetailedIssues[0].Severity != models.SeverityMedium {
		t.Errorf("Expected invalid severity coerced to medium, got %q", result.DetailedIssues[0].Severity)
	}
	if result.ImprovementActions[0].Priority != models.PriorityMedium {
		t.Errorf("Expected invalid priority coerced to medium, got %q", result.ImprovementActions[0].Priority)
	}
	if result.Strengths == nil || result.LearningRecommendations == nil {
		t.Error("Expected nil list fields replaced with empty slices")
	}
	if result.LetterGrade != "A+" {
		t.Errorf("Expected letter grade derived from clamped score, got %q", result.LetterGrade)
	}
}

func TestParseAnalysis_RejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "I could not grade this article.", "{broken json"} {
		if _, err := parseAnalysis(raw, sampleStats); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestAnalyzeRejectsShortArticles(t *testing.T) {
	// A nil client is fine: validation runs before any model access.
	s := &AnalyzerService{}

	_, err := s.Analyze(context.Background(), "way too short")
	if err == nil {
		t.Fatal("Expected a validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if vErr.Fields["article"] == "" {
		t.Error("Expected a field error for 'article'")
	}
}

func TestStripJSONFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := strings.TrimSpace(stripJSONFences(tc.in)); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}
