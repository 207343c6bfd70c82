package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"datahalo/internal/models"
	"datahalo/internal/services"
)

type stubAnalyzer struct {
	result *models.AnalysisResult
	err    error
	called int
}

func (s *stubAnalyzer) Analyze(context.Context, string) (*models.AnalysisResult, error) {
	s.called++
	return s.result, s.err
}

type stubFetcher struct {
	title string
	text  string
	err   error
}

func (s *stubFetcher) FetchArticle(string) (string, string, error) {
	return s.title, s.text, s.err
}

const longEnoughArticle = "City officials confirmed on Monday that the downtown transit project " +
	"will open three months ahead of schedule, citing favorable weather and an early " +
	"equipment delivery as the main reasons for the accelerated timeline."

func TestAnalyzeArticleRejectsShortText(t *testing.T) {
	analyzer := &stubAnalyzer{}
	h := NewAnalyzerHandler(analyzer, &stubFetcher{}, services.NewFileExtractService())

	rr := postJSON(t, h.AnalyzeArticle, "/analyze-article", models.AnalyzeRequest{
		Article: "too short to grade",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}

	var resp models.AnalyzeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "error" || !strings.Contains(resp.Message, "at least 20 words") {
		t.Errorf("Expected word-minimum error, got %+v", resp)
	}
	if analyzer.called != 0 {
		t.Errorf("Expected the analyzer never invoked, got %d calls", analyzer.called)
	}
}

func TestAnalyzeArticleSuccess(t *testing.T) {
	result := &models.AnalysisResult{
		OverallScore: 78,
		LetterGrade:  "C+",
		ScoreBreakdown: models.ScoreBreakdown{
			Accuracy: 80, Sourcing: 75, Balance: 78, Context: 76,
			Transparency: 79, Language: 82, Headline: 74, Evidence: 77,
		},
	}
	h := NewAnalyzerHandler(&stubAnalyzer{result: result}, &stubFetcher{}, services.NewFileExtractService())

	rr := postJSON(t, h.AnalyzeArticle, "/analyze-article", models.AnalyzeRequest{Article: longEnoughArticle})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.AnalyzeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "success" || resp.Analysis == nil {
		t.Fatalf("Expected a success payload with analysis, got %+v", resp)
	}
	if resp.Analysis.OverallScore != 78 {
		t.Errorf("Expected overall score 78, got %d", resp.Analysis.OverallScore)
	}
}

func TestAnalyzeURLRequiresURL(t *testing.T) {
	h := NewAnalyzerHandler(&stubAnalyzer{}, &stubFetcher{}, services.NewFileExtractService())

	rr := postJSON(t, h.AnalyzeURL, "/analyze-url", models.AnalyzeURLRequest{URL: "  "})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a url, got %d", rr.Code)
	}
}

func TestAnalyzeURLPipesFetchedText(t *testing.T) {
	analyzer := &stubAnalyzer{result: &models.AnalysisResult{OverallScore: 70, LetterGrade: "C-"}}
	fetcher := &stubFetcher{title: "Transit Opens Early", text: longEnoughArticle}
	h := NewAnalyzerHandler(analyzer, fetcher, services.NewFileExtractService())

	rr := postJSON(t, h.AnalyzeURL, "/analyze-url", models.AnalyzeURLRequest{
		URL: "https://example.com/news/transit",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if analyzer.called != 1 {
		t.Errorf("Expected one analyzer call, got %d", analyzer.called)
	}
}

func TestAnalyzeSurfacesValidationDetail(t *testing.T) {
	analyzer := &stubAnalyzer{err: &services.ValidationError{
		Fields: map[string]string{"article": "Article must be at least 20 words"},
	}}
	h := NewAnalyzerHandler(analyzer, &stubFetcher{}, services.NewFileExtractService())

	rr := postJSON(t, h.AnalyzeArticle, "/analyze-article", models.AnalyzeRequest{Article: longEnoughArticle})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	var resp models.AnalyzeResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Message != "Article must be at least 20 words" {
		t.Errorf("Expected the validation detail verbatim, got %q", resp.Message)
	}
}
