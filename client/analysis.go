package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"datahalo/internal/models"
)

// MinArticleWords is enforced locally before any network call.
const MinArticleWords = 20

var (
	ErrArticleTooShort  = errors.New("article must be at least 20 words")
	ErrAnalysisInFlight = errors.New("an analysis is already in flight")
	ErrNoAnalysis       = errors.New("no analysis result to submit")
	ErrNoClassSelected  = errors.New("select a class before submitting")
)

// AnalysisController runs article grading cycles. Each successful analysis
// replaces the previous result wholesale and resets the results view to the
// overview tab; a failed one keeps no partial result.
type AnalysisController struct {
	api    *Client
	auth   Authenticator
	notify func(string)

	mu            sync.Mutex
	analyzing     bool
	result        *models.AnalysisResult
	article       string
	activeTab     string
	selectedClass *uuid.UUID
}

func NewAnalysisController(api *Client, auth Authenticator, notify func(string)) *AnalysisController {
	if notify == nil {
		notify = func(string) {}
	}
	return &AnalysisController{api: api, auth: auth, notify: notify, activeTab: "overview"}
}

func (a *AnalysisController) Analyzing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.analyzing
}

func (a *AnalysisController) Result() *models.AnalysisResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

func (a *AnalysisController) ActiveTab() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeTab
}

func (a *AnalysisController) SetActiveTab(tab string) {
	a.mu.Lock()
	a.activeTab = tab
	a.mu.Unlock()
}

func (a *AnalysisController) SelectClass(classID uuid.UUID) {
	a.mu.Lock()
	a.selectedClass = &classID
	a.mu.Unlock()
}

func (a *AnalysisController) SelectedClass() *uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedClass
}

// Analyze grades the article text. Texts under the word minimum fail fast
// with a local validation error and never reach the network.
func (a *AnalysisController) Analyze(ctx context.Context, text string) error {
	if len(strings.Fields(text)) < MinArticleWords {
		a.notify("Please paste a longer article (at least 20 words).")
		return ErrArticleTooShort
	}

	a.mu.Lock()
	if a.analyzing {
		a.mu.Unlock()
		return ErrAnalysisInFlight
	}
	a.analyzing = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.analyzing = false
		a.mu.Unlock()
	}()

	result, err := a.api.AnalyzeArticle(ctx, text)
	if err != nil {
		// Surface the server's own wording when it gave any.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			a.notify(apiErr.Message)
		} else {
			a.notify("Analysis failed. Please try again.")
		}
		return err
	}

	a.mu.Lock()
	a.result = result
	a.article = text
	a.activeTab = "overview"
	a.mu.Unlock()
	return nil
}

// SubmitToTeacher posts the current analysis as a graded submission to the
// selected class. It requires a prior successful analysis and a class choice,
// both checked locally.
func (a *AnalysisController) SubmitToTeacher(ctx context.Context) (*models.Submission, error) {
	a.mu.Lock()
	result, article, class := a.result, a.article, a.selectedClass
	a.mu.Unlock()

	if result == nil {
		a.notify("Run an analysis before submitting.")
		return nil, ErrNoAnalysis
	}
	if class == nil {
		a.notify("Select a class before submitting.")
		return nil, ErrNoClassSelected
	}
	user := a.auth.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	req := models.SubmitRequest{
		CourseID:  *class,
		StudentID: user.ID,
		Kind:      models.SubmissionAnalysis,
		Content:   FormatSubmission(result, article),
	}
	submission, err := a.api.SubmitWork(ctx, req)
	if err != nil {
		a.notify("Couldn't submit to your teacher. Please try again.")
		return nil, err
	}
	return submission, nil
}

// FormatSubmission flattens a result and the original text into the single
// text blob the LMS stores.
func FormatSubmission(r *models.AnalysisResult, article string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ARTICLE ANALYSIS REPORT\n")
	fmt.Fprintf(&b, "Overall Score: %d/100 (%s)\n\n", r.OverallScore, r.LetterGrade)

	fmt.Fprintf(&b, "Score Breakdown:\n")
	fmt.Fprintf(&b, "  Accuracy: %d\n", r.ScoreBreakdown.Accuracy)
	fmt.Fprintf(&b, "  Sourcing: %d\n", r.ScoreBreakdown.Sourcing)
	fmt.Fprintf(&b, "  Balance: %d\n", r.ScoreBreakdown.Balance)
	fmt.Fprintf(&b, "  Context: %d\n", r.ScoreBreakdown.Context)
	fmt.Fprintf(&b, "  Transparency: %d\n", r.ScoreBreakdown.Transparency)
	fmt.Fprintf(&b, "  Language: %d\n", r.ScoreBreakdown.Language)
	fmt.Fprintf(&b, "  Headline: %d\n", r.ScoreBreakdown.Headline)
	fmt.Fprintf(&b, "  Evidence: %d\n\n", r.ScoreBreakdown.Evidence)

	if len(r.Strengths) > 0 {
		b.WriteString("Strengths:\n")
		for _, s := range r.Strengths {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
		b.WriteString("\n")
	}
	if len(r.CriticalIssues) > 0 {
		b.WriteString("Critical Issues:\n")
		for _, s := range r.CriticalIssues {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
		b.WriteString("\n")
	}
	for _, issue := range r.DetailedIssues {
		fmt.Fprintf(&b, "[%s/%s] %s. Suggestion: %s\n", issue.Category, issue.Severity, issue.Issue, issue.Suggestion)
	}
	if len(r.DetailedIssues) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Article Stats: %d words, %d sentences, %d paragraphs, readability %.1f\n\n",
		r.ArticleStats.WordCount, r.ArticleStats.SentenceCount,
		r.ArticleStats.ParagraphCount, r.ArticleStats.ReadabilityScore)

	b.WriteString("--- ORIGINAL ARTICLE ---\n")
	b.WriteString(article)
	return b.String()
}
