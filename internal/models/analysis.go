package models

// Severity classifies how badly a detailed issue hurts an article's credibility.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium || s == SeverityLow
}

// Priority ranks improvement actions. Same closed set as Severity but kept as
// its own type so the two never mix.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ScoreBreakdown holds the eight grading categories, each 0-100.
type ScoreBreakdown struct {
	Accuracy     int `json:"accuracy"`
	Sourcing     int `json:"sourcing"`
	Balance      int `json:"balance"`
	Context      int `json:"context"`
	Transparency int `json:"transparency"`
	Language     int `json:"language"`
	Headline     int `json:"headline"`
	Evidence     int `json:"evidence"`
}

type DetailedIssue struct {
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	Issue      string   `json:"issue"`
	Suggestion string   `json:"suggestion"`
	Location   *string  `json:"location,omitempty"`
	Example    *string  `json:"example,omitempty"`
}

type ImprovementAction struct {
	Priority Priority `json:"priority"`
	Issue    string   `json:"issue"`
	HowToFix string   `json:"howToFix"`
	Before   *string  `json:"before,omitempty"`
	After    *string  `json:"after,omitempty"`
}

// ArticleStats is computed locally from the submitted text, never by the model.
type ArticleStats struct {
	WordCount         int     `json:"wordCount"`
	SentenceCount     int     `json:"sentenceCount"`
	ParagraphCount    int     `json:"paragraphCount"`
	AvgSentenceLength float64 `json:"avgSentenceLength"`
	ReadabilityScore  float64 `json:"readabilityScore"`
}

// AnalysisResult is the immutable report produced by one grading pass. A new
// analysis always replaces the previous result wholesale.
type AnalysisResult struct {
	OverallScore            int                 `json:"overallScore"`
	LetterGrade             string              `json:"letterGrade"`
	Confidence              *float64            `json:"confidence,omitempty"`
	ScoreBreakdown          ScoreBreakdown      `json:"scoreBreakdown"`
	Strengths               []string            `json:"strengths"`
	CriticalIssues          []string            `json:"criticalIssues"`
	DetailedIssues          []DetailedIssue     `json:"detailedIssues"`
	ImprovementActions      []ImprovementAction `json:"improvementActions"`
	LearningRecommendations []string            `json:"learningRecommendations"`
	ArticleStats            ArticleStats        `json:"articleStats"`
	AIInsights              *string             `json:"aiInsights,omitempty"`
}

type AnalyzeRequest struct {
	Article string `json:"article"`
}

type AnalyzeURLRequest struct {
	URL string `json:"url"`
}

type AnalyzeResponse struct {
	Status   string          `json:"status"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// LetterGrade maps an overall score to the grade shown on report cards.
func LetterGrade(score int) string {
	switch {
	case score >= 97:
		return "A+"
	case score >= 93:
		return "A"
	case score >= 90:
		return "A-"
	case score >= 87:
		return "B+"
	case score >= 83:
		return "B"
	case score >= 80:
		return "B-"
	case score >= 77:
		return "C+"
	case score >= 73:
		return "C"
	case score >= 70:
		return "C-"
	case score >= 67:
		return "D+"
	case score >= 63:
		return "D"
	case score >= 60:
		return "D-"
	default:
		return "F"
	}
}
