package services

import (
	"math"
	"regexp"
	"strings"

	"datahalo/internal/models"
)

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// ComputeArticleStats derives the report's articleStats from the raw text.
// These numbers are always computed here, never taken from the model.
func ComputeArticleStats(article string) models.ArticleStats {
	words := strings.Fields(article)
	wordCount := len(words)

	sentenceCount := countSentences(article)
	paragraphCount := countParagraphs(article)

	avg := 0.0
	if sentenceCount > 0 {
		avg = math.Round(float64(wordCount)/float64(sentenceCount)*10) / 10
	}

	return models.ArticleStats{
		WordCount:         wordCount,
		SentenceCount:     sentenceCount,
		ParagraphCount:    paragraphCount,
		AvgSentenceLength: avg,
		ReadabilityScore:  fleschReadingEase(words, sentenceCount),
	}
}

func countSentences(text string) int {
	count := 0
	inTerminator := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if !inTerminator {
				count++
			}
			inTerminator = true
		default:
			inTerminator = false
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		count = 1
	}
	return count
}

func countParagraphs(text string) int {
	count := 0
	for _, block := range paragraphSplit.Split(text, -1) {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// fleschReadingEase computes the classic 206.835 - 1.015(words/sentences)
// - 84.6(syllables/words) score, clamped to 0-100.
func fleschReadingEase(words []string, sentences int) float64 {
	if len(words) == 0 || sentences == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	score := 206.835 -
		1.015*(float64(len(words))/float64(sentences)) -
		84.6*(float64(syllables)/float64(len(words)))

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return math.Round(score*10) / 10
}

// countSyllables estimates syllables as runs of vowels, with the usual
// silent-e adjustment. Good enough for a readability estimate.
func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z')
	}))
	if word == "" {
		return 0
	}

	isVowel := func(r byte) bool {
		return strings.IndexByte("aeiouy", r) >= 0
	}

	count := 0
	prevVowel := false
	for i := 0; i < len(word); i++ {
		v := isVowel(word[i])
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
