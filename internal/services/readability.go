package services

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// ReadabilityService fetches a news page and extracts its readable article text
// so a URL can be graded the same way as pasted text.
type ReadabilityService struct {
	httpClient *http.Client
}

func NewReadabilityService() *ReadabilityService {
	return &ReadabilityService{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchArticle returns the page title and its extracted body text.
func (s *ReadabilityService) FetchArticle(rawURL string) (string, string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return "", "", fmt.Errorf("invalid article URL: %q", rawURL)
	}

	resp, err := s.httpClient.Get(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract article: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", "", fmt.Errorf("no readable article text found at %s", parsedURL.Host)
	}

	return article.Title, text, nil
}
