package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"facility-finder/models"
	"facility-finder/utils"
)

const (
	// MaxReviewChars caps the review text sent for summarization, in characters.
	MaxReviewChars = 12000

	fallbackSummaryChars = 300
	noPros               = "No clear pros found"
	noCons               = "No clear cons found"
)

var (
	fenceJSONRegexp = regexp.MustCompile("(?i)```json")
	bulletRegexp    = regexp.MustCompile(`^\s*[-*+]\s*`)
	consRegexp      = regexp.MustCompile(`(?i)cons?`)
)

const summaryPrompt = `
You are an assistant that summarizes nursing facility reviews into a concise, neutral "Pros & Cons" for families.
Rules:
- Be objective and avoid speculation.
- Use short bullet points.
- If reviews conflict, mention variability.

Reviews:
"""
%s
"""

Return JSON with keys: summary (2-3 sentences), pros (array of bullets), cons (array of bullets).
`

// Summarizer condenses review text into a summary with pros and cons.
type Summarizer struct {
	completer Completer
	logger    *utils.Logger
}

// NewSummarizer creates a Summarizer backed by completer.
func NewSummarizer(completer Completer, logger *utils.Logger) *Summarizer {
	return &Summarizer{completer: completer, logger: logger}
}

// Summarize asks the completer for a summary of reviewsText. Blank input
// returns the empty summary without a call.
func (s *Summarizer) Summarize(ctx context.Context, reviewsText string) (models.AISummary, error) {
	if strings.TrimSpace(reviewsText) == "" {
		return models.EmptySummary(), nil
	}

	out, err := s.completer.Complete(ctx, BuildPrompt(reviewsText))
	if err != nil {
		return models.EmptySummary(), fmt.Errorf("summarize: %w", err)
	}
	return ParseSummary(out), nil
}

// BuildPrompt embeds the capped review text in the summary instructions.
func BuildPrompt(reviewsText string) string {
	return fmt.Sprintf(summaryPrompt, truncateRunes(reviewsText, MaxReviewChars))
}

// ReviewsText joins review bodies, one per line.
func ReviewsText(reviews []models.Review) string {
	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n")
}

// ParseSummary decodes a completion into an AISummary. Output that is not
// JSON is scanned for bullet lines instead.
func ParseSummary(raw string) models.AISummary {
	clean := fenceJSONRegexp.ReplaceAllString(raw, "")
	clean = strings.TrimSpace(strings.ReplaceAll(clean, "```", ""))

	var parsed struct {
		Summary string   `json:"summary"`
		Pros    []string `json:"pros"`
		Cons    []string `json:"cons"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err == nil {
		res := models.EmptySummary()
		res.Summary = parsed.Summary
		if parsed.Pros != nil {
			res.Pros = parsed.Pros
		}
		if parsed.Cons != nil {
			res.Cons = parsed.Cons
		}
		return res
	}

	res := models.AISummary{Pros: []string{}, Cons: []string{}}
	for _, line := range strings.Split(clean, "\n") {
		if !bulletRegexp.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(bulletRegexp.ReplaceAllString(line, ""))
		if consRegexp.MatchString(line) {
			res.Cons = append(res.Cons, item)
		} else {
			res.Pros = append(res.Pros, item)
		}
	}
	if len(res.Pros) == 0 {
		res.Pros = []string{noPros}
	}
	if len(res.Cons) == 0 {
		res.Cons = []string{noCons}
	}
	res.Summary = truncateRunes(clean, fallbackSummaryChars)
	return res
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
