package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-finder/models"
	"facility-finder/utils"
)

func TestParseSummaryJSON(t *testing.T) {
	got := ParseSummary(`{"summary":"Generally positive.","pros":["Kind staff"],"cons":["Slow replies"]}`)
	assert.Equal(t, models.AISummary{
		Summary: "Generally positive.",
		Pros:    []string{"Kind staff"},
		Cons:    []string{"Slow replies"},
	}, got)
}

func TestParseSummaryStripsFences(t *testing.T) {
	for _, raw := range []string{
		"```json\n{\"summary\":\"S\",\"pros\":[\"p\"],\"cons\":[]}\n```",
		"```JSON\n{\"summary\":\"S\",\"pros\":[\"p\"],\"cons\":[]}```",
		"```\n{\"summary\":\"S\",\"pros\":[\"p\"],\"cons\":[]}\n```",
	} {
		got := ParseSummary(raw)
		assert.Equal(t, "S", got.Summary, raw)
		assert.Equal(t, []string{"p"}, got.Pros, raw)
		assert.Equal(t, []string{}, got.Cons, raw)
	}
}

func TestParseSummaryJSONMissingLists(t *testing.T) {
	got := ParseSummary(`{"summary":"Only text"}`)
	assert.Equal(t, "Only text", got.Summary)
	assert.Equal(t, []string{}, got.Pros)
	assert.Equal(t, []string{}, got.Cons)
}

func TestParseSummaryFallbackBullets(t *testing.T) {
	raw := "Here is the summary.\n- Friendly nurses\n* Cons: long wait times\n+ Clean rooms\nnot a bullet"
	got := ParseSummary(raw)

	assert.Equal(t, []string{"Friendly nurses", "Clean rooms"}, got.Pros)
	assert.Equal(t, []string{"Cons: long wait times"}, got.Cons)
	assert.Equal(t, raw, got.Summary)
}

func TestParseSummaryFallbackSentinels(t *testing.T) {
	got := ParseSummary("Nothing structured here at all.")
	assert.Equal(t, []string{"No clear pros found"}, got.Pros)
	assert.Equal(t, []string{"No clear cons found"}, got.Cons)
	assert.Equal(t, "Nothing structured here at all.", got.Summary)
}

func TestParseSummaryFallbackTruncatesSummary(t *testing.T) {
	got := ParseSummary(strings.Repeat("x", 1000))
	assert.Len(t, got.Summary, 300)

	got = ParseSummary(strings.Repeat("ü", 400))
	assert.Equal(t, 300, utf8.RuneCountInString(got.Summary))
	assert.True(t, utf8.ValidString(got.Summary))
}

func TestBuildPromptCapsInput(t *testing.T) {
	long := strings.Repeat("é", MaxReviewChars+500)
	prompt := BuildPrompt(long)

	assert.Contains(t, prompt, strings.Repeat("é", MaxReviewChars))
	assert.NotContains(t, prompt, strings.Repeat("é", MaxReviewChars+1))

	exact := strings.Repeat("é", MaxReviewChars)
	assert.Contains(t, BuildPrompt(exact), exact)
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abc", 2, "ab"},
		{"héllo", 2, "hé"},
		{"日本語", 3, "日本語"},
		{"日本語", 1, "日"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateRunes(tt.in, tt.n), tt.in)
	}
}

func TestBuildPromptKeepsInstructions(t *testing.T) {
	prompt := BuildPrompt("Kind staff")
	assert.Contains(t, prompt, "If reviews conflict, mention variability.")
	assert.Contains(t, prompt, "summary (2-3 sentences)")
}

func TestSummarizeBlankSkipsCompleter(t *testing.T) {
	c := &fakeCompleter{reply: "{}"}
	s := NewSummarizer(c, utils.NewNopLogger())

	got, err := s.Summarize(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, models.EmptySummary(), got)
	assert.Zero(t, c.callCount())
}

func TestSummarizeCallsCompleter(t *testing.T) {
	c := &fakeCompleter{reply: "```json\n{\"summary\":\"Good\",\"pros\":[\"a\"],\"cons\":[\"b\"]}\n```"}
	s := NewSummarizer(c, utils.NewNopLogger())

	got, err := s.Summarize(context.Background(), "Kind staff\nSlow replies")
	require.NoError(t, err)
	assert.Equal(t, "Good", got.Summary)
	assert.Contains(t, c.prompt, "Kind staff\nSlow replies")
}

func TestSummarizeCompleterError(t *testing.T) {
	c := &fakeCompleter{err: errUpstream}
	_, err := NewSummarizer(c, utils.NewNopLogger()).Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, errUpstream)
}

func TestReviewsText(t *testing.T) {
	assert.Equal(t, "a\nb", ReviewsText([]models.Review{{Text: " a "}, {Text: ""}, {Text: "b"}}))
	assert.Equal(t, "", ReviewsText(nil))
}
