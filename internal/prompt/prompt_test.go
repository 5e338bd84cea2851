package prompt

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmbedsRecordsAndDays(t *testing.T) {
	cases := []struct {
		records string
		days    int
	}{
		{records: "• 2025-06-01: 23:30 → 07:10 (note: snoring)", days: 7},
		{records: "line one\nline two\n\n  indented", days: 0},
		{records: "100% awake, {braces} and %d verbs", days: 30},
		{records: "x", days: 365},
	}

	for _, tc := range cases {
		out := Build(tc.records, tc.days)
		assert.Contains(t, out, tc.records)
		assert.Contains(t, out, strconv.Itoa(tc.days))
	}
}

func TestBuildAsksForAnalysisAndThreeSuggestions(t *testing.T) {
	out := Build("records", 7)

	require.Contains(t, out, "last 7 days")
	require.Contains(t, out, "three concrete")
	require.Contains(t, out, "answer in Korean, in a friendly tone")
}

func TestBuilderOverridesLanguageAndTone(t *testing.T) {
	out := Builder{Language: "English", Tone: "calm"}.Build("records", 3)

	require.Contains(t, out, "answer in English, in a calm tone")
	require.False(t, strings.Contains(out, DefaultLanguage))
}
