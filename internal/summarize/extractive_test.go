package summarize

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
)

const councilArticle = `The city council approved the annual budget on Thursday. ` +
	`The budget increases funding for public transit and road repairs. ` +
	`Weather on Thursday was mild and sunny. ` +
	`Council members debated the transit budget for six hours. ` +
	`Opponents said the budget raises property taxes for retirees. ` +
	`A local bakery celebrated its tenth anniversary. ` +
	`The mayor said the budget balances transit investment with discipline.`

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "One here. Two there! Three? Four.", []string{"One here.", "Two there!", "Three?", "Four."}},
		{"abbreviation", "Hello, my name is Dr. Chivago and I work in Chicago. The U.S. is such a wretched place to live, especially for me and Ms. Chivago.",
			[]string{"Hello, my name is Dr. Chivago and I work in Chicago.", "The U.S. is such a wretched place to live, especially for me and Ms. Chivago."}},
		{"initialism", "One custom abbreviation is F.B.I.  The abbreviation, F.B.I. should properly break.",
			[]string{"One custom abbreviation is F.B.I.", "The abbreviation, F.B.I. should properly break."}},
		{"quote", `She turned to him, "This is great." She held the book out to show him.`,
			[]string{`She turned to him, "This is great."`, "She held the book out to show him."}},
		{"line breaks", "Headline\nBody sentence.", []string{"Headline", "Body sentence."}},
		{"empty", "   ", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := SplitSentences(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRankPrefersCentralSentencesInDocumentOrder(t *testing.T) {
	t.Parallel()

	sentences, err := SplitSentences(councilArticle)
	require.NoError(t, err)
	require.Len(t, sentences, 7)

	picked := Rank(sentences, 3)
	require.Len(t, picked, 3)
	assert.IsIncreasing(t, picked)
	assert.NotContains(t, picked, 2, "weather sentence is off topic")
	assert.NotContains(t, picked, 5, "bakery sentence is off topic")

	assert.Equal(t, picked, Rank(sentences, 3), "ranking is deterministic")
}

func TestRankReturnsAllWhenFewSentences(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{0, 1}, Rank([]string{"A b c.", "D e f."}, 4))
}

func TestExtractiveSummarize(t *testing.T) {
	t.Parallel()

	summary, err := NewExtractive(ExtractiveOptions{Sentences: 3}).Summarize(context.Background(), councilArticle)

	require.NoError(t, err)
	assert.NotContains(t, summary.String(), "bakery")
	assert.LessOrEqual(t, summary.Words(), DefaultMaxWords)
	assert.False(t, strings.HasSuffix(summary.String(), TruncationMarker))
}

func TestExtractiveSummarizeEmpty(t *testing.T) {
	t.Parallel()

	_, err := NewExtractive(ExtractiveOptions{}).Summarize(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrSummarization)
}

func TestExtractiveLengthInvariant(t *testing.T) {
	t.Parallel()

	vocabulary := strings.Fields(`council budget transit mayor river bridge election vote market shares
		energy price school nurse hospital patient storm rain court judge police report city village`)
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		var sb strings.Builder
		sentenceCount := 1 + rng.Intn(12)
		for s := 0; s < sentenceCount; s++ {
			words := 1 + rng.Intn(40)
			for w := 0; w < words; w++ {
				word := vocabulary[rng.Intn(len(vocabulary))]
				if w == 0 {
					word = strings.ToUpper(word[:1]) + word[1:]
				}
				sb.WriteString(word)
				if w < words-1 {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(". ")
		}
		text := sb.String()

		maxWords := 10 + rng.Intn(80)
		backend := NewExtractive(ExtractiveOptions{Sentences: 4, MaxWords: maxWords})
		summary, err := backend.Summarize(context.Background(), text)
		require.NoError(t, err, "trial %d", trial)

		sentences, err := SplitSentences(text)
		require.NoError(t, err)
		selected := 0
		for _, idx := range Rank(sentences, 4) {
			selected += len(strings.Fields(sentences[idx]))
		}

		label := fmt.Sprintf("trial %d max %d selected %d", trial, maxWords, selected)
		assert.LessOrEqual(t, summary.Words(), maxWords, label)
		assert.Equal(t, selected > maxWords, strings.HasSuffix(summary.String(), TruncationMarker), label)
	}
}
