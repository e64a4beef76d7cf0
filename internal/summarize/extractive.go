package summarize

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

const (
	defaultSentences = 4
	damping          = 0.85
	tolerance        = 1e-4
	maxIterations    = 100
)

// ExtractiveOptions tune sentence ranking.
type ExtractiveOptions struct {
	Sentences int
	MaxWords  int
}

// Extractive ranks sentences with TextRank and keeps the most central ones in
// document order. It runs locally and never hits a quota.
type Extractive struct {
	opts ExtractiveOptions
}

var _ ports.Summarizer = (*Extractive)(nil)

// NewExtractive builds the backend.
func NewExtractive(opts ExtractiveOptions) *Extractive {
	if opts.Sentences <= 0 {
		opts.Sentences = defaultSentences
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}
	return &Extractive{opts: opts}
}

// Summarize is deterministic for a given text.
func (e *Extractive) Summarize(ctx context.Context, text string) (domain.Summary, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSummarization, err)
	}

	sentences, err := SplitSentences(text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSummarization, err)
	}
	if len(sentences) == 0 {
		return "", fmt.Errorf("%w: no sentences", domain.ErrSummarization)
	}

	picked := Rank(sentences, e.opts.Sentences)
	selected := make([]string, len(picked))
	for i, idx := range picked {
		selected[i] = sentences[idx]
	}
	return Finalize(strings.Join(selected, " "), e.opts.MaxWords)
}

// Rank returns the indices of the n most central sentences in ascending
// (document) order. Equal scores prefer the earlier sentence.
func Rank(sentences []string, n int) []int {
	if n >= len(sentences) {
		all := make([]int, len(sentences))
		for i := range all {
			all[i] = i
		}
		return all
	}

	scores := pageRank(similarityMatrix(sentences))

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	top := append([]int(nil), order[:n]...)
	sort.Ints(top)
	return top
}

func similarityMatrix(sentences []string) [][]float64 {
	tokens := make([]map[string]struct{}, len(sentences))
	for i, s := range sentences {
		tokens[i] = tokenSet(s)
	}

	n := len(sentences)
	weights := make([][]float64, n)
	for i := range weights {
		weights[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := similarity(tokens[i], tokens[j])
			weights[i][j] = w
			weights[j][i] = w
		}
	}
	return weights
}

// similarity is the TextRank overlap measure |a∩b| / (log|a| + log|b|).
func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	overlap := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	denom := math.Log(float64(len(a))) + math.Log(float64(len(b)))
	if denom <= 0 {
		denom = 1
	}
	return float64(overlap) / denom
}

func pageRank(weights [][]float64) []float64 {
	n := len(weights)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1 / float64(n)
	}

	outSum := make([]float64, n)
	for j := range weights {
		for _, w := range weights[j] {
			outSum[j] += w
		}
	}

	next := make([]float64, n)
	for iter := 0; iter < maxIterations; iter++ {
		dangling := 0.0
		for j := range scores {
			if outSum[j] == 0 {
				dangling += scores[j]
			}
		}

		delta := 0.0
		for i := 0; i < n; i++ {
			rank := 0.0
			for j := 0; j < n; j++ {
				if outSum[j] > 0 && weights[j][i] > 0 {
					rank += weights[j][i] / outSum[j] * scores[j]
				}
			}
			next[i] = (1-damping)/float64(n) + damping*(rank+dangling/float64(n))
			delta += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores
		if delta < tolerance {
			break
		}
	}
	return scores
}

var punkt = sync.OnceValues(func() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
})

// SplitSentences segments text with the Punkt english model. Line breaks
// always end a sentence so headings stay separate from body text.
func SplitSentences(text string) ([]string, error) {
	tokenizer, err := punkt()
	if err != nil {
		return nil, fmt.Errorf("load sentence model: %w", err)
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, sentence := range tokenizer.Tokenize(line) {
			if s := strings.Join(strings.Fields(sentence.Text), " "); s != "" {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func tokenSet(sentence string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

var stopWords = func() map[string]struct{} {
	list := strings.Fields(`a about above after again against all am an and any are as at be because been
		before being below between both but by can could did do does doing down during each few for from
		further had has have having he her here hers herself him himself his how i if in into is it its
		itself just me more most my myself no nor not now of off on once only or other our ours ourselves
		out over own same she should so some such than that the their theirs them themselves then there
		these they this those through to too under until up very was we were what when where which while
		who whom why will with would you your yours yourself yourselves also said says say one two new`)
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		set[w] = struct{}{}
	}
	return set
}()
