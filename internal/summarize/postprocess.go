package summarize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"NewsIngestor/internal/domain"
)

// TruncationMarker is attached to the last kept word when a summary is cut.
const TruncationMarker = "..."

const removed = "\x00"

var metaPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\baccording to (the|this) (article|report|text|story)\b[,:]?\s*`),
	regexp.MustCompile(`(?i)\b(the|this) (article|report|text|story) (says|states|reports|notes|explains|mentions|discusses|describes)( that)?\b[,:]?\s*`),
	regexp.MustCompile(`(?i)\bin summary\b[,:]?\s*`),
	regexp.MustCompile(`(?i)\bto summarize\b[,:]?\s*`),
	regexp.MustCompile(`(?i)^\s*(here is|here's) (a|the) summary[^:\n]*:\s*`),
}

// Finalize strips meta-commentary, normalizes whitespace per line and caps
// the result at maxWords.
func Finalize(text string, maxWords int) (domain.Summary, error) {
	cleaned := normalizeLines(stripMeta(text))
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty summary", domain.ErrSummarization)
	}
	capped, _ := CapWords(cleaned, maxWords)
	return domain.Summary(capped), nil
}

// CapWords keeps at most maxWords words, preserving line breaks. When words
// are dropped the marker is attached to the last kept word and truncated is true.
func CapWords(text string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		return text, false
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	count := 0
	truncated := false

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		if count+len(words) > maxWords {
			words = words[:maxWords-count]
			truncated = true
		}
		count += len(words)
		if len(words) > 0 {
			kept = append(kept, strings.Join(words, " "))
		}
		if truncated {
			break
		}
	}

	if truncated && len(kept) > 0 {
		last := len(kept) - 1
		kept[last] = strings.TrimRight(kept[last], ",;:-") + TruncationMarker
	}
	return strings.Join(kept, "\n"), truncated
}

func stripMeta(text string) string {
	for _, re := range metaPhrases {
		text = re.ReplaceAllString(text, removed)
	}
	if !strings.Contains(text, removed) {
		return text
	}

	var sb strings.Builder
	capitalize := false
	for i, r := range text {
		if r == '\x00' {
			capitalize = atSentenceStart(text[:i])
			continue
		}
		if capitalize && unicode.IsLetter(r) {
			r = unicode.ToUpper(r)
			capitalize = false
		} else if !unicode.IsSpace(r) {
			capitalize = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func atSentenceStart(before string) bool {
	before = strings.TrimRight(strings.ReplaceAll(before, removed, ""), " \t")
	if before == "" || strings.HasSuffix(before, "\n") {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(before)
	return last == '.' || last == '!' || last == '?'
}

func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		line = strings.TrimLeft(line, "-*• ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
