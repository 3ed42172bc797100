package cleaner

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/types"
)

// Stats counts what the cleaning pass removed and touched.
type Stats struct {
	TotalComments       int `json:"total_comments"`
	CleanedComments     int `json:"cleaned_comments"`
	RemovedDuplicates   int `json:"removed_duplicates"`
	RemovedEmpty        int `json:"removed_empty"`
	RemovedSpam         int `json:"removed_spam"`
	HTMLCleaned         int `json:"html_cleaned"`
	SpecialCharsCleaned int `json:"special_chars_cleaned"`
}

// RetentionRate is the percentage of input comments that survived.
func (s Stats) RetentionRate() float64 {
	if s.TotalComments == 0 {
		return 0
	}
	return float64(s.CleanedComments) / float64(s.TotalComments) * 100
}

// Kept pairs a surviving input record with its cleaned text.
type Kept struct {
	Record types.CommentRecord
	Text   string
}

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	spaceBeforeRe = regexp.MustCompile(`\s+([,.;:!?])`)
	spaceAfterRe  = regexp.MustCompile(`([,.;:!?])([^\s\d,.;:!?])`)
	manyDotsRe    = regexp.MustCompile(`\.{4,}`)
	manyCommasRe  = regexp.MustCompile(`,{2,}`)
)

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(click here|clickea aquí|haz click)\b`),
	regexp.MustCompile(`\b(buy now|compra ahora|oferta limitada)\b`),
	regexp.MustCompile(`\b(free money|dinero gratis|gana dinero)\b`),
	regexp.MustCompile(`https?://[^\s]+`),
	regexp.MustCompile(`\b(bitcoin|crypto|cryptocurrency)\b.*\b(invest|inversión|trading)\b`),
}

// specialCharReplacements maps exotic Unicode spacing, quote and dash
// characters to plain ASCII equivalents.
var specialCharReplacements = map[rune]string{
	'\u00A0': " ",
	'\u2000': " ", '\u2001': " ", '\u2002': " ", '\u2003': " ",
	'\u2009': " ", '\u200A': " ",
	'\u200B': "", '\u200C': "", '\u200D': "", '\u2060': "", '\uFEFF': "",
	'\u201C': `"`, '\u201D': `"`, '\u00AB': `"`, '\u00BB': `"`,
	'\u2018': "'", '\u2019': "'",
	'\u2013': "-", '\u2014': "-", '\u2015': "-",
	'\u2026': "...",
}

// fillerWords never count towards the meaningful-word minimum.
var fillerWords = map[string]bool{
	"el": true, "la": true, "en": true, "de": true, "que": true, "y": true,
	"a": true, "es": true, "se": true, "no": true, "te": true, "lo": true,
	"le": true, "da": true, "su": true, "por": true, "son": true, "con": true,
	"para": true, "al": true, "del": true, "los": true, "las": true,
	"un": true, "una": true,
	"the": true, "is": true, "at": true, "of": true, "on": true, "and": true,
	"or": true, "but": true, "in": true, "to": true, "it": true, "be": true,
}

// Cleaner strips markup, spam and duplicates from raw comments. It performs
// no I/O and never fails; unusable input is counted as removed.
type Cleaner struct {
	maxLen int
}

func New(maxCommentLength int) *Cleaner {
	return &Cleaner{maxLen: maxCommentLength}
}

// Sanitize runs the per-comment cleaning steps in order: HTML removal,
// special character normalization, whitespace normalization, word-boundary
// truncation. Idempotent.
func (c *Cleaner) Sanitize(comment string) string {
	s, _ := c.sanitize(comment)
	return s
}

// sanitize additionally reports whether the comment classified as spam.
// Classification happens before punctuation spacing: spacing splits URLs
// into "https: //..." and hides them from the spam patterns.
func (c *Cleaner) sanitize(comment string) (string, bool) {
	if comment == "" {
		return "", false
	}
	s := removeHTML(comment)
	s = normalizeSpecialChars(s)
	spam := isSpam(s)
	s = normalizeWhitespace(s)
	if len(s) > c.maxLen {
		// The cut reserves room for the appended ellipsis so the result
		// stays within maxLen.
		cut := s[:c.maxLen-3]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		s = cut + "..."
	}
	return strings.TrimSpace(s), spam
}

// CleanRecords sanitizes every record's text, drops empty/meaningless/spam
// comments, then removes near-duplicates keeping the longer of each pair.
func (c *Cleaner) CleanRecords(records []types.CommentRecord) ([]Kept, Stats) {
	log := logger.New().WithField("component", "cleaner")
	stats := Stats{TotalComments: len(records)}
	if len(records) == 0 {
		return nil, stats
	}
	log.WithField("total", len(records)).Info("cleaning comments")

	var kept []Kept
	for _, rec := range records {
		raw := rec.RawText
		if strings.TrimSpace(raw) == "" {
			stats.RemovedEmpty++
			continue
		}
		if strings.Contains(raw, "<") && strings.Contains(raw, ">") {
			stats.HTMLCleaned++
		}
		if strings.ContainsFunc(raw, func(r rune) bool { _, ok := specialCharReplacements[r]; return ok }) {
			stats.SpecialCharsCleaned++
		}
		text, spam := c.sanitize(raw)
		if !isMeaningful(text) {
			stats.RemovedEmpty++
			continue
		}
		if spam {
			stats.RemovedSpam++
			continue
		}
		kept = append(kept, Kept{Record: rec, Text: text})
	}

	kept, removed := dedupe(kept)
	stats.RemovedDuplicates = removed
	stats.CleanedComments = len(kept)

	log.WithField("kept", stats.CleanedComments).
		WithField("duplicates", stats.RemovedDuplicates).
		WithField("spam", stats.RemovedSpam).
		Info("cleaning complete")
	return kept, stats
}

// Clean is the plain-string form of CleanRecords for callers without row
// metadata.
func (c *Cleaner) Clean(comments []string) ([]string, Stats) {
	records := make([]types.CommentRecord, len(comments))
	for i, text := range comments {
		records[i] = types.CommentRecord{RowID: i, RawText: text}
	}
	kept, stats := c.CleanRecords(records)
	out := make([]string, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.Text)
	}
	return out, stats
}

func removeHTML(text string) string {
	s := html.UnescapeString(text)
	s = htmlCommentRe.ReplaceAllString(s, "")
	s = htmlTagRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}

func normalizeSpecialChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if repl, ok := specialCharReplacements[r]; ok {
			b.WriteString(repl)
		} else {
			b.WriteRune(r)
		}
	}
	s := multiSpaceRe.ReplaceAllString(b.String(), " ")
	s = manyDotsRe.ReplaceAllString(s, "...")
	s = manyCommasRe.ReplaceAllString(s, ",")
	return strings.TrimSpace(s)
}

func normalizeWhitespace(text string) string {
	s := strings.TrimSpace(text)
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = spaceBeforeRe.ReplaceAllString(s, "$1")
	s = spaceAfterRe.ReplaceAllString(s, "$1 $2")
	return s
}

// isMeaningful requires at least two stopword-filtered words of length >= 3.
func isMeaningful(text string) bool {
	if len(strings.TrimSpace(text)) < 3 {
		return false
	}
	meaningful := 0
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) >= 3 && !fillerWords[w] {
			meaningful++
			if meaningful >= 2 {
				return true
			}
		}
	}
	return false
}

func isSpam(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, re := range spamPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	if hasLongRun(lower, 5) {
		return true
	}
	// Repetitive: over half the words are the same word.
	words := strings.Fields(lower)
	if len(words) > 5 {
		counts := map[string]int{}
		max := 0
		for _, w := range words {
			counts[w]++
			if counts[w] > max {
				max = counts[w]
			}
		}
		if float64(max) > float64(len(words))*0.5 {
			return true
		}
	}
	// Noise: over half the characters are neither alphanumeric nor spaces.
	special, total := 0, 0
	for _, r := range text {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	return total > 0 && float64(special)/float64(total) > 0.5
}

// hasLongRun reports n or more identical consecutive letters or digits.
func hasLongRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if (unicode.IsLetter(r) || unicode.IsDigit(r)) && r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

// dedupe removes pairwise near-duplicates (token-set Jaccard >= 0.9),
// keeping the longer comment of each pair. Quadratic on purpose: input
// sizes here are survey-scale, not log-scale.
func dedupe(kept []Kept) ([]Kept, int) {
	remove := map[int]bool{}
	tokens := make([]map[string]bool, len(kept))
	for i, k := range kept {
		set := map[string]bool{}
		for _, w := range strings.Fields(strings.ToLower(strings.TrimSpace(k.Text))) {
			set[w] = true
		}
		tokens[i] = set
	}
	for i := range kept {
		if remove[i] || len(tokens[i]) == 0 {
			continue
		}
		for j := i + 1; j < len(kept); j++ {
			if remove[j] || len(tokens[j]) == 0 {
				continue
			}
			if jaccard(tokens[i], tokens[j]) >= 0.9 {
				if len(kept[j].Text) > len(kept[i].Text) {
					remove[i] = true
					break
				}
				remove[j] = true
			}
		}
	}
	if len(remove) == 0 {
		return kept, 0
	}
	out := make([]Kept, 0, len(kept)-len(remove))
	for i, k := range kept {
		if !remove[i] {
			out = append(out, k)
		}
	}
	return out, len(remove)
}

func jaccard(a, b map[string]bool) float64 {
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
