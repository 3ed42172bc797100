package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/types"
)

// Metadata describes what normalization did to one comment.
type Metadata struct {
	DetectedLanguage types.Language `json:"detected_language"`
	TargetLanguage   types.Language `json:"target_language"`
	Transformations  []string       `json:"transformations"`
	LengthChange     int            `json:"length_change"`
}

// Stats aggregates a batch normalization pass.
type Stats struct {
	TotalComments          int `json:"total_comments"`
	NormalizedComments     int `json:"normalized_comments"`
	EncodingFixes          int `json:"encoding_fixes"`
	LanguageDetections     int `json:"language_detections"`
	FormatStandardizations int `json:"format_standardizations"`
	TextNormalizations     int `json:"text_normalizations"`
}

// languagePatterns score keyword density per supported language. Keywords are
// matched after diacritics are stripped, so they carry no accents.
var languagePatterns = map[types.Language][]*regexp.Regexp{
	types.LangES: {
		regexp.MustCompile(`\b(que|con|por|para|desde|hasta|este|esta|muy|mas|tambien|donde|cuando|como|porque)\b`),
		regexp.MustCompile(`\b(el|la|los|las|un|una|de|en|y|a|es|se|no|te|lo|le|da|su|son|al|del)\b`),
	},
	types.LangEN: {
		regexp.MustCompile(`\b(the|and|or|but|in|on|at|to|for|of|with|by|from|that|this|these|those)\b`),
		regexp.MustCompile(`\b(is|are|was|were|have|has|had|do|does|did|will|would|can|could|should|may|might)\b`),
	},
	types.LangGN: {
		regexp.MustCompile(`\b(ha|ndive|ko|pe|rehe|gui|ndi|che|nde|upe|upegui|upevare|hese|hesegui)\b`),
		regexp.MustCompile(`\b(oiko|aiko|aime|upei|araka|amo|jey|kuri|pytyvo|pora|ikatu)\b`),
	},
}

// detectionThreshold is the minimum keyword density before a language wins
// over the configured default.
const detectionThreshold = 0.1

var spanishContractions = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\bpa\b`), "para"},
	{regexp.MustCompile(`(?i)\bx\b`), "por"},
	{regexp.MustCompile(`(?i)\bq\b`), "que"},
	{regexp.MustCompile(`(?i)\btb\b`), "tambien"},
	{regexp.MustCompile(`(?i)\bxq\b`), "porque"},
	{regexp.MustCompile(`(?i)\bmuy\s+bn\b`), "muy bien"},
	{regexp.MustCompile(`(?i)\bbn\b`), "bien"},
}

var englishContractions = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\bcan't\b`), "cannot"},
	{regexp.MustCompile(`(?i)\bwon't\b`), "will not"},
	{regexp.MustCompile(`(?i)n't\b`), " not"},
	{regexp.MustCompile(`(?i)\b(\w+)'m\b`), "$1 am"},
	{regexp.MustCompile(`(?i)\b(\w+)'re\b`), "$1 are"},
	{regexp.MustCompile(`(?i)\b(\w+)'ve\b`), "$1 have"},
	{regexp.MustCompile(`(?i)\b(\w+)'ll\b`), "$1 will"},
	{regexp.MustCompile(`(?i)\b(\w+)'d\b`), "$1 would"},
}

var (
	punctSpaceBeforeRe = regexp.MustCompile(`\s+([,.;:!?])`)
	punctSpaceAfterRe  = regexp.MustCompile(`([,.;:!?])([^\s\d,.;:!?])`)
	multiBangRe        = regexp.MustCompile(`!{2,}`)
	multiQuestionRe    = regexp.MustCompile(`\?{2,}`)
	multiDotRe         = regexp.MustCompile(`\.{4,}`)
	multiSpaceRe       = regexp.MustCompile(`\s+`)
	decimalCommaRe     = regexp.MustCompile(`(\d+),(\d{1,2})\b`)
	dateRe             = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	phoneRe            = regexp.MustCompile(`(\d+)\s*[-\s]\s*(\d+)\s*[-\s]\s*(\d+)`)
	sentenceSplitRe    = regexp.MustCompile(`[.!?]+`)
	wordCharRe         = regexp.MustCompile(`[^\p{L}\p{N}]`)
)

// notProperNoun holds title-cased words that are common sentence connectors,
// never proper nouns.
var notProperNoun = map[string]bool{
	"que": true, "con": true, "por": true, "para": true,
	"desde": true, "hasta": true, "este": true, "esta": true,
}

// Normalizer applies Unicode, contraction, punctuation, number and case
// normalization in a fixed order. Contractions must run before punctuation
// so expanded words are spaced correctly.
type Normalizer struct {
	defaultLang  types.Language
	preserveCase bool
}

func New(defaultLang types.Language) *Normalizer {
	return &Normalizer{defaultLang: defaultLang}
}

// NewPreservingCase returns a Normalizer that skips the case pass.
func NewPreservingCase(defaultLang types.Language) *Normalizer {
	return &Normalizer{defaultLang: defaultLang, preserveCase: true}
}

// StripDiacritics performs canonical decomposition and drops combining
// marks, keeping the tilde on ñ.
func StripDiacritics(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	prev := rune(0)
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			// U+0303 combining tilde over n spells ñ.
			if r == 0x0303 && (prev == 'n' || prev == 'N') {
				b.WriteRune(r)
			}
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return norm.NFC.String(b.String())
}

// DetectLanguage scores keyword density per supported language and returns
// the best match, or the default when nothing scores above the threshold.
func (n *Normalizer) DetectLanguage(text string) types.Language {
	if strings.TrimSpace(text) == "" {
		return n.defaultLang
	}
	lower := strings.ToLower(StripDiacritics(text))
	words := len(strings.Fields(lower))
	if words == 0 {
		words = 1
	}
	best := n.defaultLang
	bestScore := 0.0
	for lang, patterns := range languagePatterns {
		hits := 0
		for _, re := range patterns {
			hits += len(re.FindAllString(lower, -1))
		}
		score := float64(hits) / float64(words)
		if score > bestScore {
			bestScore = score
			best = lang
		}
	}
	if bestScore < detectionThreshold {
		return n.defaultLang
	}
	return best
}

// Normalize runs the full transformation chain on one comment. targetLang
// empty means auto-detect.
func (n *Normalizer) Normalize(text string, targetLang types.Language) (string, Metadata) {
	meta := Metadata{DetectedLanguage: n.defaultLang, TargetLanguage: targetLang}
	if text == "" {
		return "", meta
	}
	original := text

	if hasNonASCII(text) {
		text = StripDiacritics(text)
		meta.Transformations = append(meta.Transformations, "unicode_normalized")
	}

	meta.DetectedLanguage = n.DetectLanguage(text)
	if targetLang == "" {
		meta.TargetLanguage = meta.DetectedLanguage
	}

	before := text
	text = expandContractions(text, meta.TargetLanguage)
	if text != before {
		meta.Transformations = append(meta.Transformations, "contractions_expanded")
	}

	before = text
	text = normalizePunctuation(text)
	if text != before {
		meta.Transformations = append(meta.Transformations, "punctuation_normalized")
	}

	before = text
	text = normalizeNumbersAndDates(text)
	if text != before {
		meta.Transformations = append(meta.Transformations, "numbers_normalized")
	}

	if !n.preserveCase {
		before = text
		text = normalizeCase(text)
		if text != before {
			meta.Transformations = append(meta.Transformations, "case_normalized")
		}
	}

	text = strings.TrimSpace(text)
	meta.LengthChange = len(text) - len(original)
	return text, meta
}

// NormalizeBatch normalizes a batch and aggregates stats.
func (n *Normalizer) NormalizeBatch(comments []string, targetLang types.Language) ([]string, Stats, []Metadata) {
	log := logger.New().WithField("component", "normalizer")
	stats := Stats{TotalComments: len(comments)}
	if len(comments) == 0 {
		return nil, stats, nil
	}
	log.WithField("total", len(comments)).Info("normalizing comments")

	out := make([]string, 0, len(comments))
	metas := make([]Metadata, 0, len(comments))
	for _, c := range comments {
		normalized, meta := n.Normalize(c, targetLang)
		out = append(out, normalized)
		metas = append(metas, meta)

		if normalized != "" {
			stats.NormalizedComments++
		}
		if contains(meta.Transformations, "unicode_normalized") {
			stats.EncodingFixes++
		}
		if meta.DetectedLanguage != n.defaultLang {
			stats.LanguageDetections++
		}
		if contains(meta.Transformations, "punctuation_normalized") || contains(meta.Transformations, "numbers_normalized") {
			stats.FormatStandardizations++
		}
		if contains(meta.Transformations, "case_normalized") {
			stats.TextNormalizations++
		}
	}
	log.WithField("normalized", stats.NormalizedComments).Info("normalization complete")
	return out, stats, metas
}

// LanguageDistribution counts detected languages across batch metadata.
func LanguageDistribution(metas []Metadata) map[types.Language]int {
	dist := make(map[types.Language]int, 3)
	for _, m := range metas {
		dist[m.DetectedLanguage]++
	}
	return dist
}

func expandContractions(text string, lang types.Language) string {
	switch lang {
	case types.LangES:
		for _, c := range spanishContractions {
			text = c.re.ReplaceAllString(text, c.with)
		}
	case types.LangEN:
		for _, c := range englishContractions {
			text = c.re.ReplaceAllString(text, c.with)
		}
	}
	return text
}

func normalizePunctuation(text string) string {
	s := punctSpaceBeforeRe.ReplaceAllString(text, "$1")
	s = punctSpaceAfterRe.ReplaceAllString(s, "$1 $2")
	s = multiBangRe.ReplaceAllString(s, "!")
	s = multiQuestionRe.ReplaceAllString(s, "?")
	s = multiDotRe.ReplaceAllString(s, "...")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeNumbersAndDates(text string) string {
	s := decimalCommaRe.ReplaceAllString(text, "$1.$2")
	s = dateRe.ReplaceAllString(s, "$1/$2/$3")
	s = phoneRe.ReplaceAllString(s, "$1-$2-$3")
	return s
}

// normalizeCase lowercases each sentence, restores the sentence-initial
// capital and keeps title-cased words that look like proper nouns.
func normalizeCase(text string) string {
	sentences := sentenceSplitRe.Split(text, -1)
	var out []string
	for _, sentence := range sentences {
		words := strings.Fields(strings.TrimSpace(sentence))
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			if i == 0 {
				words[i] = capitalize(strings.ToLower(w))
				continue
			}
			clean := wordCharRe.ReplaceAllString(w, "")
			if len([]rune(clean)) > 2 && isTitleCase(clean) && !notProperNoun[strings.ToLower(clean)] {
				continue // keep assumed proper noun as written
			}
			words[i] = strings.ToLower(w)
		}
		out = append(out, strings.Join(words, " "))
	}
	return strings.TrimSpace(strings.Join(out, ". "))
}

func capitalize(w string) string {
	runes := []rune(w)
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func isTitleCase(w string) bool {
	runes := []rune(w)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func hasNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
