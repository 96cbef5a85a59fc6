package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compiled regex patterns for text normalization
var (
	// Anything outside lowercase ASCII letters, digits, whitespace and hyphen
	disallowedCharsPattern = regexp.MustCompile(`[^a-z0-9\s-]`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// DefaultStopwords are the Spanish function words dropped during normalization.
var DefaultStopwords = []string{
	"el", "la", "los", "las", "un", "una", "unos", "unas",
	"de", "del", "al", "y", "o", "en", "para", "por",
	"con", "sin", "sobre", "entre", "a",
}

// Abbreviation is one whole-word expansion applied by CanonicalKey.
type Abbreviation struct {
	Short    string `mapstructure:"short"`
	Expanded string `mapstructure:"expanded"`
}

// DefaultAbbreviations is applied in order. No expansion contains a word
// that is itself abbreviated, so applying the table twice changes nothing.
var DefaultAbbreviations = []Abbreviation{
	{Short: "rut", Expanded: "rol unico tributario"},
	{Short: "run", Expanded: "rol unico nacional"},
	{Short: "nro", Expanded: "numero"},
	{Short: "tel", Expanded: "telefono"},
	{Short: "cel", Expanded: "celular"},
	{Short: "dir", Expanded: "direccion"},
	{Short: "dpto", Expanded: "departamento"},
	{Short: "ap", Expanded: "apellido"},
	{Short: "nom", Expanded: "nombre"},
	{Short: "fec", Expanded: "fecha"},
	{Short: "nac", Expanded: "nacimiento"},
	{Short: "pat", Expanded: "paterno"},
	{Short: "mat", Expanded: "materno"},
}

// minKeywordLength is the shortest token ExtractKeywords keeps.
const minKeywordLength = 3

// NormalizerConfig holds the static tables used by TextNormalizer.
type NormalizerConfig struct {
	Stopwords     []string
	Abbreviations []Abbreviation
}

type compiledAbbreviation struct {
	pattern  *regexp.Regexp
	expanded string
}

// TextNormalizer canonicalizes free text into comparable keys. It holds
// only immutable tables, so one instance can be shared freely.
type TextNormalizer struct {
	stopwords     map[string]bool
	abbreviations []compiledAbbreviation
}

// NewTextNormalizer creates a normalizer, falling back to the default tables
// for any table left empty.
func NewTextNormalizer(config NormalizerConfig) *TextNormalizer {
	stopwords := config.Stopwords
	if len(stopwords) == 0 {
		stopwords = DefaultStopwords
	}
	abbreviations := config.Abbreviations
	if len(abbreviations) == 0 {
		abbreviations = DefaultAbbreviations
	}

	n := &TextNormalizer{
		stopwords: make(map[string]bool, len(stopwords)),
	}
	for _, w := range stopwords {
		n.stopwords[strings.ToLower(strings.TrimSpace(w))] = true
	}
	for _, a := range abbreviations {
		short := strings.TrimSpace(strings.ToLower(a.Short))
		if short == "" {
			continue
		}
		n.abbreviations = append(n.abbreviations, compiledAbbreviation{
			pattern:  regexp.MustCompile(`\b` + regexp.QuoteMeta(short) + `\b`),
			expanded: a.Expanded,
		})
	}
	return n
}

// Normalize lowercases text, folds diacritics, replaces anything outside
// [a-z0-9\s-] with a space, collapses whitespace and optionally drops
// stopwords. Empty input yields an empty string.
func (n *TextNormalizer) Normalize(text string, removeStopwords bool) string {
	if text == "" {
		return ""
	}

	cleaned := foldDiacritics(strings.ToLower(text))
	cleaned = disallowedCharsPattern.ReplaceAllString(cleaned, " ")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")

	if removeStopwords {
		words := strings.Fields(cleaned)
		kept := words[:0]
		for _, w := range words {
			if !n.stopwords[w] {
				kept = append(kept, w)
			}
		}
		cleaned = strings.Join(kept, " ")
	}

	return strings.TrimSpace(cleaned)
}

// latinLetters spells out letters that carry no combining mark, so
// decomposition alone would leave them for the character filter to drop.
var latinLetters = strings.NewReplacer(
	"ł", "l", "Ł", "l",
	"ø", "o", "Ø", "o",
	"ß", "ss", "ẞ", "ss",
	"œ", "oe", "Œ", "oe",
	"æ", "ae", "Æ", "ae",
	"đ", "d", "Đ", "d",
)

// foldDiacritics reduces text to plain Latin letters (á -> a, ñ -> n,
// ﬁ -> fi, º -> o, ß -> ss). Chained transformers keep internal buffers,
// so a fresh chain is built per call.
func foldDiacritics(s string) string {
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, latinLetters.Replace(s))
	if err != nil {
		return s
	}
	return folded
}

// CanonicalKey normalizes text and expands known abbreviations on word
// boundaries. Two labels with the same key are nominally the same field.
func (n *TextNormalizer) CanonicalKey(text string) string {
	key := n.Normalize(text, true)
	for _, a := range n.abbreviations {
		key = a.pattern.ReplaceAllLiteralString(key, a.expanded)
	}
	return key
}

// ExtractKeywords returns the distinct normalized tokens of at least three
// characters, sorted for deterministic output.
func (n *TextNormalizer) ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, w := range strings.Fields(n.Normalize(text, true)) {
		if len(w) < minKeywordLength || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	sort.Strings(keywords)
	return keywords
}

// Similarity returns 1.0 when both texts share a canonical key and the
// Jaccard coefficient of their keywords otherwise.
func (n *TextNormalizer) Similarity(a, b string) float64 {
	if n.CanonicalKey(a) == n.CanonicalKey(b) {
		return 1.0
	}

	keywordsA := n.ExtractKeywords(a)
	keywordsB := n.ExtractKeywords(b)
	if len(keywordsA) == 0 || len(keywordsB) == 0 {
		return 0
	}

	shared, _ := findIntersection(keywordsA, keywordsB)
	return float64(shared) / float64(findUnion(keywordsA, keywordsB))
}

// EditSimilarity is the character-level ratio 1 - distance/longest, in [0,1].
func EditSimilarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
