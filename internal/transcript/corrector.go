// Package transcript corrects recognition errors in captured speech before
// it reaches the response pipeline. Browser speech recognition reliably
// mangles domain vocabulary: drug names, condition names, and local place
// names come back as near-homophones ("nizwa" as "niece wa", "paracetamol"
// as "para seat a mall").
//
// Correction uses Double Metaphone phonetic encoding to find candidate
// vocabulary terms and Jaro-Winkler similarity to rank them. Both algorithms
// operate on Latin script only, so Arabic tokens pass through untouched;
// Arabic recognition errors are left to the language model, which sees the
// raw utterance in context.
package transcript

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.88

	// maxTermTokens bounds the n-gram window matched against multi-word
	// vocabulary terms.
	maxTermTokens = 3
)

// Correction records one replacement made by the corrector.
type Correction struct {
	// Original is the token span as recognised.
	Original string

	// Replacement is the vocabulary term that was substituted.
	Replacement string

	// Confidence is the Jaro-Winkler score of the match.
	Confidence float64
}

// Option configures a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum similarity required for a
// phonetically matched term. Default: 0.70.
func WithPhoneticThreshold(t float64) Option {
	return func(c *Corrector) { c.phoneticThreshold = t }
}

// WithFuzzyThreshold sets the minimum similarity required when no phonetic
// code overlaps and the corrector falls back to plain string similarity.
// Default: 0.88.
func WithFuzzyThreshold(t float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = t }
}

// Corrector aligns recognised words against a fixed vocabulary.
// It is read-only after construction and safe for concurrent use.
type Corrector struct {
	terms             []term
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// term is a vocabulary entry with its precomputed phonetic codes.
type term struct {
	text   string
	tokens int
	codes  map[string]struct{}
}

// New creates a Corrector over the given vocabulary. Terms that contain no
// Latin letters are dropped, since the phonetic encoder cannot represent
// them.
func New(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	for _, v := range vocabulary {
		v = strings.TrimSpace(v)
		if v == "" || !isLatin(v) {
			continue
		}
		tokens := strings.Fields(strings.ToLower(v))
		c.terms = append(c.terms, term{
			text:   v,
			tokens: len(tokens),
			codes:  codesFor(tokens),
		})
	}
	return c
}

// Correct rewrites recognised vocabulary near-misses in text and returns the
// corrected text together with the corrections applied. Tokens outside
// Latin script and exact vocabulary hits are left unchanged.
func (c *Corrector) Correct(text string) (string, []Correction) {
	if len(c.terms) == 0 || strings.TrimSpace(text) == "" {
		return text, nil
	}

	words := strings.Fields(text)
	var corrections []Correction

	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		replaced := false

		// Longest n-gram first so multi-word terms win over their
		// fragments.
		maxN := maxTermTokens
		if rest := len(words) - i; rest < maxN {
			maxN = rest
		}
		for n := maxN; n >= 1 && !replaced; n-- {
			span := strings.Join(words[i:i+n], " ")
			if !isLatin(span) {
				continue
			}
			if replacement, score, ok := c.match(span); ok {
				out = append(out, replacement)
				corrections = append(corrections, Correction{
					Original:    span,
					Replacement: replacement,
					Confidence:  score,
				})
				i += n
				replaced = true
			}
		}
		if !replaced {
			out = append(out, words[i])
			i++
		}
	}

	if len(corrections) == 0 {
		return text, nil
	}
	return strings.Join(out, " "), corrections
}

// match finds the best vocabulary term for span. Exact (case-insensitive)
// hits report no match so correct input is never rewritten.
func (c *Corrector) match(span string) (string, float64, bool) {
	spanLower := strings.ToLower(strings.Trim(span, ".,!?;:"))
	if spanLower == "" {
		return "", 0, false
	}
	spanTokens := strings.Fields(spanLower)
	spanCodes := codesFor(spanTokens)

	var (
		bestTerm     string
		bestScore    float64
		bestPhonetic bool
	)
	for _, t := range c.terms {
		termLower := strings.ToLower(t.text)
		if spanLower == termLower {
			return "", 0, false
		}
		// Only spans of matching length are candidates. Common words
		// like "blood" would otherwise pull whole phrases into the
		// transcript.
		if t.tokens != len(spanTokens) {
			continue
		}

		score := similarity(spanTokens, strings.Fields(termLower), spanLower, termLower)
		phonetic := codesOverlap(spanCodes, t.codes)

		switch {
		case phonetic && score >= c.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				bestTerm, bestScore, bestPhonetic = t.text, score, true
			}
		case !phonetic && !bestPhonetic:
			if score >= c.fuzzyThreshold && score > bestScore {
				bestTerm, bestScore = t.text, score
			}
		}
	}

	if bestTerm == "" {
		return "", 0, false
	}
	return bestTerm, bestScore, true
}

// codesFor returns the union of Double Metaphone codes for tokens. Empty
// codes are excluded.
func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity scores a span against a term of the same token count. Single
// tokens compare directly; multi-word spans take the weakest positional pair
// so that one shared word cannot carry an otherwise unrelated phrase.
func similarity(spanTokens, termTokens []string, spanFull, termFull string) float64 {
	if len(spanTokens) == 1 {
		return matchr.JaroWinkler(spanFull, termFull, false)
	}
	score := 1.0
	for i := range spanTokens {
		if s := matchr.JaroWinkler(spanTokens[i], termTokens[i], false); s < score {
			score = s
		}
	}
	return score
}

// isLatin reports whether every letter in s is in Latin script. Digits and
// punctuation are ignored.
func isLatin(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.In(r, unicode.Latin) {
			return false
		}
	}
	return true
}
