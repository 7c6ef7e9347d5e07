package pipeline

import "strings"

// Built-in trigger vocabulary per language. An utterance mentioning a place,
// availability, pricing, or appointment phrasing sends the pipeline through
// the searching stage; small talk does not.
var (
	englishKeywords = []string{
		"open now", "opening hours", "near me", "nearest", "nearby",
		"pharmacy", "clinic", "hospital", "emergency room",
		"price", "cost", "how much", "fees",
		"appointment", "available", "availability", "book",
		"on call", "tonight", "today",
		"where is", "where can", "when does", "when is",
	}

	arabicKeywords = []string{
		"مفتوح", "مفتوحة", "الآن", "الان",
		"صيدلية", "صيدليه", "عيادة", "عياده", "مستشفى", "طوارئ",
		"سعر", "تكلفة", "كم", "رسوم",
		"موعد", "مواعيد", "حجز", "متاح", "متاحة",
		"قريب", "قريبة", "أقرب", "اقرب",
		"أين", "اين", "وين", "متى",
		// Towns the assistant's patients commonly ask about.
		"نزوى", "مسقط", "صلالة", "صحار", "البريمي",
	}
)

// Classifier decides whether an utterance needs real-time augmentation.
// The decision is a pure keyword match with no network access, so it is
// cheap enough to run on every turn.
type Classifier struct {
	keywords map[string][]string
}

// NewClassifier builds a Classifier with the built-in vocabulary plus any
// per-language extras (keyed by BCP 47 tag or bare language code).
func NewClassifier(extra map[string][]string) *Classifier {
	kw := map[string][]string{
		"en": append([]string(nil), englishKeywords...),
		"ar": append([]string(nil), arabicKeywords...),
	}
	for tag, words := range extra {
		base := baseLang(tag)
		kw[base] = append(kw[base], words...)
	}
	return &Classifier{keywords: kw}
}

// ShouldAugment reports whether text warrants a real-time lookup for the
// given language tag. Unknown languages check both vocabularies.
func (c *Classifier) ShouldAugment(text, language string) bool {
	lowered := strings.ToLower(text)
	if lowered == "" {
		return false
	}

	base := baseLang(language)
	words, ok := c.keywords[base]
	if !ok {
		for _, set := range c.keywords {
			if containsAny(lowered, set) {
				return true
			}
		}
		return false
	}
	return containsAny(lowered, words)
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// baseLang reduces a BCP 47 tag to its primary subtag ("ar-SA" -> "ar").
func baseLang(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}
