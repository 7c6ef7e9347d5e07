package speech

import (
	"strings"

	"github.com/sahhacare/sahha/pkg/provider/tts"
)

// Name fragments that identify voice gender across the common platform
// voice catalogues (Microsoft, Apple, Google, eSpeak).
var (
	femalePatterns = []string{
		"female", "woman",
		"zira", "aria", "jenny", "samantha", "victoria", "karen",
		"moira", "tessa", "fiona", "serena", "kate",
		"hoda", "salma", "zariyah", "amina", "laila", "hala",
	}

	malePatterns = []string{
		"male", "man",
		"david", "mark", "guy", "daniel", "alex", "fred", "thomas",
		"oliver", "james", "george",
		"naayf", "hamed", "hamdan", "fahed",
	}
)

// PickVoice chooses a platform voice for the target language. The heuristic
// prefers, in order: a preferred-pattern or female-pattern voice for the
// language that does not match a male pattern, then any non-male voice for
// the language, then a cross-language female voice. A voice matching a male
// pattern is never chosen deliberately; when only male-pattern voices exist
// the platform default is used instead, signalled by ok=false.
func PickVoice(voices []tts.Voice, language string, preferred []string) (voice tts.Voice, ok bool) {
	if len(voices) == 0 {
		return tts.Voice{}, false
	}
	base := baseLang(language)

	var (
		langFemale tts.Voice
		langAny    tts.Voice
		crossLang  tts.Voice
		haveLangF  bool
		haveLangA  bool
		haveCross  bool
	)

	// Configured preferences outrank the built-in patterns.
	for _, pat := range preferred {
		for _, v := range voices {
			if matchesPattern(v.Name, []string{pat}) && !matchesPattern(v.Name, malePatterns) &&
				baseLang(v.Language) == base {
				return v, true
			}
		}
	}

	for _, v := range voices {
		if matchesPattern(v.Name, malePatterns) {
			continue
		}
		sameLang := baseLang(v.Language) == base
		female := matchesPattern(v.Name, femalePatterns)

		switch {
		case sameLang && female && !haveLangF:
			langFemale, haveLangF = v, true
		case sameLang && !haveLangA:
			langAny, haveLangA = v, true
		case !sameLang && female && !haveCross:
			crossLang, haveCross = v, true
		}
	}

	switch {
	case haveLangF:
		return langFemale, true
	case haveLangA:
		return langAny, true
	case haveCross:
		return crossLang, true
	}
	return tts.Voice{}, false
}

func matchesPattern(name string, patterns []string) bool {
	lowered := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lowered, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func baseLang(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}
