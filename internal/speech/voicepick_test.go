package speech_test

import (
	"testing"

	"github.com/sahhacare/sahha/internal/speech"
	"github.com/sahhacare/sahha/pkg/provider/tts"
)

func TestPickVoice_PrefersFemaleForLanguage(t *testing.T) {
	t.Parallel()

	voices := []tts.Voice{
		{Name: "Microsoft David - English (United States)", Language: "en-US"},
		{Name: "Microsoft Zira - English (United States)", Language: "en-US"},
	}

	v, ok := speech.PickVoice(voices, "en-US", nil)
	if !ok {
		t.Fatal("PickVoice: ok = false, want a voice")
	}
	if v.Name != "Microsoft Zira - English (United States)" {
		t.Errorf("picked %q, want Zira", v.Name)
	}
}

func TestPickVoice_PreferredPatternsWin(t *testing.T) {
	t.Parallel()

	voices := []tts.Voice{
		{Name: "Microsoft Zira - English (United States)", Language: "en-US"},
		{Name: "Samantha", Language: "en-US"},
	}

	v, ok := speech.PickVoice(voices, "en-US", []string{"Samantha"})
	if !ok {
		t.Fatal("PickVoice: ok = false, want a voice")
	}
	if v.Name != "Samantha" {
		t.Errorf("picked %q, want the configured preference Samantha", v.Name)
	}
}

func TestPickVoice_ArabicCatalogue(t *testing.T) {
	t.Parallel()

	voices := []tts.Voice{
		{Name: "Microsoft Naayf - Arabic (Saudi)", Language: "ar-SA"},
		{Name: "Microsoft Hoda - Arabic (Egypt)", Language: "ar-EG"},
		{Name: "Microsoft Zira - English (United States)", Language: "en-US"},
	}

	v, ok := speech.PickVoice(voices, "ar-SA", nil)
	if !ok {
		t.Fatal("PickVoice: ok = false, want a voice")
	}
	// Hoda is the only non-male Arabic voice; region may differ.
	if v.Name != "Microsoft Hoda - Arabic (Egypt)" {
		t.Errorf("picked %q, want Hoda", v.Name)
	}
}

func TestPickVoice_UnnamedLanguageVoice(t *testing.T) {
	t.Parallel()

	// A voice with no recognisable gender fragment still beats a
	// cross-language female voice.
	voices := []tts.Voice{
		{Name: "Majed", Language: "ar-SA"},
		{Name: "Microsoft Zira - English (United States)", Language: "en-US"},
	}

	v, ok := speech.PickVoice(voices, "ar-SA", nil)
	if !ok {
		t.Fatal("PickVoice: ok = false, want a voice")
	}
	if v.Name != "Majed" {
		t.Errorf("picked %q, want the same-language voice", v.Name)
	}
}

func TestPickVoice_CrossLanguageFemaleFallback(t *testing.T) {
	t.Parallel()

	voices := []tts.Voice{
		{Name: "Microsoft Zira - English (United States)", Language: "en-US"},
	}

	v, ok := speech.PickVoice(voices, "ar-SA", nil)
	if !ok {
		t.Fatal("PickVoice: ok = false, want the cross-language fallback")
	}
	if v.Name != "Microsoft Zira - English (United States)" {
		t.Errorf("picked %q, want Zira", v.Name)
	}
}

func TestPickVoice_OnlyMaleVoicesUsesDefault(t *testing.T) {
	t.Parallel()

	voices := []tts.Voice{
		{Name: "Microsoft David - English (United States)", Language: "en-US"},
		{Name: "Microsoft Mark - English (United States)", Language: "en-US"},
	}

	if v, ok := speech.PickVoice(voices, "en-US", nil); ok {
		t.Errorf("PickVoice: picked %q, want the platform default (ok=false)", v.Name)
	}
}

func TestPickVoice_EmptyCatalogue(t *testing.T) {
	t.Parallel()

	if _, ok := speech.PickVoice(nil, "en-US", nil); ok {
		t.Error("PickVoice: ok = true for an empty catalogue")
	}
}
