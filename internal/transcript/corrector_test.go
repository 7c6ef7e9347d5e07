package transcript_test

import (
	"strings"
	"testing"

	"github.com/sahhacare/sahha/internal/transcript"
)

var vocabulary = []string{"paracetamol", "ibuprofen", "Nizwa", "blood pressure"}

func TestCorrect_PhoneticNearMiss(t *testing.T) {
	t.Parallel()

	c := transcript.New(vocabulary)

	// "parasitamol" shares Double Metaphone codes with "paracetamol".
	got, corrections := c.Correct("I took parasitamol this morning")
	if !strings.Contains(got, "paracetamol") {
		t.Errorf("Correct: got %q, want it to contain %q", got, "paracetamol")
	}
	if len(corrections) != 1 {
		t.Fatalf("corrections: want 1, got %d", len(corrections))
	}
	if corrections[0].Original != "parasitamol" {
		t.Errorf("Original = %q, want %q", corrections[0].Original, "parasitamol")
	}
	if corrections[0].Replacement != "paracetamol" {
		t.Errorf("Replacement = %q, want %q", corrections[0].Replacement, "paracetamol")
	}
	if corrections[0].Confidence < 0.7 {
		t.Errorf("Confidence = %f, want >= 0.7", corrections[0].Confidence)
	}
}

func TestCorrect_MultiWordTerm(t *testing.T) {
	t.Parallel()

	c := transcript.New(vocabulary)

	got, corrections := c.Correct("check my blood presure please")
	if !strings.Contains(got, "blood pressure") {
		t.Errorf("Correct: got %q, want it to contain %q", got, "blood pressure")
	}
	if len(corrections) != 1 {
		t.Fatalf("corrections: want 1, got %d", len(corrections))
	}
	if corrections[0].Original != "blood presure" {
		t.Errorf("Original = %q, want the full two-word span, got %q", corrections[0].Original, "blood presure")
	}
}

func TestCorrect_ExactHitUntouched(t *testing.T) {
	t.Parallel()

	c := transcript.New(vocabulary)

	in := "ibuprofen helps with the pain"
	got, corrections := c.Correct(in)
	if got != in {
		t.Errorf("Correct: got %q, want input unchanged", got)
	}
	if len(corrections) != 0 {
		t.Errorf("corrections: want none for an exact hit, got %v", corrections)
	}
}

func TestCorrect_ArabicPassthrough(t *testing.T) {
	t.Parallel()

	c := transcript.New(vocabulary)

	in := "عندي صداع منذ الصباح"
	got, corrections := c.Correct(in)
	if got != in {
		t.Errorf("Correct: got %q, want Arabic input unchanged", got)
	}
	if len(corrections) != 0 {
		t.Errorf("corrections: want none for Arabic input, got %v", corrections)
	}
}

func TestCorrect_UnrelatedTextUnchanged(t *testing.T) {
	t.Parallel()

	c := transcript.New(vocabulary)

	in := "good morning how are you"
	got, corrections := c.Correct(in)
	if got != in {
		t.Errorf("Correct: got %q, want input unchanged", got)
	}
	if len(corrections) != 0 {
		t.Errorf("corrections: want none, got %v", corrections)
	}
}

func TestNew_DropsNonLatinTerms(t *testing.T) {
	t.Parallel()

	// Arabic vocabulary cannot be phonetically encoded and must not
	// produce corrections.
	c := transcript.New([]string{"مستشفى", "paracetamol"})

	in := "مستشفي"
	got, corrections := c.Correct(in)
	if got != in {
		t.Errorf("Correct: got %q, want input unchanged", got)
	}
	if len(corrections) != 0 {
		t.Errorf("corrections: want none, got %v", corrections)
	}
}

func TestCorrect_EmptyInput(t *testing.T) {
	t.Parallel()

	c := transcript.New(vocabulary)
	if got, corrections := c.Correct(""); got != "" || corrections != nil {
		t.Errorf("Correct(%q): got %q, %v", "", got, corrections)
	}
}

func TestCorrect_EmptyVocabulary(t *testing.T) {
	t.Parallel()

	c := transcript.New(nil)
	in := "parasitamol"
	if got, _ := c.Correct(in); got != in {
		t.Errorf("Correct: got %q, want input unchanged with no vocabulary", got)
	}
}
