package pipeline

import (
	"fmt"
	"strings"
)

// Built-in personas used when the configuration supplies none.
const (
	personaEnglish = `You are %s, a warm and professional virtual nurse. You answer health questions in clear, simple English, encourage patients to seek in-person care for anything serious, and never invent medical facts. Keep answers short enough to be spoken aloud.`

	personaArabic = `أنتِ %s، ممرضة افتراضية ودودة ومحترفة. تجيبين عن الأسئلة الصحية بعربية واضحة وبسيطة، وتنصحين المريض بمراجعة الطبيب في الحالات الجدية، ولا تختلقين معلومات طبية أبداً. اجعلي الإجابة قصيرة بما يكفي لتُقرأ بصوت مسموع.`
)

// PromptInput carries everything the prompt builder folds into the system
// message for one turn.
type PromptInput struct {
	// Language is the BCP 47 tag of the active session language.
	Language string

	// PatientName, when known, lets the assistant address the patient
	// directly.
	PatientName string

	// PatientGender is "female", "male", or empty. Arabic grammar
	// inflects by addressee gender, so the persona carries an explicit
	// instruction when it is known.
	PatientGender string

	// Augmentation is the real-time lookup result, empty when the turn
	// needed none or the lookup failed.
	Augmentation string

	// MemoryFacts are long-lived patient facts from earlier sessions.
	MemoryFacts []string

	// Knowledge holds retrieved medical reference passages.
	Knowledge []string
}

// PromptBuilder assembles the per-turn system prompt.
// It is read-only after construction and safe for concurrent use.
type PromptBuilder struct {
	assistantName string
	personas      map[string]string
}

// NewPromptBuilder creates a builder for the named assistant. personas maps
// language tags to custom persona texts; missing languages use the built-in
// persona.
func NewPromptBuilder(assistantName string, personas map[string]string) *PromptBuilder {
	p := make(map[string]string, len(personas))
	for tag, text := range personas {
		if strings.TrimSpace(text) != "" {
			p[baseLang(tag)] = text
		}
	}
	return &PromptBuilder{assistantName: assistantName, personas: p}
}

// Build returns the system prompt for one turn.
func (b *PromptBuilder) Build(in PromptInput) string {
	var sb strings.Builder
	sb.WriteString(b.persona(in.Language))

	arabic := baseLang(in.Language) == "ar"

	if in.PatientName != "" {
		if arabic {
			fmt.Fprintf(&sb, "\n\nاسم المريض: %s.", in.PatientName)
		} else {
			fmt.Fprintf(&sb, "\n\nThe patient's name is %s.", in.PatientName)
		}
	}
	switch in.PatientGender {
	case "female":
		if arabic {
			sb.WriteString(" خاطبي المريضة بصيغة المؤنث.")
		} else {
			sb.WriteString(" Address the patient as she/her.")
		}
	case "male":
		if arabic {
			sb.WriteString(" خاطبي المريض بصيغة المذكر.")
		} else {
			sb.WriteString(" Address the patient as he/him.")
		}
	}

	if len(in.MemoryFacts) > 0 {
		if arabic {
			sb.WriteString("\n\nمعلومات معروفة عن المريض من جلسات سابقة:\n")
		} else {
			sb.WriteString("\n\nKnown facts about this patient from earlier sessions:\n")
		}
		for _, f := range in.MemoryFacts {
			sb.WriteString("- ")
			sb.WriteString(f)
			sb.WriteString("\n")
		}
	}

	if len(in.Knowledge) > 0 {
		if arabic {
			sb.WriteString("\nمراجع طبية ذات صلة:\n")
		} else {
			sb.WriteString("\nRelevant medical reference material:\n")
		}
		for _, k := range in.Knowledge {
			sb.WriteString("- ")
			sb.WriteString(k)
			sb.WriteString("\n")
		}
	}

	if in.Augmentation != "" {
		if arabic {
			sb.WriteString("\nمعلومات حديثة قد تفيد في الإجابة:\n")
		} else {
			sb.WriteString("\nUp-to-date local information that may help answer:\n")
		}
		sb.WriteString(in.Augmentation)
	}

	if arabic {
		sb.WriteString("\n\nأجيبي بالعربية فقط.")
	} else {
		sb.WriteString("\n\nReply in English only.")
	}
	return sb.String()
}

func (b *PromptBuilder) persona(language string) string {
	base := baseLang(language)
	if p, ok := b.personas[base]; ok {
		return p
	}
	if base == "ar" {
		return fmt.Sprintf(personaArabic, b.assistantName)
	}
	return fmt.Sprintf(personaEnglish, b.assistantName)
}
