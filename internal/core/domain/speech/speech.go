package speech

// Language tags understood by the speech provider. The assistant is
// bilingual; anything else detected upstream is mapped to the default.
const (
	LanguageEnglish = "en-US"
	LanguageNepali  = "ne-NP"
)

// VoiceGender selects the synthesis voice.
type VoiceGender string

const (
	VoiceFemale VoiceGender = "female"
	VoiceMale   VoiceGender = "male"
)

// Transcript is the result of a speech-to-text call.
type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// LanguageDetection is the standalone language-identification result,
// cached separately from the transcript because it expires on its own TTL.
type LanguageDetection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// NormalizeLanguage maps arbitrary provider language tags onto the two
// supported locales. Nepali variants collapse to ne-NP, everything else
// to en-US.
func NormalizeLanguage(tag string) string {
	switch {
	case tag == "":
		return LanguageEnglish
	case tag == LanguageNepali, tag == "ne", tag == "ne-IN", tag == "nep":
		return LanguageNepali
	default:
		return LanguageEnglish
	}
}
