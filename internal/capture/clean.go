package capture

import (
	"regexp"
	"strings"
)

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]", "(speaking French)".
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z_][a-zA-Z_\s]*[\)\]]`)

// timestampPrefix matches whisper timestamp prefixes like
// "[00:00:00.000 --> 00:00:05.000]".
var timestampPrefix = regexp.MustCompile(`^\[[0-9:.\s>-]+\]\s*`)

// hallucinations is text whisper produces from silence or hum. An
// utterance that is nothing but one of these is discarded.
var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"bye.",
	"the end.",
}

// cleanTranscription normalizes whitespace and strips the artifacts a
// whisper model injects around real speech: bracketed annotations,
// timestamp prefixes, and silence hallucinations. Returns "" when nothing
// meaningful remains.
func cleanTranscription(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	s = timestampPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = envAnnotation.ReplaceAllString(s, "")

	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if lower == h {
			return ""
		}
	}

	return s
}
