package llm

import _ "embed"

// DefaultPromptVersion is used when the configured version is unknown.
const DefaultPromptVersion = "score_v1"

//go:embed prompts/score_v1.txt
var promptScoreV1 string

// PromptTemplate returns the prompt template text and whether the version was recognized.
func PromptTemplate(version string) (string, bool) {
	switch version {
	case "score_v1":
		return promptScoreV1, true
	default:
		return promptScoreV1, false
	}
}
