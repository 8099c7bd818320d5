// Package prompt builds the grounded-answer prompt shared by all generation
// backends, so switching providers never changes answer behavior.
package prompt

import "fmt"

// BuildAnswerPrompt instructs the model to answer strictly from the numbered
// context block. An empty context still produces a valid prompt; the model is
// told to say the documentation does not cover the question.
func BuildAnswerPrompt(question, contextBlock string) string {
	if contextBlock == "" {
		contextBlock = "(no relevant documentation was found)"
	}
	return fmt.Sprintf(`You are an onboarding assistant for a software team.
Answer the question using only the numbered context below.
Do not use outside knowledge and do not invent details.
If the context does not contain the answer, say that the indexed documentation does not cover it.
Cite the context entries you used by their [number].

Question:
%s

Context:
%s
`, question, contextBlock)
}
