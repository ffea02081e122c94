// Package prompt builds the completion prompts of the answer pipeline.
package prompt

import (
	"fmt"
	"strings"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
)

const (
	// MaxReformulationTurns is how many leading turns feed query reformulation.
	MaxReformulationTurns = 5
	// MaxGroundingTurns is how many trailing turns feed the grounded answer.
	MaxGroundingTurns = 5
	// GapMarker separates non-contiguous passages of one resource.
	GapMarker = "[...]"
)

// Delimiters are reserved; untrusted text is rewritten so it cannot forge them.
var escaper = strings.NewReplacer(
	"<<", "‹‹",
	">>", "››",
	GapMarker, "[…]",
)

func escape(s string) string {
	return escaper.Replace(s)
}

// BuildReformulationPrompt asks the model for a standalone retrieval query
// for question, given the start of the conversation.
func BuildReformulationPrompt(question string, conversation []domain.ConversationEntry) string {
	var sb strings.Builder

	sb.WriteString("<<CONVERSATION>>\n")
	writeConversation(&sb, domain.Leading(conversation, MaxReformulationTurns))
	sb.WriteString("<<END_CONVERSATION>>\n\n")

	writeQuestion(&sb, question)

	sb.WriteString(`Given the conversation and the follow-up question above, write the best standalone query to search a document database for the information needed to answer the question.
Respond only with a single JSON object of the form {"search_query": "<query>"}.
If the question can be used as the search query as it is, respond with {"search_query": null}.`)

	return sb.String()
}

// BuildGroundedAnswerPrompt builds the final answer prompt. language is the
// resolved language name, or "" to answer in the question's own language.
func BuildGroundedAnswerPrompt(question string, passages []domain.ResourcePassages, conversation []domain.ConversationEntry, language string) string {
	var sb strings.Builder

	sb.WriteString("<<PREVIOUS_CONVERSATION>>\n")
	writeConversation(&sb, domain.Trailing(conversation, MaxGroundingTurns))
	sb.WriteString("<<END_PREVIOUS_CONVERSATION>>\n\n")

	if len(passages) == 0 {
		sb.WriteString("<<SOURCES>>\nNo relevant sources were found.\n<<END_SOURCES>>\n\n")
	}
	for i, rp := range passages {
		fmt.Fprintf(&sb, "<<SOURCE %d: %s>>\n", i+1, escape(rp.ResourceName))
		for j, p := range rp.Passages {
			if j > 0 {
				sb.WriteString("\n" + GapMarker + "\n")
			}
			sb.WriteString(escape(p.Text))
		}
		fmt.Fprintf(&sb, "\n<<END_SOURCE %d>>\n\n", i+1)
	}

	writeQuestion(&sb, question)

	sb.WriteString("Instructions:\n")
	sb.WriteString("1. Detect the language the question is written in.\n")
	sb.WriteString("2. Answer the question using only the information in the sources and the previous conversation above. " +
		"Passages separated by " + GapMarker + " are not contiguous in the original document. Do not mention that you were given sources.\n")
	if language != "" {
		fmt.Fprintf(&sb, "3. Write your answer in %s.\n", language)
	} else {
		sb.WriteString("3. Write your answer in the same language the question is written in.\n")
	}
	sb.WriteString("4. If the sources do not contain enough information to answer, say clearly that you are not sure instead of making up an answer.\n")
	sb.WriteString("5. You may use rich text formatting (Markdown headings, lists, emphasis and tables) in your answer.\n")

	return sb.String()
}

func writeConversation(sb *strings.Builder, entries []domain.ConversationEntry) {
	for _, e := range entries {
		fmt.Fprintf(sb, "%s: %s\n", e.Sender, escape(e.Content))
	}
}

func writeQuestion(sb *strings.Builder, question string) {
	sb.WriteString("<<QUESTION>>\n")
	sb.WriteString(escape(question))
	sb.WriteString("\n<<END_QUESTION>>\n\n")
}
