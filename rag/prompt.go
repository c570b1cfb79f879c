package rag

import (
	"strings"

	"github.com/hubenschmidt/go-dossier/core"
)

// instructionTemplate frames the assistant as a general-purpose conversational
// assistant that leans on retrieved documents when they are relevant, and falls
// back to normal conversation when they are not.
const instructionTemplate = `You are a conversational AI assistant. You can chat naturally about any topic while also providing specific information from uploaded documents when relevant.

When relevant document context is available, use it to provide detailed, accurate answers. When no relevant documents are found, engage in natural conversation and provide helpful general information.

Context from documents:
`

// AssemblePrompt prepends a synthesized system message carrying the retrieved
// texts to the conversation. With no retrieved texts the system message still
// carries the instruction template with an empty context section; the prior
// conversation follows unmodified.
func AssemblePrompt(conversation []core.Message, retrieved []string) []core.Message {
	system := core.NewSystemMessage(instructionTemplate + strings.Join(retrieved, "\n\n"))

	msgs := make([]core.Message, 0, len(conversation)+1)
	msgs = append(msgs, system)
	msgs = append(msgs, conversation...)
	return msgs
}
