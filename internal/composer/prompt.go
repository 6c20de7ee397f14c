// Package composer builds the system prompt for the generation call.
package composer

import (
	"fmt"
	"strings"
)

// basePrompt is the fixed instruction every generation call starts from.
const basePrompt = "You are a helpful AI assistant in a chat room. " +
	"Be conversational, helpful, and personalized in your responses. " +
	"Keep responses concise but informative. " +
	"Use the provided memory context to maintain continuity in the conversation."

// Compose returns the system prompt for one generation call. When retrieved
// snippets are present they are appended under a history header, newline
// joined in the order received. No truncation or deduplication happens here:
// ordering and length are exactly what the memory store returned.
//
// Compose is a pure function; calling it twice with the same inputs yields
// the same output.
func Compose(username string, retrieved []string) string {
	if len(retrieved) == 0 {
		return basePrompt
	}

	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString(fmt.Sprintf("\n\nRelevant conversation history with %s:\n", username))
	sb.WriteString(strings.Join(retrieved, "\n"))
	return sb.String()
}
