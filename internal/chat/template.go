package chat

import "strings"

// Llama 3 instruct chat template markers.
const (
	headerStart = "<|start_header_id|>"
	headerEnd   = "<|end_header_id|>"
	EndOfTurn   = "<|eot_id|>"
)

// RenderPrompt renders messages with the Llama 3 chat template and appends the
// assistant header so the model continues as the assistant. The begin-of-text
// token is left to the tokenizer.
func RenderPrompt(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		writeHeader(&b, m.Role)
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString(EndOfTurn)
	}
	writeHeader(&b, RoleAssistant)
	return b.String()
}

func writeHeader(b *strings.Builder, role Role) {
	b.WriteString(headerStart)
	b.WriteString(string(role))
	b.WriteString(headerEnd)
	b.WriteString("\n\n")
}
