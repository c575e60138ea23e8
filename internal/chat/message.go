package chat

import "fmt"

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one turn of a conversation. Order matters: it shapes the
// rendered prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return ErrInvalidInput("messages must not be empty")
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return ErrInvalidInput(fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role))
		}
	}
	return nil
}
