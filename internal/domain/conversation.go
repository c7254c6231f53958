package domain

import "errors"

var (
	ErrEmptyConversation = errors.New("conversation must contain at least one message")
	ErrLastMessageRole   = errors.New("last message in conversation must come from the user")
	ErrUnknownRole       = errors.New("message role must be user or assistant")
)

// Message is a single entry in a client-owned transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered transcript sent with every chat request.
// The interpreter only reads it; the client owns and appends to it.
type Conversation []Message

// Validate checks the shape every turn relies on: at least one message,
// known roles, and a trailing user message.
func (c Conversation) Validate() error {
	if len(c) == 0 {
		return ErrEmptyConversation
	}
	for _, m := range c {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return ErrUnknownRole
		}
	}
	if c[len(c)-1].Role != RoleUser {
		return ErrLastMessageRole
	}
	return nil
}

// Latest returns the user message being answered.
func (c Conversation) Latest() Message {
	if len(c) == 0 {
		return Message{}
	}
	return c[len(c)-1]
}

// Previous returns the message before the latest one, if any.
func (c Conversation) Previous() (Message, bool) {
	if len(c) < 2 {
		return Message{}, false
	}
	return c[len(c)-2], true
}
