package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn as exchanged between the front-end and the
// API routes.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
