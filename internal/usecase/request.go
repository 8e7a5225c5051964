package usecase

import "llm-tutor/internal/domain"

// ChatRequest is the body of POST /api/chat. It accepts the front-end shape
// {"message": {...}} and the bare {"text": "..."} used by scripts and curl.
type ChatRequest struct {
	Message *domain.Message `json:"message"`
	Text    string          `json:"text"`
}

// Content returns the message content, falling back to Text.
func (r ChatRequest) Content() string {
	if r.Message != nil && r.Message.Content != "" {
		return r.Message.Content
	}
	return r.Text
}
