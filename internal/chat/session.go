// Package chat holds the front-end conversation state and the transitions
// driven by the initialization, send and reset flows.
package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"llm-tutor/internal/domain"
)

// DefaultGreeting seeds the conversation after initialization and reset.
const DefaultGreeting = "Herzlich willkommen beim Assistenten für Bachelorarbeiten\n" +
	"Um einen reibungslosen Ablauf zu gewährleisten sag mir zuerst, WAS ich tun soll (Aktion), " +
	"dann WOMIT (Text), getrennt durch einen Doppelpunkt \n" +
	"Beispiel: Erstelle mir eine Gliederung zu: ..."

var errEmptyReply = errors.New("chat: reply is empty")

// Backend is the network side of the front-end.
type Backend interface {
	Initialize(ctx context.Context) error
	Chat(ctx context.Context, msg domain.Message) (string, error)
	Reset(ctx context.Context) error
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Messages     []domain.Message
	Loading      bool
	Initializing bool
	Error        string
	// Revision increases on every mutation.
	Revision uint64
}

// Session is safe for concurrent use; the UI applies network results from
// other goroutines.
type Session struct {
	mu           sync.Mutex
	greeting     string
	messages     []domain.Message
	loading      bool
	initializing bool
	errMsg       string
	revision     uint64
	logger       *slog.Logger
}

type Option func(*Session)

func WithGreeting(greeting string) Option {
	return func(s *Session) {
		if strings.TrimSpace(greeting) != "" {
			s.greeting = greeting
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession starts in the initializing state with no messages.
func NewSession(opts ...Option) *Session {
	s := &Session{
		greeting:     DefaultGreeting,
		initializing: true,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]domain.Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		Messages:     msgs,
		Loading:      s.loading,
		Initializing: s.initializing,
		Error:        s.errMsg,
		Revision:     s.revision,
	}
}

// CompleteInitialize applies the result of the initialization request. On
// failure the session stays initializing and records the error.
func (s *Session) CompleteInitialize(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = errorText(err)
		s.revision++
		return
	}
	s.messages = []domain.Message{s.greetingMessage()}
	s.initializing = false
	s.errMsg = ""
	s.revision++
}

// Initialize performs the initialization request once. There is no retry.
func (s *Session) Initialize(ctx context.Context, b Backend) error {
	err := b.Initialize(ctx)
	if err != nil {
		s.logger.Error("initialization failed", "err", err)
	}
	s.CompleteInitialize(err)
	return err
}

// BeginSend appends msg as a user message and marks the session loading.
// A message without content is ignored and reported as false.
func (s *Session) BeginSend(msg domain.Message) bool {
	if strings.TrimSpace(msg.Content) == "" {
		return false
	}
	msg.Role = domain.RoleUser

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.loading = true
	s.errMsg = ""
	s.revision++
	return true
}

// CompleteSend clears the loading flag and, on success, appends exactly one
// assistant message. It returns the error that was recorded, if any.
func (s *Session) CompleteSend(reply string, err error) error {
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errEmptyReply
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = errorText(err)
	} else {
		s.messages = append(s.messages, domain.Message{Role: domain.RoleAssistant, Content: reply})
	}
	s.revision++
	return err
}

// Send runs the whole send flow: optimistic append, one request, and the
// reply or error. It returns the request error, if any.
func (s *Session) Send(ctx context.Context, b Backend, msg domain.Message) error {
	if !s.BeginSend(msg) {
		return nil
	}
	reply, err := b.Chat(ctx, msg)
	if err != nil {
		s.logger.Error("chat request failed", "err", err)
	}
	return s.CompleteSend(reply, err)
}

// ResetLocal replaces the conversation with a fresh greeting.
func (s *Session) ResetLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []domain.Message{s.greetingMessage()}
	s.loading = false
	s.errMsg = ""
	s.revision++
}

// Reset resets the local conversation and then asks the backend to reset its
// state. A backend failure is only logged; the local reset always stands.
func (s *Session) Reset(ctx context.Context, b Backend) {
	s.ResetLocal()
	if err := b.Reset(ctx); err != nil {
		s.logger.Error("error resetting input state", "err", err)
	}
}

func (s *Session) greetingMessage() domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: s.greeting}
}

func errorText(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "unknown error"
}
