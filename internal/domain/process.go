package domain

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// ProcessResult is the captured state of one finished external process.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

type OutcomeKind string

const (
	OutcomeJSON    OutcomeKind = "json"
	OutcomeText    OutcomeKind = "text"
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the response contract shared by every script-backed route.
// Exactly one of JSON, Output or Error/Details is meaningful, depending on Kind.
type Outcome struct {
	Kind    OutcomeKind
	JSON    json.RawMessage
	Output  string
	Error   string
	Details string
}

// ParseOutput turns the stdout of a successful run into a JSON outcome when
// it holds a single JSON value, and into a trimmed text outcome otherwise.
func ParseOutput(stdout string) Outcome {
	raw := bytes.TrimSpace([]byte(stdout))
	if len(raw) > 0 && json.Valid(raw) {
		return Outcome{Kind: OutcomeJSON, JSON: json.RawMessage(raw)}
	}
	return Outcome{Kind: OutcomeText, Output: strings.TrimSpace(stdout)}
}

func Failure(label, details string) Outcome {
	return Outcome{Kind: OutcomeFailure, Error: label, Details: details}
}

func (o Outcome) StatusCode() int {
	if o.Kind == OutcomeFailure {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

type textBody struct {
	Output string `json:"output"`
}

type failureBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Body renders the outcome as the JSON response body.
func (o Outcome) Body() ([]byte, error) {
	switch o.Kind {
	case OutcomeJSON:
		return []byte(o.JSON), nil
	case OutcomeText:
		return json.Marshal(textBody{Output: o.Output})
	default:
		return json.Marshal(failureBody{Error: o.Error, Details: o.Details})
	}
}
