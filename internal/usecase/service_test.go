package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"llm-tutor/internal/domain"
	"llm-tutor/internal/runner"
)

type runCall struct {
	name string
	args []string
}

type runResponse struct {
	res domain.ProcessResult
	err error
}

type fakeRunner struct {
	responses map[string]runResponse
	calls     []runCall
	deadline  bool
}

// Run answers by script path, which is always the first argument.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (domain.ProcessResult, error) {
	f.calls = append(f.calls, runCall{name: name, args: args})
	_, f.deadline = ctx.Deadline()
	r, ok := f.responses[args[0]]
	if !ok {
		return domain.ProcessResult{}, errors.New("unexpected script")
	}
	return r.res, r.err
}

type fakeResetter struct {
	reply json.RawMessage
	err   error
	calls int
}

func (f *fakeResetter) Reset(_ context.Context) (json.RawMessage, error) {
	f.calls++
	return f.reply, f.err
}

type fakeRecorder struct {
	records []domain.RunRecord
	err     error
}

func (f *fakeRecorder) RecordRun(_ context.Context, rec domain.RunRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

func ok(stdout string) runResponse {
	return runResponse{res: domain.ProcessResult{Stdout: stdout}}
}

func exit(code int, stderr string) runResponse {
	return runResponse{res: domain.ProcessResult{ExitCode: code, Stderr: stderr}}
}

func defaultConfig() Config {
	return Config{
		Interpreter: "python3",
		InitScript:  "./init_data.py",
		ChatScript:  "./main.py",
	}
}

func newTestService(t *testing.T, r Runner, cfg Config, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(r, &fakeResetter{}, cfg, opts...)
	require.NoError(t, err)
	return svc
}

func TestNewService_ValidatesDependencies(t *testing.T) {
	_, err := NewService(nil, &fakeResetter{}, defaultConfig())
	require.Error(t, err)

	_, err = NewService(&fakeRunner{}, nil, defaultConfig())
	require.Error(t, err)

	cfg := defaultConfig()
	cfg.InitScript = " "
	_, err = NewService(&fakeRunner{}, &fakeResetter{}, cfg)
	require.Error(t, err)

	cfg = defaultConfig()
	cfg.ChatScript = ""
	_, err = NewService(&fakeRunner{}, &fakeResetter{}, cfg)
	require.Error(t, err)
}

func TestNewService_DefaultsInterpreter(t *testing.T) {
	r := &fakeRunner{responses: map[string]runResponse{"./init_data.py": ok("done")}}
	cfg := defaultConfig()
	cfg.Interpreter = ""
	svc := newTestService(t, r, cfg)

	svc.Initialize(context.Background())
	require.Equal(t, "python3", r.calls[0].name)
}

func TestInitialize_JSONOutput(t *testing.T) {
	r := &fakeRunner{responses: map[string]runResponse{"./init_data.py": ok(`{"status":"loaded"}`)}}
	svc := newTestService(t, r, defaultConfig())

	out := svc.Initialize(context.Background())
	require.Equal(t, domain.OutcomeJSON, out.Kind)
	require.JSONEq(t, `{"status":"loaded"}`, string(out.JSON))
	require.Equal(t, []runCall{{name: "python3", args: []string{"./init_data.py"}}}, r.calls)
}

func TestChat_Outcomes(t *testing.T) {
	cases := []struct {
		name    string
		resp    runResponse
		kind    domain.OutcomeKind
		status  int
		body    string
		details string
	}{
		{
			name:   "json stdout",
			resp:   ok(`{"message":{"content":"hi"}}`),
			kind:   domain.OutcomeJSON,
			status: http.StatusOK,
			body:   `{"message":{"content":"hi"}}`,
		},
		{
			name:   "plain text stdout",
			resp:   ok("plain text\n"),
			kind:   domain.OutcomeText,
			status: http.StatusOK,
			body:   `{"output":"plain text"}`,
		},
		{
			name:    "nonzero exit",
			resp:    exit(1, "boom\n"),
			kind:    domain.OutcomeFailure,
			status:  http.StatusInternalServerError,
			body:    `{"error":"main.py failed","details":"boom"}`,
			details: "boom",
		},
		{
			name:    "nonzero exit without stderr",
			resp:    exit(2, "  "),
			kind:    domain.OutcomeFailure,
			status:  http.StatusInternalServerError,
			body:    `{"error":"main.py failed","details":"Unknown error in main.py"}`,
			details: "Unknown error in main.py",
		},
		{
			name: "launch failure",
			resp: runResponse{err: &runner.LaunchError{
				Name: "/bad/python",
				Err:  errors.New(`exec: "/bad/python": no such file or directory`),
			}},
			kind:    domain.OutcomeFailure,
			status:  http.StatusInternalServerError,
			body:    `{"error":"Failed to execute main.py","details":"exec: \"/bad/python\": no such file or directory"}`,
			details: `exec: "/bad/python": no such file or directory`,
		},
		{
			name:    "interrupted run",
			resp:    runResponse{err: errors.New("runner: python3 interrupted: context deadline exceeded")},
			kind:    domain.OutcomeFailure,
			status:  http.StatusInternalServerError,
			body:    `{"error":"main.py failed","details":"runner: python3 interrupted: context deadline exceeded"}`,
			details: "runner: python3 interrupted: context deadline exceeded",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &fakeRunner{responses: map[string]runResponse{"./main.py": tc.resp}}
			svc := newTestService(t, r, defaultConfig())

			out, err := svc.Chat(context.Background(), "Erstelle mir eine Gliederung zu: Delfine")
			require.NoError(t, err)
			require.Equal(t, tc.kind, out.Kind)
			require.Equal(t, tc.status, out.StatusCode())
			require.Equal(t, tc.details, out.Details)

			body, err := out.Body()
			require.NoError(t, err)
			require.JSONEq(t, tc.body, string(body))
		})
	}
}

func TestChat_ForwardsRawText(t *testing.T) {
	r := &fakeRunner{responses: map[string]runResponse{"./main.py": ok(`{}`)}}
	svc := newTestService(t, r, defaultConfig())

	_, err := svc.Chat(context.Background(), "  Zitat: Text  ")
	require.NoError(t, err)
	require.Equal(t, []runCall{{name: "python3", args: []string{"./main.py", "  Zitat: Text  "}}}, r.calls)
}

func TestChat_EmptyMessage(t *testing.T) {
	r := &fakeRunner{}
	svc := newTestService(t, r, defaultConfig())

	_, err := svc.Chat(context.Background(), " \n")
	var ue *Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, ErrorInvalidInput, ue.Code)
	require.Equal(t, "empty_message", ue.Reason)
	require.Empty(t, r.calls)
}

func TestChat_ChainedInitRunsFirst(t *testing.T) {
	r := &fakeRunner{responses: map[string]runResponse{
		"./init_data.py": ok("initialised"),
		"./main.py":      ok(`{"message":"answer"}`),
	}}
	cfg := defaultConfig()
	cfg.ChainInit = true
	svc := newTestService(t, r, cfg)

	out, err := svc.Chat(context.Background(), "question")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeJSON, out.Kind)
	require.Equal(t, []runCall{
		{name: "python3", args: []string{"./init_data.py"}},
		{name: "python3", args: []string{"./main.py", "question"}},
	}, r.calls)
}

func TestChat_ChainedInitFailureShortCircuits(t *testing.T) {
	r := &fakeRunner{responses: map[string]runResponse{
		"./init_data.py": exit(1, "chroma unavailable"),
		"./main.py":      ok(`{}`),
	}}
	cfg := defaultConfig()
	cfg.ChainInit = true
	svc := newTestService(t, r, cfg)

	out, err := svc.Chat(context.Background(), "question")
	require.NoError(t, err)
	require.Equal(t, domain.Failure("init_data.py failed", "chroma unavailable"), out)
	require.Len(t, r.calls, 1)
}

func TestChat_ChainedInitLaunchFailure(t *testing.T) {
	r := &fakeRunner{responses: map[string]runResponse{
		"./init_data.py": {err: &runner.LaunchError{Name: "nope", Err: errors.New("not found")}},
	}}
	cfg := defaultConfig()
	cfg.ChainInit = true
	svc := newTestService(t, r, cfg)

	out, err := svc.Chat(context.Background(), "question")
	require.NoError(t, err)
	require.Equal(t, domain.Failure("Failed to execute init_data.py", "not found"), out)
	require.Len(t, r.calls, 1)
}

func TestRunScript_AppliesTimeout(t *testing.T) {
	r := &fakeRunner{responses: map[string]runResponse{"./init_data.py": ok("")}}
	svc := newTestService(t, r, defaultConfig())
	svc.Initialize(context.Background())
	require.False(t, r.deadline)

	cfg := defaultConfig()
	cfg.Timeout = time.Minute
	svc = newTestService(t, r, cfg)
	svc.Initialize(context.Background())
	require.True(t, r.deadline)
}

func TestRunScript_RecordsRuns(t *testing.T) {
	restoreUUID := newUUID
	newUUID = func() string { return "run-1" }
	defer func() { newUUID = restoreUUID }()

	rec := &fakeRecorder{}
	r := &fakeRunner{responses: map[string]runResponse{"./main.py": exit(1, "boom")}}
	svc := newTestService(t, r, defaultConfig(), WithRecorder(rec))

	ctx := WithCorrelationID(context.Background(), "corr-1")
	_, err := svc.Chat(ctx, "question")
	require.NoError(t, err)
	require.Len(t, rec.records, 1)
	got := rec.records[0]
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, "main.py", got.Script)
	require.Equal(t, 1, got.ExitCode)
	require.Equal(t, domain.OutcomeFailure, got.Outcome)
	require.Equal(t, "corr-1", got.CorrelationID)
	require.False(t, got.StartedAt.IsZero())
}

func TestRunScript_RecorderErrorDoesNotChangeOutcome(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("dynamodb down")}
	r := &fakeRunner{responses: map[string]runResponse{"./main.py": ok("plain")}}
	svc := newTestService(t, r, defaultConfig(), WithRecorder(rec))

	out, err := svc.Chat(context.Background(), "question")
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeText, out.Kind)
	require.Equal(t, "plain", out.Output)
}

func TestReset(t *testing.T) {
	resetter := &fakeResetter{reply: json.RawMessage(`{"response":"State reset"}`)}
	svc, err := NewService(&fakeRunner{}, resetter, defaultConfig())
	require.NoError(t, err)

	reply, err := svc.Reset(context.Background())
	require.NoError(t, err)
	require.JSONEq(t, `{"response":"State reset"}`, string(reply))
	require.Equal(t, 1, resetter.calls)

	resetter.err = errors.New("connection refused")
	_, err = svc.Reset(context.Background())
	var ue *Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, ErrorUpstream, ue.Code)
	require.Equal(t, "reset_failed", ue.Reason)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{err: NewError(ErrorInvalidInput, "empty_message", nil), status: http.StatusBadRequest, code: ErrorInvalidInput},
		{err: NewError(ErrorNotFound, "unknown_route", nil), status: http.StatusNotFound, code: ErrorNotFound},
		{err: NewError(ErrorUpstream, "reset_failed", nil), status: http.StatusBadGateway, code: ErrorUpstream},
		{err: NewError(ErrorInternal, "x", nil), status: http.StatusInternalServerError, code: ErrorInternal},
		{err: errors.New("boom"), status: http.StatusInternalServerError, code: ErrorInternal},
	}
	for _, tc := range cases {
		status, ue := Classify(tc.err)
		require.Equal(t, tc.status, status)
		require.Equal(t, tc.code, ue.Code)
	}
}
