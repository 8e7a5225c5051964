package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"llm-tutor/internal/domain"
)

const defaultInterpreter = "python3"

type Runner interface {
	Run(ctx context.Context, name string, args ...string) (domain.ProcessResult, error)
}

type Resetter interface {
	Reset(ctx context.Context) (json.RawMessage, error)
}

type RunRecorder interface {
	RecordRun(ctx context.Context, rec domain.RunRecord) error
}

type launchFailer interface {
	LaunchFailed() bool
}

// Config selects the interpreter and the scripts behind each route.
type Config struct {
	Interpreter string
	InitScript  string
	ChatScript  string
	// ChainInit runs InitScript before every chat message; a failing init
	// run is reported instead of running ChatScript.
	ChainInit bool
	// Timeout bounds a single script run. Zero means no limit.
	Timeout time.Duration
}

type Service struct {
	runner   Runner
	resetter Resetter
	recorder RunRecorder
	logger   *slog.Logger
	cfg      Config
}

type Option func(*Service)

func WithRecorder(r RunRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(r Runner, resetter Resetter, cfg Config, opts ...Option) (*Service, error) {
	if r == nil {
		return nil, errors.New("usecase: runner must not be nil")
	}
	if resetter == nil {
		return nil, errors.New("usecase: resetter must not be nil")
	}
	cfg.Interpreter = strings.TrimSpace(cfg.Interpreter)
	if cfg.Interpreter == "" {
		cfg.Interpreter = defaultInterpreter
	}
	if strings.TrimSpace(cfg.InitScript) == "" {
		return nil, errors.New("usecase: init script must not be empty")
	}
	if strings.TrimSpace(cfg.ChatScript) == "" {
		return nil, errors.New("usecase: chat script must not be empty")
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	s := &Service{
		runner:   r,
		resetter: resetter,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize runs the initialization script.
func (s *Service) Initialize(ctx context.Context) domain.Outcome {
	return s.runScript(ctx, s.cfg.InitScript)
}

// Chat forwards text to the chat script as its single argument.
func (s *Service) Chat(ctx context.Context, text string) (domain.Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Outcome{}, NewError(ErrorInvalidInput, "empty_message", nil)
	}
	if s.cfg.ChainInit {
		if init := s.runScript(ctx, s.cfg.InitScript); init.Kind == domain.OutcomeFailure {
			return init, nil
		}
	}
	return s.runScript(ctx, s.cfg.ChatScript, text), nil
}

// Reset asks the router to drop its conversation state and returns its reply.
func (s *Service) Reset(ctx context.Context) (json.RawMessage, error) {
	reply, err := s.resetter.Reset(ctx)
	if err != nil {
		s.logger.Error("router reset failed", "err", err, "correlation_id", CorrelationID(ctx))
		return nil, NewError(ErrorUpstream, "reset_failed", err)
	}
	return reply, nil
}

func (s *Service) runScript(ctx context.Context, script string, args ...string) domain.Outcome {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	started := now()
	res, err := s.runner.Run(ctx, s.cfg.Interpreter, append([]string{script}, args...)...)
	outcome := interpret(script, res, err)
	elapsed := now().Sub(started)

	s.logger.Info("script finished",
		"script", script,
		"exit_code", res.ExitCode,
		"outcome", outcome.Kind,
		"duration_ms", elapsed.Milliseconds(),
		"correlation_id", CorrelationID(ctx),
	)
	s.record(ctx, domain.RunRecord{
		RunID:         newUUID(),
		Script:        filepath.Base(script),
		ExitCode:      res.ExitCode,
		Outcome:       outcome.Kind,
		Duration:      elapsed,
		StartedAt:     started,
		CorrelationID: CorrelationID(ctx),
	})
	return outcome
}

func (s *Service) record(ctx context.Context, rec domain.RunRecord) {
	if s.recorder == nil {
		return
	}
	// The audit write must not be cut short by a finished request.
	if err := s.recorder.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to record run", "err", err, "run_id", rec.RunID)
	}
}

func interpret(script string, res domain.ProcessResult, err error) domain.Outcome {
	name := filepath.Base(script)
	if err != nil {
		var lf launchFailer
		if errors.As(err, &lf) && lf.LaunchFailed() {
			return domain.Failure("Failed to execute "+name, err.Error())
		}
		return domain.Failure(name+" failed", err.Error())
	}
	if res.ExitCode != 0 {
		details := strings.TrimSpace(res.Stderr)
		if details == "" {
			details = "Unknown error in " + name
		}
		return domain.Failure(name+" failed", details)
	}
	return domain.ParseOutput(res.Stdout)
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
