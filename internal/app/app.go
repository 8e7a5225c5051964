// Package app builds the script-backed tutor service from configuration. The
// Lambda and the standalone server share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"llm-tutor/internal/config"
	"llm-tutor/internal/integrations/paramstore"
	"llm-tutor/internal/integrations/router"
	"llm-tutor/internal/repository"
	"llm-tutor/internal/runner"
	"llm-tutor/internal/usecase"
)

// NewService loads AWS clients only when a parameter prefix or run table is
// configured, applies parameter overrides to cfg and returns the service.
func NewService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*usecase.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts []usecase.Option
	opts = append(opts, usecase.WithLogger(logger))

	if cfg.ParamPrefix != "" || cfg.RunTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load aws config: %w", err)
		}

		if cfg.ParamPrefix != "" {
			params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				return nil, fmt.Errorf("app: create parameter client: %w", err)
			}
			if err := cfg.ApplyParams(ctx, params, cfg.ParamPrefix); err != nil {
				return nil, err
			}
		}

		if cfg.RunTable != "" {
			runs, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.RunTable)
			if err != nil {
				return nil, fmt.Errorf("app: create run repository: %w", err)
			}
			opts = append(opts, usecase.WithRecorder(runs))
		}
	}

	resetter, err := router.NewClient(cfg.ResetURL)
	if err != nil {
		return nil, fmt.Errorf("app: create router client: %w", err)
	}

	svc, err := usecase.NewService(&runner.ExecRunner{Dir: cfg.ScriptDir}, resetter, usecase.Config{
		Interpreter: cfg.PythonExecutable,
		InitScript:  cfg.InitScript,
		ChatScript:  cfg.ChatScript,
		ChainInit:   cfg.ChainInit,
		Timeout:     cfg.ScriptTimeout,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: create service: %w", err)
	}

	logger.Info("tutor service ready",
		"interpreter", cfg.PythonExecutable,
		"init_script", cfg.InitScript,
		"chat_script", cfg.ChatScript,
		"chain_init", cfg.ChainInit,
		"run_table", cfg.RunTable,
	)
	return svc, nil
}
