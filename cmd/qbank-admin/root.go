package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/logger"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "qbank-admin",
		Short:        "Operational tasks for the question bank",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.cfg = config.Load()
			a.log = logger.Component(logger.Setup(a.cfg.LogLevel, a.cfg.LogFormat), "qbank_admin")
		},
	}

	root.AddCommand(
		newSeedQuestionsCmd(a),
		newIssueCodeCmd(a),
		newIssueTokenCmd(a),
	)
	return root
}

func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := database.NewPostgresPool(ctx, a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	return pool, nil
}
