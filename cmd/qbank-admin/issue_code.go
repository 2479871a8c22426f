package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-qbank/internal/repository"
	"github.com/stemsi/exstem-qbank/internal/service"
	"golang.org/x/term"
)

func newIssueCodeCmd(a *app) *cobra.Command {
	var (
		paper      string
		author     string
		minutes    int
		validHours int
		withPass   bool
	)

	cmd := &cobra.Command{
		Use:   "issue-code",
		Short: "Issue an exam access code for a paper",
		RunE: func(cmd *cobra.Command, args []string) error {
			paperID, err := uuid.Parse(paper)
			if err != nil {
				return fmt.Errorf("invalid paper id: %w", err)
			}

			var passphrase string
			if withPass {
				fmt.Print("Enter Passphrase: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("read passphrase: %w", err)
				}
				passphrase = string(raw)
				if passphrase == "" {
					return fmt.Errorf("passphrase must not be empty")
				}
			}

			ctx := cmd.Context()
			pool, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			clock := service.SystemClock{}
			var validUntil *time.Time
			if validHours > 0 {
				t := clock.Now().Add(time.Duration(validHours) * time.Hour)
				validUntil = &t
			}

			access := service.NewAccessService(
				repository.NewAccessCodeRepository(pool),
				repository.NewPaperRepository(pool),
				service.AccessPolicy{
					DefaultTimeLimit: a.cfg.DefaultTimeLimit,
					MaxTimeLimit:     a.cfg.MaxTimeLimit,
					BcryptCost:       a.cfg.BcryptCost,
				},
				clock,
				a.log,
			)

			code, err := access.Issue(ctx, paperID, author, time.Duration(minutes)*time.Minute, passphrase, validUntil)
			if err != nil {
				return err
			}

			fmt.Println(code.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&paper, "paper", "", "paper id")
	cmd.Flags().StringVar(&author, "author", "qbank-admin", "author recorded on the code")
	cmd.Flags().IntVar(&minutes, "minutes", 60, "session time limit in minutes")
	cmd.Flags().IntVar(&validHours, "valid-hours", 0, "hours the code stays valid (0 = no expiry)")
	cmd.Flags().BoolVar(&withPass, "passphrase", false, "prompt for a passphrase")
	_ = cmd.MarkFlagRequired("paper")
	return cmd
}
