package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-qbank/internal/service"
)

func newIssueTokenCmd(a *app) *cobra.Command {
	var role, user string

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := service.Role(role)
			if r != service.RoleAuthor && r != service.RoleLearner {
				return fmt.Errorf("role must be %q or %q", service.RoleAuthor, service.RoleLearner)
			}
			token, err := service.NewTokenService(a.cfg).Issue(r, user)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(service.RoleLearner), "author or learner")
	cmd.Flags().StringVar(&user, "user", "", "user id placed in the token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
