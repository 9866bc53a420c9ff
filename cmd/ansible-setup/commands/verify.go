package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

var ErrVerifyFailed = errors.New("ansible verification failed")

// newVerify returns the command that runs only the verification checks
// against an existing inventory.
func newVerify(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify an existing Ansible installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			passed, err := a.verify(cmd.Context())
			if err != nil {
				return err
			}
			printBanner(cmd.OutOrStdout(), passed)
			if !passed {
				return ErrVerifyFailed
			}
			return nil
		},
	}
}
