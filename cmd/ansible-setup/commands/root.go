// Package commands defines the ansible-setup command tree and flag bindings.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ansible-bootstrap/internal/config"
	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/service"
	"ansible-bootstrap/pkg/utils"
)

var ErrSetupFailed = errors.New("ansible setup failed")

const (
	verifyPassedBanner = "\n✅ Ansible installation and configuration is successful."
	verifyFailedBanner = "\n❌ There are issues with Ansible installation or configuration. Please check the logs."
)

// app holds the operations behind the commands so tests can replace them.
type app struct {
	cfg    *config.Config
	setup  func(ctx context.Context, cluster model.Cluster, password string) (bool, error)
	verify func(ctx context.Context) (bool, error)
}

func newApp(cfg *config.Config) *app {
	a := &app{cfg: cfg}
	a.setup = a.runSetup
	a.verify = a.runVerification
	return a
}

// Root returns the ansible-setup command. Without a subcommand it runs the
// full setup and, when setup succeeds, the verification checks.
func Root(cfg *config.Config) *cobra.Command {
	return newRoot(newApp(cfg))
}

func newRoot(a *app) *cobra.Command {
	var (
		master   string
		workers  []string
		user     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "ansible-setup --master <ip> --workers <ip> [<ip>...]",
		Short: "Setup Ansible on multiple nodes",
		// worker addresses may also follow the flags as plain arguments
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers = append(workers, args...)
			if err := utils.ValidateHosts(master, workers); err != nil {
				return err
			}

			cluster := model.Cluster{Master: master, Workers: workers, User: user}
			ok, err := a.setup(cmd.Context(), cluster, password)
			if err != nil {
				return err
			}
			if !ok {
				return ErrSetupFailed
			}

			passed, err := a.verify(cmd.Context())
			if err != nil {
				return err
			}
			printBanner(cmd.OutOrStdout(), passed)
			return nil
		},
	}

	cmd.Flags().StringVar(&master, "master", "", "Master node IP address")
	cmd.Flags().StringSliceVar(&workers, "workers", nil, "Worker node IP addresses")
	cmd.Flags().StringVar(&user, "user", a.cfg.SSH.DefaultUser, "SSH user")
	cmd.Flags().StringVar(&password, "password", "", "SSH password (if not using key-based auth)")
	_ = cmd.MarkFlagRequired("master")
	_ = cmd.MarkFlagRequired("workers")

	cmd.AddCommand(newVerify(a))
	cmd.AddCommand(Version())

	return cmd
}

func (a *app) runSetup(ctx context.Context, cluster model.Cluster, password string) (bool, error) {
	log, err := logger.NewLogger(logger.Options{File: a.cfg.Files.SetupLog, Level: a.cfg.Logging.Level})
	if err != nil {
		return false, err
	}
	defer log.Close()

	return service.BuildFleet(a.cfg, cluster, password, log).SetupAnsible(ctx), nil
}

func (a *app) runVerification(ctx context.Context) (bool, error) {
	log, err := logger.NewLogger(logger.Options{File: a.cfg.Files.VerifyLog, Level: a.cfg.Logging.Level})
	if err != nil {
		return false, err
	}
	defer log.Close()

	return service.BuildVerifier(a.cfg, log).RunVerification(ctx), nil
}

func printBanner(w io.Writer, passed bool) {
	if passed {
		_, _ = fmt.Fprintln(w, verifyPassedBanner)
		return
	}
	_, _ = fmt.Fprintln(w, verifyFailedBanner)
}
