// Package main is the entry point for the ansible-setup CLI.
//
// ansible-setup prepares a master node and its workers for Ansible: it
// provisions an SSH key, installs Ansible on every host, writes the inventory
// and ansible.cfg, and verifies the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ansible-bootstrap/cmd/ansible-setup/commands"
	"ansible-bootstrap/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
