package service

import (
	"ansible-bootstrap/internal/config"
	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/pkg/runner"
	"ansible-bootstrap/internal/pkg/ssh"
)

// BuildFleet wires a FleetService for one setup run against real SSH
// connections and the local shell.
func BuildFleet(cfg *config.Config, cluster model.Cluster, password string, log logger.Sink) *FleetService {
	credential := model.Credential{
		PrivateKeyPath: cfg.SSH.KeyPath,
		Password:       password,
	}

	dialer := ssh.NewDialer(ssh.SSHConfig{
		Port:           cfg.SSH.Port,
		Username:       cluster.User,
		Password:       password,
		PrivateKeyPath: credential.PrivateKeyPath,
	})

	credentials := NewCredentialService(credential, cfg.SSH.KeyBits, ssh.NewPasswordKeyCopier(dialer), log)
	nodes := NewNodeService(dialer, log)
	inventory := NewInventoryService(cluster, credential, cfg.Files.Inventory, cfg.Files.AnsibleCfg, log)

	return NewFleetService(cluster, credentials, nodes, inventory, runner.NewLocal(), log)
}

func BuildVerifier(cfg *config.Config, log logger.Sink) *VerifyService {
	return NewVerifyService(cfg.Files.Inventory, runner.NewLocal(), log)
}
