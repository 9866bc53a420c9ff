package service

import (
	"context"

	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/pkg/runner"
)

// Connector opens a command session on one host.
type Connector interface {
	Connect(ctx context.Context, host string) (runner.RemoteSession, error)
}

// ProvisioningCommands run on every host, in order.
var ProvisioningCommands = []string{
	"sudo apt-get update",
	"sudo apt-get install -y python3-pip sshpass",
	"pip3 install --user ansible",
	`echo "export PATH=$PATH:$HOME/.local/bin" >> ~/.bashrc`,
	"source ~/.bashrc",
}

type nodeState string

const (
	stateConnecting nodeState = "connecting"
	stateConnected  nodeState = "connected"
	stateExecuting  nodeState = "executing"
	stateDone       nodeState = "done"
	stateFailed     nodeState = "failed"
)

type NodeService struct {
	connector Connector
	commands  []string
	logger    logger.Sink
}

func NewNodeService(connector Connector, logger logger.Sink) *NodeService {
	return &NodeService{
		connector: connector,
		commands:  ProvisioningCommands,
		logger:    logger,
	}
}

// SetupNode connects to host and runs the provisioning commands in order.
// The first failing command aborts the rest. The connection is always closed.
func (s *NodeService) SetupNode(ctx context.Context, host string) bool {
	s.logger.Infof("Setting up node: %s", host)

	s.transition(host, stateConnecting)
	session, err := s.connector.Connect(ctx, host)
	if err != nil {
		s.logger.Errorf("Could not connect to %s: %v", host, err)
		s.transition(host, stateFailed)
		return false
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warnf("Failed to close connection to %s: %v", host, err)
		}
	}()
	s.transition(host, stateConnected)

	for i, cmd := range s.commands {
		s.logger.Infof("[%s] %s %d/%d", host, stateExecuting, i+1, len(s.commands))

		res := session.Run(ctx, cmd)
		if !res.OK {
			s.logger.Errorf("Failed to execute '%s' on %s: %s", cmd, host, res.Output)
			s.transition(host, stateFailed)
			return false
		}
		s.logger.Infof("Successfully executed '%s' on %s", cmd, host)
	}

	s.transition(host, stateDone)
	return true
}

func (s *NodeService) transition(host string, state nodeState) {
	s.logger.Infof("[%s] %s", host, state)
}
