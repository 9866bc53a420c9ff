package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/pkg/runner"
)

const (
	StepGenerateKey   = "Generate SSH key"
	StepDistributeKey = "Distribute SSH key"
	StepConfigure     = "Configure nodes"
	StepWriteConfig   = "Write Ansible configuration"
	StepVerifyAnsible = "Verify Ansible"
)

// ProgressFunc is called once per finished phase. err is nil on success.
type ProgressFunc func(step string, index, total int, err error)

type fleetPhase struct {
	name string
	run  func(ctx context.Context) error
}

type hostResult struct {
	host string
	ok   bool
}

// FleetService drives a full setup run. Phases run in order and the first
// failing phase ends the run.
type FleetService struct {
	cluster     model.Cluster
	credentials *CredentialService
	nodes       *NodeService
	inventory   *InventoryService
	local       runner.LocalExecutor
	logger      logger.Sink
	progress    ProgressFunc
}

func NewFleetService(
	cluster model.Cluster,
	credentials *CredentialService,
	nodes *NodeService,
	inventory *InventoryService,
	local runner.LocalExecutor,
	logger logger.Sink,
) *FleetService {
	return &FleetService{
		cluster:     cluster,
		credentials: credentials,
		nodes:       nodes,
		inventory:   inventory,
		local:       local,
		logger:      logger,
	}
}

func (f *FleetService) OnProgress(fn ProgressFunc) {
	f.progress = fn
}

func (f *FleetService) phases() []fleetPhase {
	return []fleetPhase{
		{StepGenerateKey, f.generateKey},
		{StepDistributeKey, f.distributeKey},
		{StepConfigure, f.configureNodes},
		{StepWriteConfig, f.writeConfig},
		{StepVerifyAnsible, f.verifyAnsible},
	}
}

// SetupAnsible runs every phase and reports whether all of them succeeded.
func (f *FleetService) SetupAnsible(ctx context.Context) bool {
	phases := f.phases()

	for i, phase := range phases {
		f.logger.SetupStep(phase.name, f.cluster.Master)

		err := phase.run(ctx)
		f.report(phase.name, i+1, len(phases), err)
		if err != nil {
			f.logger.SetupError(phase.name, err)
			return false
		}
		f.logger.SetupSuccess(phase.name)
	}

	f.logger.Infof("Ansible setup completed successfully!")
	return true
}

func (f *FleetService) report(step string, index, total int, err error) {
	if f.progress != nil {
		f.progress(step, index, total, err)
	}
}

func (f *FleetService) generateKey(context.Context) error {
	if !f.credentials.EnsureKeyPair() {
		return errors.New("could not create SSH key pair")
	}
	return nil
}

func (f *FleetService) distributeKey(ctx context.Context) error {
	for _, host := range f.cluster.Hosts() {
		if !f.credentials.Distribute(ctx, host.Address) {
			return fmt.Errorf("could not copy SSH key to %s", host.Address)
		}
	}
	return nil
}

// configureNodes runs one worker per host. A failed host does not cancel the
// others; the phase fails once every worker has returned.
func (f *FleetService) configureNodes(ctx context.Context) error {
	hosts := f.cluster.Hosts()
	results := make(chan hostResult, len(hosts))

	var g errgroup.Group
	g.SetLimit(len(hosts))
	for _, host := range hosts {
		address := host.Address
		g.Go(func() error {
			results <- hostResult{host: address, ok: f.setupNode(ctx, address)}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	var failed []string
	for res := range results {
		if !res.ok {
			if len(failed) == 0 {
				f.logger.Errorf("Node setup failed on %s", res.host)
			}
			failed = append(failed, res.host)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("node setup failed on %s", strings.Join(failed, ", "))
	}
	return nil
}

func (f *FleetService) setupNode(ctx context.Context, host string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Errorf("Error setting up node %s: %v", host, r)
			ok = false
		}
	}()
	return f.nodes.SetupNode(ctx, host)
}

func (f *FleetService) writeConfig(context.Context) error {
	if !f.inventory.WriteInventory() {
		return errors.New("could not write inventory")
	}
	if !f.inventory.WriteToolConfig() {
		return errors.New("could not write ansible.cfg")
	}
	return nil
}

func (f *FleetService) verifyAnsible(ctx context.Context) error {
	res := f.local.Run(ctx, "ansible --version", true)
	if !res.OK {
		f.logger.Errorf("Ansible is not properly installed: %s", res.Output)
		return errors.New("ansible is not properly installed")
	}
	f.logger.Infof("%s", strings.TrimSpace(res.Output))
	return nil
}
