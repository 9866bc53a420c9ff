package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/pkg/runner"
)

type verifyCheck struct {
	name string
	run  func(ctx context.Context) bool
}

// VerifyService runs read-only checks against a generated inventory. A failed
// check never stops the ones after it.
type VerifyService struct {
	inventoryPath string
	local         runner.LocalExecutor
	logger        logger.Sink
}

func NewVerifyService(inventoryPath string, local runner.LocalExecutor, logger logger.Sink) *VerifyService {
	return &VerifyService{
		inventoryPath: inventoryPath,
		local:         local,
		logger:        logger,
	}
}

func (s *VerifyService) checks() []verifyCheck {
	return []verifyCheck{
		{"Ansible Installation Verification", s.verifyInstallation},
		{"Inventory Verification", s.verifyInventory},
		{"Connectivity Test", s.testConnectivity},
		{"Sudo Permission Verification", s.verifySudoAccess},
		{"Python Installation Verification", s.verifyPython},
	}
}

func (s *VerifyService) Verify(ctx context.Context) model.VerifyReport {
	report := model.VerifyReport{Passed: true}

	for _, check := range s.checks() {
		s.logger.Infof("Executing: %s", check.name)
		passed := check.run(ctx)
		if passed {
			s.logger.Infof("%s successful", check.name)
		} else {
			s.logger.Errorf("%s failed", check.name)
			report.Passed = false
		}
		report.Checks = append(report.Checks, model.CheckResult{Name: check.name, Passed: passed})
	}
	return report
}

func (s *VerifyService) RunVerification(ctx context.Context) bool {
	return s.Verify(ctx).Passed
}

func (s *VerifyService) verifyInstallation(ctx context.Context) bool {
	versions := []struct {
		command     string
		description string
	}{
		{"ansible --version", "Checking Ansible installation"},
		{"ansible-playbook --version", "Checking Ansible-playbook installation"},
		{"ansible-galaxy --version", "Checking Ansible-galaxy installation"},
	}

	for _, v := range versions {
		s.logger.Infof("=== %s ===", v.description)
		res := s.local.Run(ctx, v.command, true)
		if !res.OK {
			s.logger.Errorf("%s failed: %s", v.description, res.Output)
			return false
		}
		s.logger.Infof("%s", strings.TrimSpace(res.Output))
	}
	return true
}

func (s *VerifyService) verifyInventory(ctx context.Context) bool {
	s.logger.Infof("=== Checking Inventory File ===")

	if _, err := os.Stat(s.inventoryPath); err != nil {
		s.logger.Errorf("Inventory file not found: %s", s.inventoryPath)
		return false
	}

	res := s.local.Run(ctx, fmt.Sprintf("ansible-inventory --list -i %s", s.inventoryArg()), true)
	if !res.OK {
		s.logger.Errorf("Inventory file verification failed: %s", res.Output)
		return false
	}
	s.logger.Infof("Inventory file verification successful")
	return true
}

func (s *VerifyService) testConnectivity(ctx context.Context) bool {
	s.logger.Infof("=== Testing Host Connectivity ===")

	res := s.local.Run(ctx, fmt.Sprintf("ansible all -i %s -m ping", s.inventoryArg()), true)
	if !res.OK {
		s.logger.Errorf("Host connectivity test failed: %s", res.Output)
		return false
	}
	s.logger.Infof("All host connectivity tests successful")
	return true
}

func (s *VerifyService) verifySudoAccess(ctx context.Context) bool {
	s.logger.Infof("=== Verifying Sudo Permissions ===")

	res := s.local.Run(ctx, fmt.Sprintf(`ansible all -i %s -m shell -a "sudo -n true" -b`, s.inventoryArg()), true)
	if !res.OK {
		s.logger.Errorf("Sudo permission verification failed: %s", res.Output)
		return false
	}
	s.logger.Infof("Sudo permission verification successful")
	return true
}

func (s *VerifyService) verifyPython(ctx context.Context) bool {
	s.logger.Infof("=== Checking Python Installation ===")

	res := s.local.Run(ctx, fmt.Sprintf("ansible all -i %s -m shell -a 'python3 --version'", s.inventoryArg()), true)
	if !res.OK {
		s.logger.Errorf("Python installation check failed: %s", res.Output)
		return false
	}
	s.logger.Infof("%s", strings.TrimSpace(res.Output))
	return true
}

func (s *VerifyService) inventoryArg() string {
	return shellescape.Quote(s.inventoryPath)
}
