package service

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
)

const clusterGroup = "k8s_cluster"

// Inventory is the Ansible YAML inventory document.
type Inventory struct {
	All InventoryGroup `yaml:"all"`
}

type InventoryGroup struct {
	Hosts    map[string]HostVars       `yaml:"hosts,omitempty"`
	Children map[string]InventoryGroup `yaml:"children,omitempty"`
	Vars     *InventoryVars            `yaml:"vars,omitempty"`
}

type HostVars struct {
	AnsibleHost string `yaml:"ansible_host"`
}

type InventoryVars struct {
	AnsibleUser              string `yaml:"ansible_user"`
	AnsibleSSHPrivateKeyFile string `yaml:"ansible_ssh_private_key_file"`
	AnsibleBecome            string `yaml:"ansible_become"`
}

// InventoryService writes inventory.yml and ansible.cfg. Both files are
// overwritten on every run.
type InventoryService struct {
	cluster       model.Cluster
	credential    model.Credential
	inventoryPath string
	configPath    string
	logger        logger.Sink
}

func NewInventoryService(cluster model.Cluster, credential model.Credential, inventoryPath, configPath string, logger logger.Sink) *InventoryService {
	return &InventoryService{
		cluster:       cluster,
		credential:    credential,
		inventoryPath: inventoryPath,
		configPath:    configPath,
		logger:        logger,
	}
}

func (s *InventoryService) BuildInventory() Inventory {
	master := InventoryGroup{Hosts: map[string]HostVars{}}
	workers := InventoryGroup{Hosts: map[string]HostVars{}}

	for _, host := range s.cluster.Hosts() {
		switch host.Role {
		case model.RoleMaster:
			master.Hosts[host.Name] = HostVars{AnsibleHost: host.Address}
		case model.RoleWorker:
			workers.Hosts[host.Name] = HostVars{AnsibleHost: host.Address}
		}
	}

	return Inventory{
		All: InventoryGroup{
			Children: map[string]InventoryGroup{
				clusterGroup: {
					Children: map[string]InventoryGroup{
						"master":  master,
						"workers": workers,
					},
				},
			},
			Vars: &InventoryVars{
				AnsibleUser:              s.cluster.User,
				AnsibleSSHPrivateKeyFile: s.credential.PrivateKeyPath,
				AnsibleBecome:            "yes",
			},
		},
	}
}

func (s *InventoryService) WriteInventory() bool {
	data, err := yaml.Marshal(s.BuildInventory())
	if err != nil {
		s.logger.Errorf("Failed to create inventory file: %v", err)
		return false
	}
	if err := os.WriteFile(s.inventoryPath, data, 0o644); err != nil {
		s.logger.Errorf("Failed to create inventory file: %v", err)
		return false
	}
	s.logger.Infof("Wrote inventory to %s", s.inventoryPath)
	return true
}

func (s *InventoryService) BuildToolConfig() (*ini.File, error) {
	cfg := ini.Empty()

	defaults, err := cfg.NewSection("defaults")
	if err != nil {
		return nil, err
	}
	escalation, err := cfg.NewSection("privilege_escalation")
	if err != nil {
		return nil, err
	}

	sections := []struct {
		section *ini.Section
		keys    [][2]string
	}{
		{defaults, [][2]string{
			{"inventory", s.inventoryPath},
			{"host_key_checking", "False"},
			{"remote_user", s.cluster.User},
			{"private_key_file", s.credential.PrivateKeyPath},
		}},
		{escalation, [][2]string{
			{"become", "True"},
			{"become_method", "sudo"},
			{"become_user", "root"},
			{"become_ask_pass", "False"},
			{"ansible_become_password", s.credential.Password},
		}},
	}

	for _, sec := range sections {
		for _, kv := range sec.keys {
			if _, err := sec.section.NewKey(kv[0], kv[1]); err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", kv[0], err)
			}
		}
	}
	return cfg, nil
}

// WriteToolConfig writes ansible.cfg with mode 0600, since it may carry the
// become password in plaintext.
func (s *InventoryService) WriteToolConfig() bool {
	cfg, err := s.BuildToolConfig()
	if err != nil {
		s.logger.Errorf("Failed to create ansible.cfg: %v", err)
		return false
	}

	f, err := os.OpenFile(s.configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		s.logger.Errorf("Failed to create ansible.cfg: %v", err)
		return false
	}
	if _, err := cfg.WriteTo(f); err != nil {
		_ = f.Close()
		s.logger.Errorf("Failed to create ansible.cfg: %v", err)
		return false
	}
	if err := f.Close(); err != nil {
		s.logger.Errorf("Failed to create ansible.cfg: %v", err)
		return false
	}
	// O_CREATE perms do not apply to a pre-existing file.
	if err := os.Chmod(s.configPath, 0o600); err != nil {
		s.logger.Errorf("Failed to restrict permissions on %s: %v", s.configPath, err)
		return false
	}

	if s.credential.HasPassword() {
		s.logger.Warnf("%s stores the become password in plaintext; keep it out of version control", s.configPath)
	}
	s.logger.Infof("Wrote Ansible config to %s", s.configPath)
	return true
}
