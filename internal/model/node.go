package model

import "fmt"

type Role string

const (
	RoleMaster Role = "master"
	RoleWorker Role = "worker"
)

const (
	MasterName       = "k8s-master"
	workerNameFormat = "k8s-worker%d"
)

type Host struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Role    Role   `json:"role"`
}

// Cluster is the target fleet: exactly one master and zero or more workers.
type Cluster struct {
	Master  string   `json:"master"`
	Workers []string `json:"workers"`
	User    string   `json:"user"`
}

// Hosts returns the master followed by the workers in input order.
// Workers are named k8s-worker1..N.
func (c Cluster) Hosts() []Host {
	hosts := make([]Host, 0, len(c.Workers)+1)
	hosts = append(hosts, Host{Name: MasterName, Address: c.Master, Role: RoleMaster})
	for i, addr := range c.Workers {
		hosts = append(hosts, Host{Name: WorkerName(i + 1), Address: addr, Role: RoleWorker})
	}
	return hosts
}

// WorkerName returns the inventory name of the worker at 1-based index i.
func WorkerName(i int) string {
	return fmt.Sprintf(workerNameFormat, i)
}

// Credential is shared by every host in a run.
type Credential struct {
	PrivateKeyPath string
	Password       string
}

func (c Credential) PublicKeyPath() string {
	return c.PrivateKeyPath + ".pub"
}

func (c Credential) HasPassword() bool {
	return c.Password != ""
}
