package svc

import (
	"time"

	consul "github.com/hashicorp/consul/api"

	"github.com/homeclimate/thermoms/log"
)

// Query the Consul for services:
// dig +noall +answer @127.0.0.1 -p 8600 myCoolServiceName.service.dc1.consul
// curl localhost:8500/v1/health/service/myCoolServiceName?passing

type (
	// MeshAgent represents a service mesh agent.
	MeshAgent struct {
		name  string
		port  int
		agent *consul.Agent
		ttl   time.Duration
		log   log.Logger
	}

	// MeshAgentCfg is used to initialize an instance of MeshAgent.
	MeshAgentCfg struct {
		Name string
		Port int
		TTL  time.Duration
		Log  log.Logger
	}
)

// NewMeshAgent creates and initializes a new instance of MeshAgent.
func NewMeshAgent(c *MeshAgentCfg) *MeshAgent {
	return &MeshAgent{
		name: c.Name,
		port: c.Port,
		ttl:  c.TTL,
		log:  c.Log.With("component", "meshAgent"),
	}
}

// Run launches the agent.
func (a *MeshAgent) Run() {
	client, err := consul.NewClient(consul.DefaultConfig())
	if err != nil {
		a.log.Errorf("func NewClient: %s", err)
		return
	}
	agentReg := &consul.AgentServiceRegistration{
		Name: a.name,
		Port: a.port,
		Check: &consul.AgentServiceCheck{
			TTL: a.ttl.String(),
		},
	}
	a.agent = client.Agent()
	if err := a.agent.ServiceRegister(agentReg); err != nil {
		a.log.Errorf("func ServiceRegister: %s", err)
		return
	}
	go a.updateTTL(check)
}

func check() (bool, error) {
	// while the service is alive - everything is ok
	return true, nil
}

func (a *MeshAgent) updateTTL(check func() (bool, error)) {
	t := time.NewTicker(a.ttl / 2)
	for range t.C {
		a.update(check)
	}
}

func (a *MeshAgent) update(check func() (bool, error)) {
	var health string
	if ok, err := check(); !ok {
		a.log.With("event", log.EventUpdConsulStatus).Errorf("func check: %s", err)
		// failed check will remove a service instance from DNS and HTTP query
		// to avoid returning errors or invalid data.
		health = consul.HealthCritical
	} else {
		health = consul.HealthPassing
	}

	if err := a.agent.UpdateTTL(a.name, "", health); err != nil {
		a.log.With("event", log.EventUpdConsulStatus).Errorf("func UpdateTTL: %s", err)
	}
}
