package discovery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/consul/api"
)

type ConsulClient struct {
	client *api.Client
}

func NewConsulClient(address string) (*ConsulClient, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &ConsulClient{client: client}, nil
}

// RegisterService registers the HTTP server with a /health check. port may be
// given as ":8080".
func (c *ConsulClient) RegisterService(serviceID, serviceName, host, port string) error {
	p, err := parsePort(port)
	if err != nil {
		return err
	}

	registration := &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: host,
		Port:    p,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", host, p),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}
	return c.client.Agent().ServiceRegister(registration)
}

func (c *ConsulClient) DeregisterService(serviceID string) error {
	return c.client.Agent().ServiceDeregister(serviceID)
}

func parsePort(port string) (int, error) {
	p, err := strconv.Atoi(strings.TrimPrefix(port, ":"))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", port, err)
	}
	return p, nil
}
