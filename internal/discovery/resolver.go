package discovery

import (
	"fmt"
	"strings"

	consul "github.com/hashicorp/consul/api"
)

const consulPrefix = "consul:"

// Resolver turns a public-address argument into an address. Arguments of
// the form consul:<service> are looked up in Consul; anything else is
// returned unchanged.
type Resolver struct {
	consulAddr string
	client     *consul.Client
}

func NewResolver(consulAddr string) (*Resolver, error) {
	config := consul.DefaultConfig()
	if consulAddr != "" {
		config.Address = consulAddr
	}

	client, err := consul.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &Resolver{
		consulAddr: config.Address,
		client:     client,
	}, nil
}

func IsServiceRef(arg string) bool {
	return strings.HasPrefix(arg, consulPrefix)
}

func (r *Resolver) Resolve(arg string) (string, error) {
	if !IsServiceRef(arg) {
		return arg, nil
	}

	service := strings.TrimPrefix(arg, consulPrefix)
	if service == "" {
		return "", fmt.Errorf("empty service name in %q", arg)
	}

	return r.DiscoverService(service)
}

func (r *Resolver) DiscoverService(service string) (string, error) {
	services, _, err := r.client.Health().Service(service, "", true, nil)
	if err != nil {
		return "", fmt.Errorf("query consul at %s: %w", r.consulAddr, err)
	}

	if len(services) == 0 {
		return "", fmt.Errorf("no healthy %s services found", service)
	}

	entry := services[0]
	addr := entry.Service.Address
	if addr == "" {
		addr = entry.Node.Address
	}
	if addr == "" {
		return "", fmt.Errorf("service %s has no address", service)
	}

	return addr, nil
}
