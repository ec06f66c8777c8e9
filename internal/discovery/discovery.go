// Package discovery advertises the bridge's status/metrics endpoint over
// mDNS/DNS-SD, generalizing the teacher's own dns_sd_announce
// (src/dns_sd.go) from announcing a KISS-over-TCP TNC service to
// announcing this daemon's HTTP status endpoint.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const serviceType = "_bridge-status._tcp"

// Advertise registers name (defaulting to the fixed name "mculink-bridge"
// when name is empty) on serviceType at port, and serves DNS-SD responses until
// ctx is cancelled — satisfying internal/daemon.Task's Run signature
// directly (callers use this as a Task.Run func verbatim).
func Advertise(ctx context.Context, logger *log.Logger, name string, port int) error {
	if name == "" {
		name = defaultServiceName()
	}

	cfg := dnssd.Config{
		Name: name,
		Type: serviceType,
		Port: port,
	}
	svc, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("discovery: create service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("discovery: create responder: %w", err)
	}

	if _, err := responder.Add(svc); err != nil {
		return fmt.Errorf("discovery: add service: %w", err)
	}

	logger.Info("dns-sd announcing bridge status endpoint", "name", name, "port", port)
	if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("discovery: responder: %w", err)
	}
	return ctx.Err()
}

func defaultServiceName() string {
	return "mculink-bridge"
}
