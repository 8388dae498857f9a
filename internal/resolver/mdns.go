package resolver

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"led-state-controller/internal/logger"
)

// MDNS browses the local network for the device's HTTP service
type MDNS struct {
	Service  string        // e.g. _http._tcp
	Domain   string        // e.g. local
	Instance string        // instance name prefix to match, empty accepts the first entry
	Timeout  time.Duration // per browse

	query func(*mdns.QueryParam) error
}

// NewMDNS creates an mDNS resolver
func NewMDNS(service, domain, instance string, timeout time.Duration) *MDNS {
	if service == "" {
		service = "_http._tcp"
	}
	if domain == "" {
		domain = "local"
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &MDNS{
		Service:  service,
		Domain:   domain,
		Instance: instance,
		Timeout:  timeout,
		query:    mdns.Query,
	}
}

func (m *MDNS) Name() string { return "mdns" }

// Browse collects every entry answering within Timeout
func (m *MDNS) Browse(ctx context.Context) ([]*mdns.ServiceEntry, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	errCh := make(chan error, 1)

	go func() {
		params := &mdns.QueryParam{
			Service:             m.Service,
			Domain:              m.Domain,
			Timeout:             m.Timeout,
			Entries:             entries,
			DisableIPv6:         true,
			WantUnicastResponse: true,
			Logger:              log.New(io.Discard, "", 0),
		}
		errCh <- m.query(params)
		close(entries)
	}()

	var found []*mdns.ServiceEntry
	for entry := range entries {
		if ctx.Err() != nil {
			continue
		}
		logger.LogDebug("📡 mDNS entry: Name=%s AddrV4=%v Port=%d", entry.Name, entry.AddrV4, entry.Port)
		found = append(found, entry)
	}
	if err := <-errCh; err != nil {
		return found, fmt.Errorf("mdns query %s.%s: %w", m.Service, m.Domain, err)
	}
	if err := ctx.Err(); err != nil {
		return found, err
	}
	return found, nil
}

// Resolve browses once and returns the address of the first matching entry
func (m *MDNS) Resolve(ctx context.Context) (string, error) {
	entries, err := m.Browse(ctx)
	if err != nil {
		return "", err
	}
	addr, ok := selectEntry(entries, m.Instance)
	if !ok {
		return "", ErrNotFound
	}
	logger.LogInfo("📡 Discovered device at %s via mDNS", addr)
	return addr, nil
}

// selectEntry picks the first entry with a usable IPv4 address whose instance
// name starts with instance (case-insensitive)
func selectEntry(entries []*mdns.ServiceEntry, instance string) (string, bool) {
	prefix := strings.ToLower(instance)
	for _, e := range entries {
		if e == nil || e.AddrV4 == nil || e.AddrV4.IsUnspecified() {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(e.Name), prefix) {
			continue
		}
		host := e.AddrV4.String()
		if e.Port != 0 && e.Port != 80 {
			host = net.JoinHostPort(host, strconv.Itoa(e.Port))
		}
		return "http://" + host, true
	}
	return "", false
}
