// Package resolver determines the device base address the controller talks to.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned when a resolver has no address to offer
	ErrNotFound = errors.New("device address not found")
	// ErrInvalidAddress wraps every Normalize failure
	ErrInvalidAddress = errors.New("invalid device address")
)

// Resolver yields the base address (origin) of the device
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
	Name() string
}

// Normalize turns user input into an origin of the form http://host[:port].
// A bare host gets the http scheme. Only plain http origins are accepted and
// paths other than "/" are rejected.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidAddress, raw, err)
	}
	if u.Scheme != "http" {
		return "", fmt.Errorf("%w: unsupported scheme %q in %q (device speaks plain http)", ErrInvalidAddress, u.Scheme, raw)
	}
	if u.Host == "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidAddress, raw)
	}
	if u.Path != "" && u.Path != "/" {
		return "", fmt.Errorf("%w: %q must not contain a path", ErrInvalidAddress, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("%w: %q must be a bare origin", ErrInvalidAddress, raw)
	}

	return "http://" + u.Host, nil
}

// Static resolves to a fixed address taken from a flag, the environment or the config file
type Static struct {
	Address string
}

// NewStatic creates a static resolver
func NewStatic(address string) *Static {
	return &Static{Address: address}
}

func (s *Static) Name() string { return "static" }

// Resolve returns the configured address, normalized
func (s *Static) Resolve(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.Address) == "" {
		return "", ErrNotFound
	}
	return Normalize(s.Address)
}

// Chain tries each resolver in order and returns the first address found
type Chain []Resolver

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, r := range c {
		names = append(names, r.Name())
	}
	return strings.Join(names, ",")
}

// Resolve returns the first successful result. If every resolver fails the
// last error is returned, wrapped with the resolver name.
func (c Chain) Resolve(ctx context.Context) (string, error) {
	lastErr := ErrNotFound
	for _, r := range c {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		addr, err := r.Resolve(ctx)
		if err == nil {
			return addr, nil
		}
		lastErr = fmt.Errorf("%s: %w", r.Name(), err)
	}
	return "", lastErr
}
