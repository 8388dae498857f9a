package resolver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"192.168.1.50", "http://192.168.1.50", false},
		{"http://192.168.1.50/", "http://192.168.1.50", false},
		{"  http://esp32.local:8080  ", "http://esp32.local:8080", false},
		{"esp32.local:81", "http://esp32.local:81", false},
		{"", "", true},
		{"https://192.168.1.50", "", true},
		{"http://192.168.1.50/STATUS", "", true},
		{"http://192.168.1.50/?x=1", "", true},
		{"http://user:pw@192.168.1.50", "", true},
		{"http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatic(t *testing.T) {
	addr, err := NewStatic("10.0.0.7").Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.7", addr)

	_, err = NewStatic("").Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

type stubResolver struct {
	name string
	addr string
	err  error
}

func (s stubResolver) Name() string { return s.name }
func (s stubResolver) Resolve(context.Context) (string, error) {
	return s.addr, s.err
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	chain := Chain{
		stubResolver{name: "a", err: ErrNotFound},
		stubResolver{name: "b", addr: "http://10.0.0.2"},
		stubResolver{name: "c", addr: "http://10.0.0.3"},
	}
	addr, err := chain.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2", addr)
	assert.Equal(t, "a,b,c", chain.Name())
}

func TestChainReportsLastError(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{stubResolver{name: "a", err: ErrNotFound}, stubResolver{name: "b", err: boom}}

	_, err := chain.Resolve(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b:")

	_, err = Chain{}.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Chain{stubResolver{name: "a", addr: "http://x"}}.Resolve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectEntry(t *testing.T) {
	entries := []*mdns.ServiceEntry{
		{Name: "printer._http._tcp.local.", AddrV4: net.ParseIP("10.0.0.9"), Port: 80},
		{Name: "esp32-led._http._tcp.local.", AddrV4: nil, Port: 80},
		{Name: "ESP32-LED-2._http._tcp.local.", AddrV4: net.ParseIP("10.0.0.21"), Port: 8080},
	}

	addr, ok := selectEntry(entries, "esp32-led")
	require.True(t, ok)
	assert.Equal(t, "http://10.0.0.21:8080", addr)

	addr, ok = selectEntry(entries, "")
	require.True(t, ok)
	assert.Equal(t, "http://10.0.0.9", addr)

	_, ok = selectEntry(entries, "thermostat")
	assert.False(t, ok)
}

func TestMDNSResolveUsesQueryResults(t *testing.T) {
	m := NewMDNS("", "", "esp32", 10*time.Millisecond)
	assert.Equal(t, "_http._tcp", m.Service)
	assert.Equal(t, "local", m.Domain)

	m.query = func(p *mdns.QueryParam) error {
		p.Entries <- &mdns.ServiceEntry{Name: "esp32._http._tcp.local.", AddrV4: net.ParseIP("192.168.4.1"), Port: 80}
		return nil
	}

	addr, err := m.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.4.1", addr)
}

func TestMDNSResolveNothingFound(t *testing.T) {
	m := NewMDNS("_http._tcp", "local", "", 10*time.Millisecond)
	m.query = func(p *mdns.QueryParam) error { return nil }

	_, err := m.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}
