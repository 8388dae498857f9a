package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"led-state-controller/internal/clock"
	"led-state-controller/internal/logger"
	"led-state-controller/internal/transport"
)

const testBase = "http://192.168.4.1"

var errUnreachable = errors.New("dial tcp 192.168.4.1:80: connect: no route to host")

// fakeDevice answers transport requests from a programmable table
type fakeDevice struct {
	mu       sync.Mutex
	status   string
	statusFn func() (*transport.Response, error)
	commands map[string]int // path -> status code, 0 means 200
	down     bool
	requests []transport.Request
	ctxErrs  []error
	block    chan struct{} // when set, every request waits on it
	entered  chan transport.Request
}

func newFakeDevice(status string) *fakeDevice {
	return &fakeDevice{status: status, commands: map[string]int{}}
}

func (d *fakeDevice) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	block := d.block
	entered := d.entered
	d.mu.Unlock()

	if entered != nil {
		entered <- req
	}
	if block != nil {
		<-block
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctxErrs = append(d.ctxErrs, ctx.Err())

	if d.down {
		return nil, errUnreachable
	}
	path := req.URL[len(testBase):]
	if req.Method == "GET" && path == "/STATUS" {
		if d.statusFn != nil {
			return d.statusFn()
		}
		return &transport.Response{StatusCode: 200, Body: []byte(d.status)}, nil
	}
	code := d.commands[path]
	if code == 0 {
		code = 200
	}
	return &transport.Response{StatusCode: code, Body: []byte("OK")}, nil
}

func (d *fakeDevice) set(fn func(d *fakeDevice)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d)
}

func (d *fakeDevice) Requests() []transport.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]transport.Request(nil), d.requests...)
}

func (d *fakeDevice) count(method, path string) int {
	n := 0
	for _, r := range d.Requests() {
		if r.Method == method && r.URL == testBase+path {
			n++
		}
	}
	return n
}

type fixture struct {
	c      *SyncController
	device *fakeDevice
	clock  *clock.Manual
	log    *logger.MockLogger
}

func newFixture(t *testing.T, device *fakeDevice, mutate ...func(*Options)) *fixture {
	t.Helper()
	m := clock.NewManual(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	log := logger.NewMockLogger()
	opts := Options{
		Transport: device,
		Clock:     m,
		Logger:    log,
		SessionID: "test-session",
		Now:       m.Now,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return &fixture{c: c, device: device, clock: m, log: log}
}

func (f *fixture) resolve(t *testing.T) {
	t.Helper()
	require.NoError(t, f.c.SetBaseAddress(testBase))
}

// withState resolves the address and performs one successful read of raw
func (f *fixture) withState(t *testing.T, raw string) {
	t.Helper()
	f.resolve(t)
	f.device.set(func(d *fakeDevice) { d.status = raw })
	require.NoError(t, f.c.ReadStatus(context.Background()))
}
