package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ansible-bootstrap/internal/pkg/logger"
	"ansible-bootstrap/internal/pkg/runner"
)

func newObservedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

type fakeSession struct {
	mu     sync.Mutex
	fail   func(command string) bool
	ran    []string
	closed bool
}

func (s *fakeSession) Run(_ context.Context, command string) runner.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ran = append(s.ran, command)
	if s.fail != nil && s.fail(command) {
		return runner.Result{OK: false, Output: "E: command failed"}
	}
	return runner.Result{OK: true, Output: "ok"}
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) Ran() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ran...)
}

func (s *fakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeConnector hands out one fakeSession per host.
type fakeConnector struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	// failCommand, keyed by host, makes that host's session reject matching commands.
	failCommand map[string]func(string) bool
	refuse      map[string]bool
	panicOn     map[string]bool
	attempts    []string
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		sessions:    make(map[string]*fakeSession),
		failCommand: make(map[string]func(string) bool),
		refuse:      make(map[string]bool),
		panicOn:     make(map[string]bool),
	}
}

func (c *fakeConnector) Connect(_ context.Context, host string) (runner.RemoteSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts = append(c.attempts, host)
	if c.panicOn[host] {
		panic("connection table corrupted")
	}
	if c.refuse[host] {
		return nil, errors.New("could not connect")
	}
	s := &fakeSession{fail: c.failCommand[host]}
	c.sessions[host] = s
	return s, nil
}

func (c *fakeConnector) Session(host string) *fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[host]
}

func (c *fakeConnector) Attempts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.attempts...)
}

type fakeCopier struct {
	hosts []string
	keys  [][]byte
	fail  map[string]bool
}

func (c *fakeCopier) CopyID(_ context.Context, host string, publicKey []byte) error {
	c.hosts = append(c.hosts, host)
	c.keys = append(c.keys, publicKey)
	if c.fail[host] {
		return errors.New("password authentication to " + host + " failed")
	}
	return nil
}

type fakeLocal struct {
	mu       sync.Mutex
	commands []string
	fail     func(command string) bool
}

func (l *fakeLocal) Run(_ context.Context, command string, _ bool) runner.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commands = append(l.commands, command)
	if l.fail != nil && l.fail(command) {
		return runner.Result{OK: false, Output: "Error: " + command + " failed"}
	}
	return runner.Result{OK: true, Output: command + " ok\n"}
}

func (l *fakeLocal) Commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.commands...)
}

func failPrefix(prefix string) func(string) bool {
	return func(command string) bool { return strings.HasPrefix(command, prefix) }
}

func newNopSink() logger.Sink {
	return logger.NewNop()
}
