package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"golang.org/x/crypto/ssh"

	"ansible-bootstrap/internal/pkg/keygen"
	"ansible-bootstrap/internal/pkg/runner"
)

// ErrCouldNotConnect is returned when no authentication method succeeded.
var ErrCouldNotConnect = errors.New("could not connect")

const sudoPrefix = "sudo "

type SSHConfig struct {
	Port           int
	Username       string
	Password       string
	PrivateKeyPath string
}

// Dialer opens SSH connections to fleet hosts. Host keys are not verified
// and no dial timeout is applied.
type Dialer struct {
	config SSHConfig
}

func NewDialer(config SSHConfig) *Dialer {
	if config.Port == 0 {
		config.Port = 22
	}
	return &Dialer{config: config}
}

// Connect tries key authentication first and falls back to password
// authentication when a password is configured.
func (d *Dialer) Connect(ctx context.Context, host string) (runner.RemoteSession, error) {
	client, keyErr := d.DialKey(ctx, host)
	if keyErr == nil {
		return NewSession(client, d.config.Password), nil
	}

	if d.config.Password == "" {
		return nil, fmt.Errorf("%w to %s: key auth: %v", ErrCouldNotConnect, host, keyErr)
	}

	client, pwErr := d.DialPassword(ctx, host)
	if pwErr != nil {
		return nil, fmt.Errorf("%w to %s: key auth: %v; password auth: %v", ErrCouldNotConnect, host, keyErr, pwErr)
	}
	return NewSession(client, d.config.Password), nil
}

func (d *Dialer) DialKey(ctx context.Context, host string) (*ssh.Client, error) {
	signer, err := keygen.LoadSigner(d.config.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	return d.dial(ctx, host, ssh.PublicKeys(signer))
}

func (d *Dialer) DialPassword(ctx context.Context, host string) (*ssh.Client, error) {
	if d.config.Password == "" {
		return nil, fmt.Errorf("no password configured")
	}
	password := d.config.Password
	return d.dial(ctx, host,
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	)
}

func (d *Dialer) dial(ctx context.Context, host string, auth ...ssh.AuthMethod) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            d.config.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // hosts are freshly provisioned and unknown
	}

	addr := net.JoinHostPort(host, strconv.Itoa(d.config.Port))

	var netDialer net.Dialer
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s failed: %w", addr, err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// Session runs commands on one connected host. Each command gets its own
// channel with a pseudo-terminal so sudo prompts behave.
type Session struct {
	client   *ssh.Client
	password string
}

var _ runner.RemoteSession = (*Session)(nil)

func NewSession(client *ssh.Client, password string) *Session {
	return &Session{client: client, password: password}
}

func (s *Session) Run(ctx context.Context, command string) runner.Result {
	command = WrapSudo(command, s.password)

	session, err := s.client.NewSession()
	if err != nil {
		return runner.Result{Output: fmt.Sprintf("failed to create SSH session: %v", err)}
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 40, 80, modes); err != nil {
		return runner.Result{Output: fmt.Sprintf("failed to request pty: %v", err)}
	}

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Close()
		return runner.Result{Output: ctx.Err().Error()}
	}

	if err != nil {
		// With a pty the remote side usually merges stderr into stdout.
		msg := stderr.String()
		if msg == "" {
			msg = stdout.String()
		}
		if msg == "" {
			msg = err.Error()
		}
		return runner.Result{Output: msg}
	}
	return runner.Result{OK: true, Output: stdout.String()}
}

func (s *Session) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// WrapSudo rewrites "sudo <cmd>" to feed password to sudo on stdin.
// Commands without the prefix, or runs without a password, are unchanged.
func WrapSudo(command, password string) string {
	if password == "" || !strings.HasPrefix(command, sudoPrefix) {
		return command
	}
	return fmt.Sprintf("echo %s | sudo -S %s", shellescape.Quote(password), strings.TrimPrefix(command, sudoPrefix))
}
