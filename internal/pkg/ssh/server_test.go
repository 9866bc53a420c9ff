package ssh

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"ansible-bootstrap/internal/pkg/keygen"
)

type execReply struct {
	stdout string
	stderr string
	status uint32
}

// testServer is a minimal sshd: password and/or public key auth, exec with
// pty requests, and an sftp subsystem rooted at homeDir.
type testServer struct {
	host    string
	port    int
	homeDir string

	password      string
	authorizedKey ssh.PublicKey
	reply         func(command string) execReply

	mu        sync.Mutex
	commands  []string
	ptyCount  int
	authKinds []string
}

type serverOption func(*testServer)

func withPassword(password string) serverOption {
	return func(s *testServer) { s.password = password }
}

func withAuthorizedKey(key ssh.PublicKey) serverOption {
	return func(s *testServer) { s.authorizedKey = key }
}

func withReply(fn func(command string) execReply) serverOption {
	return func(s *testServer) { s.reply = fn }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	s := &testServer{
		homeDir: t.TempDir(),
		reply: func(string) execReply {
			return execReply{stdout: "ok\n"}
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	hostKey, err := keygen.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	hostSigner, err := ssh.ParsePrivateKey(hostKey.PrivateKey)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			s.recordAuth("password")
			if s.password != "" && string(password) == s.password {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			s.recordAuth("publickey")
			if s.authorizedKey != nil && bytes.Equal(key.Marshal(), s.authorizedKey.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("key rejected")
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	addr := listener.Addr().(*net.TCPAddr)
	s.host = addr.IP.String()
	s.port = addr.Port

	go s.serve(listener, config)
	return s
}

func (s *testServer) serve(listener net.Listener, config *ssh.ServerConfig) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn, config)
	}
}

func (s *testServer) handleConn(conn net.Conn, config *ssh.ServerConfig) {
	serverConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer serverConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *testServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	for req := range requests {
		switch req.Type {
		case "pty-req":
			s.mu.Lock()
			s.ptyCount++
			s.mu.Unlock()
			_ = req.Reply(true, nil)

		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				return
			}
			_ = req.Reply(true, nil)

			s.mu.Lock()
			s.commands = append(s.commands, payload.Command)
			s.mu.Unlock()

			reply := s.reply(payload.Command)
			_, _ = io.WriteString(channel, reply.stdout)
			_, _ = io.WriteString(channel.Stderr(), reply.stderr)
			_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{reply.status}))
			return

		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)

			server, err := sftp.NewServer(channel, sftp.WithServerWorkingDirectory(s.homeDir))
			if err != nil {
				return
			}
			_ = server.Serve()
			return

		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *testServer) recordAuth(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authKinds = append(s.authKinds, kind)
}

func (s *testServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *testServer) PtyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ptyCount
}

func (s *testServer) AuthKinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authKinds...)
}

// writeClientKey creates a client key pair on disk and returns its path and public key.
func writeClientKey(t *testing.T) (string, ssh.PublicKey, []byte) {
	t.Helper()

	keyPair, err := keygen.GenerateRSAKeyPair(2048)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, keyPair.Write(path))

	pub, _, _, _, err := ssh.ParseAuthorizedKey(keyPair.PublicKey)
	require.NoError(t, err)
	return path, pub, keyPair.PublicKey
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
