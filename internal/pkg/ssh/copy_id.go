package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// PasswordKeyCopier installs a public key on a host using password
// authentication, the way ssh-copy-id does.
type PasswordKeyCopier struct {
	dialer *Dialer
}

func NewPasswordKeyCopier(dialer *Dialer) *PasswordKeyCopier {
	return &PasswordKeyCopier{dialer: dialer}
}

func (c *PasswordKeyCopier) CopyID(ctx context.Context, host string, publicKey []byte) error {
	client, err := c.dialer.DialPassword(ctx, host)
	if err != nil {
		return fmt.Errorf("password authentication to %s failed: %w", host, err)
	}
	defer client.Close()

	return InstallAuthorizedKey(client, publicKey)
}

// InstallAuthorizedKey appends publicKey to ~/.ssh/authorized_keys over SFTP
// unless an identical key is already present.
func InstallAuthorizedKey(client *ssh.Client, publicKey []byte) error {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to start sftp: %w", err)
	}
	defer sftpClient.Close()

	home, err := sftpClient.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve remote home: %w", err)
	}

	sshDir := path.Join(home, ".ssh")
	if err := sftpClient.MkdirAll(sshDir); err != nil {
		return fmt.Errorf("failed to create %s: %w", sshDir, err)
	}
	if err := sftpClient.Chmod(sshDir, 0o700); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", sshDir, err)
	}

	keysPath := path.Join(sshDir, "authorized_keys")
	existing, err := readRemoteFile(sftpClient, keysPath)
	if err != nil {
		return err
	}

	merged, changed, err := mergeAuthorizedKeys(existing, publicKey)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	f, err := sftpClient.OpenFile(keysPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", keysPath, err)
	}
	if _, err := f.Write(merged); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", keysPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", keysPath, err)
	}
	return sftpClient.Chmod(keysPath, 0o600)
}

func readRemoteFile(client *sftp.Client, name string) ([]byte, error) {
	f, err := client.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// mergeAuthorizedKeys appends key to an authorized_keys document. Keys are
// compared by their wire encoding, so comments and options are ignored.
func mergeAuthorizedKeys(existing, key []byte) ([]byte, bool, error) {
	want, _, _, _, err := ssh.ParseAuthorizedKey(key)
	if err != nil {
		return nil, false, fmt.Errorf("invalid public key: %w", err)
	}

	rest := existing
	for len(rest) > 0 {
		var have ssh.PublicKey
		have, _, _, rest, err = ssh.ParseAuthorizedKey(rest)
		if err != nil {
			// no further parseable keys
			break
		}
		if bytes.Equal(have.Marshal(), want.Marshal()) {
			return existing, false, nil
		}
	}

	var out bytes.Buffer
	out.Write(existing)
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		out.WriteByte('\n')
	}
	out.Write(bytes.TrimSpace(key))
	out.WriteByte('\n')
	return out.Bytes(), true, nil
}
