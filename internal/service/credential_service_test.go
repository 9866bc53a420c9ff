package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/logger"
)

func TestCredentialService_EnsureKeyPair_Creates(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ssh", "id_rsa")
	log, logs := newObservedLogger()
	svc := NewCredentialService(model.Credential{PrivateKeyPath: path}, 2048, &fakeCopier{}, log)

	require.True(t, svc.EnsureKeyPair())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	pub, err := os.ReadFile(path + ".pub")
	require.NoError(t, err)
	assert.Contains(t, string(pub), "ssh-rsa ")

	dir, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dir.Mode().Perm())

	assert.Equal(t, 1, logs.FilterMessage("Generating new SSH key pair...").Len())
}

func TestCredentialService_EnsureKeyPair_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id_rsa")
	svc := NewCredentialService(model.Credential{PrivateKeyPath: path}, 2048, &fakeCopier{}, logger.NewNop())
	require.True(t, svc.EnsureKeyPair())

	before, err := os.ReadFile(path)
	require.NoError(t, err)
	beforePub, err := os.ReadFile(path + ".pub")
	require.NoError(t, err)
	beforeInfo, err := os.Stat(path)
	require.NoError(t, err)

	require.True(t, svc.EnsureKeyPair())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	afterPub, err := os.ReadFile(path + ".pub")
	require.NoError(t, err)
	afterInfo, err := os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, beforePub, afterPub)
	assert.Equal(t, beforeInfo.ModTime(), afterInfo.ModTime())
}

func TestCredentialService_EnsureKeyPair_ExistingKeyWithoutPub(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o600))

	svc := NewCredentialService(model.Credential{PrivateKeyPath: path}, 2048, &fakeCopier{}, logger.NewNop())
	require.True(t, svc.EnsureKeyPair())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))

	_, err = os.Stat(path + ".pub")
	assert.True(t, os.IsNotExist(err))
}

func TestCredentialService_EnsureKeyPair_WriteFailure(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(parent, nil, 0o644))

	log, logs := newObservedLogger()
	svc := NewCredentialService(model.Credential{PrivateKeyPath: filepath.Join(parent, "id_rsa")}, 2048, &fakeCopier{}, log)

	assert.False(t, svc.EnsureKeyPair())
	assert.NotZero(t, logs.FilterMessageSnippet("SSH key").Len())
}

func TestCredentialService_Distribute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(path+".pub", []byte("ssh-rsa AAAAB3 test\n"), 0o644))

	t.Run("no password is a no-op", func(t *testing.T) {
		copier := &fakeCopier{}
		svc := NewCredentialService(model.Credential{PrivateKeyPath: path}, 2048, copier, logger.NewNop())

		assert.True(t, svc.Distribute(context.Background(), "10.0.0.1"))
		assert.Empty(t, copier.hosts)
	})

	t.Run("copies public key", func(t *testing.T) {
		copier := &fakeCopier{}
		log, logs := newObservedLogger()
		svc := NewCredentialService(model.Credential{PrivateKeyPath: path, Password: "pw"}, 2048, copier, log)

		assert.True(t, svc.Distribute(context.Background(), "10.0.0.1"))
		assert.Equal(t, []string{"10.0.0.1"}, copier.hosts)
		assert.Equal(t, "ssh-rsa AAAAB3 test\n", string(copier.keys[0]))
		assert.Equal(t, 1, logs.FilterMessage("Copied SSH key to 10.0.0.1").Len())
	})

	t.Run("copier failure", func(t *testing.T) {
		copier := &fakeCopier{fail: map[string]bool{"10.0.0.1": true}}
		log, logs := newObservedLogger()
		svc := NewCredentialService(model.Credential{PrivateKeyPath: path, Password: "pw"}, 2048, copier, log)

		assert.False(t, svc.Distribute(context.Background(), "10.0.0.1"))
		assert.Equal(t, 1, logs.FilterMessageSnippet("Failed to copy SSH key to 10.0.0.1").Len())
	})

	t.Run("missing public key", func(t *testing.T) {
		copier := &fakeCopier{}
		missing := filepath.Join(t.TempDir(), "id_rsa")
		svc := NewCredentialService(model.Credential{PrivateKeyPath: missing, Password: "pw"}, 2048, copier, logger.NewNop())

		assert.False(t, svc.Distribute(context.Background(), "10.0.0.1"))
		assert.Empty(t, copier.hosts)
	})
}
