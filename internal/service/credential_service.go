package service

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"ansible-bootstrap/internal/model"
	"ansible-bootstrap/internal/pkg/keygen"
	"ansible-bootstrap/internal/pkg/logger"
)

// KeyCopier installs a public key on a host using password authentication.
type KeyCopier interface {
	CopyID(ctx context.Context, host string, publicKey []byte) error
}

type CredentialService struct {
	credential model.Credential
	keyBits    int
	copier     KeyCopier
	logger     logger.Sink
}

func NewCredentialService(credential model.Credential, keyBits int, copier KeyCopier, logger logger.Sink) *CredentialService {
	return &CredentialService{
		credential: credential,
		keyBits:    keyBits,
		copier:     copier,
		logger:     logger,
	}
}

// EnsureKeyPair generates a key pair unless a private key already exists.
// An existing key is never touched.
func (s *CredentialService) EnsureKeyPair() bool {
	path := s.credential.PrivateKeyPath

	_, err := os.Stat(path)
	if err == nil {
		s.logger.Infof("Using existing SSH key: %s", path)
		return true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		s.logger.Errorf("Failed to check SSH key %s: %v", path, err)
		return false
	}

	s.logger.Infof("Generating new SSH key pair...")
	keyPair, err := keygen.GenerateRSAKeyPair(s.keyBits)
	if err != nil {
		s.logger.Errorf("Failed to generate SSH key: %v", err)
		return false
	}
	if err := keyPair.Write(path); err != nil {
		s.logger.Errorf("Failed to generate SSH key: %v", err)
		return false
	}
	s.logger.Infof("Generated %d-bit SSH key pair at %s", s.keyBits, path)
	return true
}

// Distribute copies the public key to host. Without a password it is a
// no-op: key access is assumed to be provisioned already.
func (s *CredentialService) Distribute(ctx context.Context, host string) bool {
	if !s.credential.HasPassword() {
		return true
	}

	publicKey, err := os.ReadFile(s.credential.PublicKeyPath())
	if err != nil {
		s.logger.Errorf("Failed to copy SSH key to %s: %v", host, err)
		return false
	}

	s.logger.SSHConnectionAttempt("password", host)
	if err := s.copier.CopyID(ctx, host, publicKey); err != nil {
		s.logger.Errorf("Failed to copy SSH key to %s: %v", host, err)
		return false
	}

	s.logger.Infof("Copied SSH key to %s", host)
	return true
}
