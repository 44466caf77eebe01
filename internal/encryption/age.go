package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"filippo.io/age"

	"kv-go/internal/config"
	"kv-go/internal/kv"
)

// AgeSealer implements kv.Sealer using filippo.io/age with an X25519
// identity stored in a 0600 file. The KDBX file is already protected by the
// master password; sealing keeps other local users and backup tools from
// recognizing and copying the raw databases.
type AgeSealer struct {
	identityPath string
}

var _ kv.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a new AgeSealer from configuration.
func NewAgeSealer(cfg config.EncryptionConfig) *AgeSealer {
	return &AgeSealer{identityPath: cfg.IdentityPath}
}

// Setup generates a new X25519 identity. An existing identity is kept, since
// replacing it would make every stored payload unreadable.
func (s *AgeSealer) Setup() error {
	if s.IsConfigured() {
		return nil
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	f, err := os.OpenFile(s.identityPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()

	content := fmt.Sprintf("# public key: %s\n%s\n", identity.Recipient(), identity)
	if _, err := io.WriteString(f, content); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return f.Close()
}

// Seal reads plaintext from r and writes age-encrypted ciphertext to w.
func (s *AgeSealer) Seal(r io.Reader, w io.Writer) error {
	identity, err := s.loadIdentity()
	if err != nil {
		return err
	}

	encWriter, err := age.Encrypt(w, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Open reads age-encrypted ciphertext from r and writes plaintext to w.
func (s *AgeSealer) Open(r io.Reader, w io.Writer) error {
	identity, err := s.loadIdentity()
	if err != nil {
		return err
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

// IsConfigured returns true if the identity file exists.
func (s *AgeSealer) IsConfigured() bool {
	_, err := os.Stat(s.identityPath)
	return err == nil
}

// loadIdentity reads the identity file and parses the first X25519 identity.
func (s *AgeSealer) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("age identity %s not found (run `kv config init`)", s.identityPath)
		}
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity found in %s", s.identityPath)
}
