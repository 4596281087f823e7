package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Provider exposes the node's stable network identity: a persisted keypair
// behind a node ID, plus listen/dial under that identity. Overlay
// membership and peer discovery live outside this package.
type Provider interface {
	NodeID() string
	PublicKey() ed25519.PublicKey
	Listen(addr string) (net.Listener, error)
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

const keyFile = "identity.key"

// fileIdentity is a Provider backed by an ed25519 seed on disk. The seed
// is created on first use and reused afterwards, so the node ID is stable
// across restarts.
type fileIdentity struct {
	priv ed25519.PrivateKey
	id   string
}

// Load reads the node keypair from dir, generating and persisting one if
// none exists yet.
func Load(dir string) (Provider, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create identity directory: %w", err)
	}

	path := filepath.Join(dir, keyFile)
	seed, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("identity key %s has %d bytes, want %d", path, len(seed), ed25519.SeedSize)
		}
	case os.IsNotExist(err):
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("generate identity key: %w", err)
		}
		if err := os.WriteFile(path, seed, 0600); err != nil {
			return nil, fmt.Errorf("persist identity key: %w", err)
		}
	default:
		return nil, fmt.Errorf("read identity key: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	sum := sha256.Sum256(priv.Public().(ed25519.PublicKey))

	return &fileIdentity{
		priv: priv,
		id:   hex.EncodeToString(sum[:8]),
	}, nil
}

// NodeID returns the stable identifier derived from the public key.
func (f *fileIdentity) NodeID() string {
	return f.id
}

// PublicKey returns the node's public key.
func (f *fileIdentity) PublicKey() ed25519.PublicKey {
	return f.priv.Public().(ed25519.PublicKey)
}

// Listen opens a listener under the node's address.
func (f *fileIdentity) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Dial connects to a remote address.
func (f *fileIdentity) Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}
