package kms

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/eddsa"
)

// LocalProvider is the dev/test KeyProvider: key material lives in
// memory and is mirrored to hex-encoded files under a directory, the
// way the teacher's file-backed storage manager persists key material
// between process restarts without a real secrets service.
type LocalProvider struct {
	mu   sync.Mutex
	dir  string
	keys map[string]string // KeyID.Type+":"+ID -> hex-encoded material
}

// NewLocalProvider builds a provider that persists key material under
// dir (created if absent). dir == "" keeps everything in memory only,
// the shape used by unit tests.
func NewLocalProvider(dir string) (*LocalProvider, error) {
	p := &LocalProvider{dir: dir, keys: make(map[string]string)}
	if dir == "" {
		return p, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("kms: local provider: mkdir: %w", err)
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func cacheKey(keyID KeyID) string { return string(keyID.Type) + ":" + keyID.ID }

func (p *LocalProvider) path(keyID KeyID) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_%s.json", keyID.Type, keyID.ID))
}

type localKeyFile struct {
	MaterialHex string `json:"material_hex"`
}

func (p *LocalProvider) load() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("kms: local provider: readdir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(p.dir, e.Name()))
		if err != nil {
			continue
		}
		var kf localKeyFile
		if err := json.Unmarshal(raw, &kf); err != nil {
			continue
		}
		name := e.Name()
		// File names are "<type>_<id>.json"; reconstruct the cache key
		// by stripping the extension and re-joining with ":".
		base := name[:len(name)-len(filepath.Ext(name))]
		for i := 0; i < len(base); i++ {
			if base[i] == '_' {
				p.keys[base[:i]+":"+base[i+1:]] = kf.MaterialHex
				break
			}
		}
	}
	return nil
}

func (p *LocalProvider) persist(keyID KeyID, materialHex string) error {
	if p.dir == "" {
		return nil
	}
	b, err := json.Marshal(localKeyFile{MaterialHex: materialHex})
	if err != nil {
		return fmt.Errorf("kms: local provider: marshal: %w", err)
	}
	if err := os.WriteFile(p.path(keyID), b, 0o600); err != nil {
		return fmt.Errorf("kms: local provider: write: %w", err)
	}
	return nil
}

// New generates fresh key material for keyType, stores it under id,
// and returns the resulting KeyID.
func (p *LocalProvider) New(ctx context.Context, keyType KeyType, id string) (KeyID, error) {
	keyID := KeyID{Type: keyType, ID: id}

	var materialHex string
	switch keyType {
	case KeyTypeIssuerEdDSA:
		kp, err := eddsa.Generate()
		if err != nil {
			return KeyID{}, fmt.Errorf("kms: generate eddsa key: %w", err)
		}
		materialHex = hex.EncodeToString(kp.Priv[:])
	case KeyTypeRegulatorAES:
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return KeyID{}, fmt.Errorf("kms: generate regulator key: %w", err)
		}
		materialHex = hex.EncodeToString(raw)
	default:
		return KeyID{}, ErrIncorrectKeyType
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[cacheKey(keyID)] = materialHex
	if err := p.persist(keyID, materialHex); err != nil {
		return KeyID{}, err
	}
	return keyID, nil
}

// Import installs existing material (hex-encoded) under keyID, used at
// boot to load the issuer key and any regulator keys from
// configuration rather than generating them (internal/config,
// spec.md §6 env vars).
func (p *LocalProvider) Import(ctx context.Context, keyID KeyID, materialHex string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[cacheKey(keyID)] = materialHex
	return p.persist(keyID, materialHex)
}

func (p *LocalProvider) material(keyID KeyID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.keys[cacheKey(keyID)]
	if !ok {
		return "", ErrKeyNotFound
	}
	return m, nil
}

func (p *LocalProvider) PublicKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	if keyID.Type != KeyTypeIssuerEdDSA {
		return nil, ErrIncorrectKeyType
	}
	materialHex, err := p.material(keyID)
	if err != nil {
		return nil, err
	}
	var seed [32]byte
	raw, err := hex.DecodeString(materialHex)
	if err != nil {
		return nil, fmt.Errorf("kms: decode eddsa material: %w", err)
	}
	copy(seed[:], raw)
	kp := eddsa.FromHex(seed)
	return publicKeyBytes(kp), nil
}

// publicKeyBytes encodes a BabyJubJub public key as X||Y, 32 bytes
// each big-endian, the wire shape internal/kms.KeyProvider.PublicKey
// promises.
func publicKeyBytes(kp *eddsa.KeyPair) []byte {
	out := make([]byte, 64)
	kp.Pub.X.FillBytes(out[:32])
	kp.Pub.Y.FillBytes(out[32:])
	return out
}

// signatureBytes encodes an EdDSA signature as R8x||R8y||S, 32 bytes
// each big-endian.
func signatureBytes(sig *eddsa.Signature) []byte {
	out := make([]byte, 96)
	sig.R8x.FillBytes(out[:32])
	sig.R8y.FillBytes(out[32:64])
	sig.S.FillBytes(out[64:])
	return out
}

func (p *LocalProvider) Sign(ctx context.Context, keyID KeyID, msg []byte) ([]byte, error) {
	if keyID.Type != KeyTypeIssuerEdDSA {
		return nil, ErrIncorrectKeyType
	}
	materialHex, err := p.material(keyID)
	if err != nil {
		return nil, err
	}
	var seed [32]byte
	raw, err := hex.DecodeString(materialHex)
	if err != nil {
		return nil, fmt.Errorf("kms: decode eddsa material: %w", err)
	}
	copy(seed[:], raw)
	kp := eddsa.FromHex(seed)
	sig, err := eddsa.SignPoseidon(kp.Priv, new(big.Int).SetBytes(msg))
	if err != nil {
		return nil, err
	}
	return signatureBytes(sig), nil
}

func (p *LocalProvider) SymmetricKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	if keyID.Type != KeyTypeRegulatorAES {
		return nil, ErrIncorrectKeyType
	}
	materialHex, err := p.material(keyID)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(materialHex)
}

func (p *LocalProvider) Exists(ctx context.Context, keyID KeyID) (bool, error) {
	_, err := p.material(keyID)
	if err != nil {
		if err == ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *LocalProvider) Delete(ctx context.Context, keyID KeyID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, cacheKey(keyID))
	if p.dir != "" {
		_ = os.Remove(p.path(keyID))
	}
	return nil
}
