package kms

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/eddsa"
)

// AWSKMSConfig configures the AWS KMS-backed KeyProvider. AccessKey/
// SecretKey are only needed against a non-AWS endpoint (e.g. a
// localstack instance in tests); in production the default credential
// chain (environment, instance role, SSO) is used instead.
type AWSKMSConfig struct {
	KeyID     string // CMK ARN or alias used to wrap/unwrap key material
	Dir       string // where wrapped ciphertexts are cached on disk
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// AWSKMSProvider envelope-encrypts key material under an AWS KMS CMK:
// AWS KMS symmetric keys have no native BabyJubJub/EdDSA support, so
// this provider uses KMS's Encrypt/Decrypt API purely to protect the
// material at rest (the same role the teacher's AWS secret storage
// manager plays for its Ed25519 seeds), while signing happens
// in-process against the unwrapped material, exactly like
// LocalProvider.
type AWSKMSProvider struct {
	client *kms.Client
	keyID  string

	mu   sync.Mutex
	dir  string
	wrap map[string][]byte // cacheKey -> KMS ciphertext blob
}

// NewAWSKMSProvider builds a provider using ambient AWS credentials
// (aws-sdk-go-v2/config's default credential chain, including
// aws-sdk-go-v2/credentials for static overrides).
func NewAWSKMSProvider(ctx context.Context, cfg AWSKMSConfig) (*AWSKMSProvider, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("kms: aws config: %w", err)
	}

	client := kms.NewFromConfig(awsCfg, func(o *kms.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
	})

	p := &AWSKMSProvider{
		client: client,
		keyID:  cfg.KeyID,
		dir:    cfg.Dir,
		wrap:   make(map[string][]byte),
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("kms: aws provider: mkdir: %w", err)
		}
		if err := p.load(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *AWSKMSProvider) wrapFilePath(keyID KeyID) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_%s.wrapped", keyID.Type, keyID.ID))
}

func (p *AWSKMSProvider) load() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("kms: aws provider: readdir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(p.dir, e.Name()))
		if err != nil {
			continue
		}
		name := e.Name()
		base := name[:len(name)-len(filepath.Ext(name))]
		for i := 0; i < len(base); i++ {
			if base[i] == '_' {
				p.wrap[base[:i]+":"+base[i+1:]] = raw
				break
			}
		}
	}
	return nil
}

func (p *AWSKMSProvider) store(keyID KeyID, ciphertext []byte) error {
	p.mu.Lock()
	p.wrap[cacheKey(keyID)] = ciphertext
	p.mu.Unlock()

	if p.dir == "" {
		return nil
	}
	if err := os.WriteFile(p.wrapFilePath(keyID), ciphertext, 0o600); err != nil {
		return fmt.Errorf("kms: aws provider: write: %w", err)
	}
	return nil
}

func (p *AWSKMSProvider) ciphertext(keyID KeyID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.wrap[cacheKey(keyID)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return c, nil
}

func (p *AWSKMSProvider) unwrap(ctx context.Context, keyID KeyID) ([]byte, error) {
	ciphertext, err := p.ciphertext(keyID)
	if err != nil {
		return nil, err
	}
	out, err := p.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
		KeyId:          &p.keyID,
	})
	if err != nil {
		return nil, fmt.Errorf("kms: aws decrypt: %w", err)
	}
	return out.Plaintext, nil
}

func (p *AWSKMSProvider) wrapPlaintext(ctx context.Context, keyID KeyID, plaintext []byte) error {
	out, err := p.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     &p.keyID,
		Plaintext: plaintext,
	})
	if err != nil {
		return fmt.Errorf("kms: aws encrypt: %w", err)
	}
	return p.store(keyID, out.CiphertextBlob)
}

func (p *AWSKMSProvider) New(ctx context.Context, keyType KeyType, id string) (KeyID, error) {
	keyID := KeyID{Type: keyType, ID: id}

	var material []byte
	switch keyType {
	case KeyTypeIssuerEdDSA:
		kp, err := eddsa.Generate()
		if err != nil {
			return KeyID{}, fmt.Errorf("kms: generate eddsa key: %w", err)
		}
		material = kp.Priv[:]
	case KeyTypeRegulatorAES:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return KeyID{}, fmt.Errorf("kms: generate regulator key: %w", err)
		}
	default:
		return KeyID{}, ErrIncorrectKeyType
	}

	if err := p.wrapPlaintext(ctx, keyID, material); err != nil {
		return KeyID{}, err
	}
	return keyID, nil
}

func (p *AWSKMSProvider) PublicKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	if keyID.Type != KeyTypeIssuerEdDSA {
		return nil, ErrIncorrectKeyType
	}
	material, err := p.unwrap(ctx, keyID)
	if err != nil {
		return nil, err
	}
	kp, err := keyPairFromSeed(material)
	if err != nil {
		return nil, err
	}
	return publicKeyBytes(kp), nil
}

func (p *AWSKMSProvider) Sign(ctx context.Context, keyID KeyID, msg []byte) ([]byte, error) {
	if keyID.Type != KeyTypeIssuerEdDSA {
		return nil, ErrIncorrectKeyType
	}
	material, err := p.unwrap(ctx, keyID)
	if err != nil {
		return nil, err
	}
	kp, err := keyPairFromSeed(material)
	if err != nil {
		return nil, err
	}
	sig, err := eddsa.SignPoseidon(kp.Priv, new(big.Int).SetBytes(msg))
	if err != nil {
		return nil, err
	}
	return signatureBytes(sig), nil
}

func (p *AWSKMSProvider) SymmetricKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	if keyID.Type != KeyTypeRegulatorAES {
		return nil, ErrIncorrectKeyType
	}
	return p.unwrap(ctx, keyID)
}

func (p *AWSKMSProvider) Exists(ctx context.Context, keyID KeyID) (bool, error) {
	_, err := p.ciphertext(keyID)
	if err != nil {
		if err == ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *AWSKMSProvider) Delete(ctx context.Context, keyID KeyID) error {
	p.mu.Lock()
	delete(p.wrap, cacheKey(keyID))
	p.mu.Unlock()
	if p.dir != "" {
		_ = os.Remove(p.wrapFilePath(keyID))
	}
	return nil
}

func keyPairFromSeed(material []byte) (*eddsa.KeyPair, error) {
	if len(material) != 32 {
		return nil, fmt.Errorf("kms: eddsa seed must be 32 bytes, got %d", len(material))
	}
	var seed [32]byte
	copy(seed[:], material)
	return eddsa.FromHex(seed), nil
}
