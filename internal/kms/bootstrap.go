package kms

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/thesecretlab-dev/zeroid/internal/config"
)

// IssuerKeyID is the fixed handle under which the single issuer
// signing key is stored, regardless of backend.
const IssuerKeyID = "issuer"

// Bootstrap selects and initializes a KeyProvider from cfg: the Vault
// backend if ZEROID_VAULT_ADDR is set, else AWS KMS if
// ZEROID_AWS_KMS_KEY_ID is set, else the local file-backed provider.
// It also imports the issuer's private key and every configured
// regulator key into the provider so later lookups are pure reads.
func Bootstrap(ctx context.Context, cfg *config.Configuration) (KeyProvider, error) {
	provider, err := selectProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Keys.IssuerPrivateKeyHex != "" {
		issuerID := KeyID{Type: KeyTypeIssuerEdDSA, ID: IssuerKeyID}
		exists, err := provider.Exists(ctx, issuerID)
		if err != nil {
			return nil, fmt.Errorf("kms: bootstrap: check issuer key: %w", err)
		}
		if !exists {
			if err := importHex(ctx, provider, issuerID, cfg.Keys.IssuerPrivateKeyHex); err != nil {
				return nil, fmt.Errorf("kms: bootstrap: import issuer key: %w", err)
			}
		}
	}

	for regulatorID, hexKey := range cfg.RegulatorKeys {
		keyID := KeyID{Type: KeyTypeRegulatorAES, ID: regulatorID}
		exists, err := provider.Exists(ctx, keyID)
		if err != nil {
			return nil, fmt.Errorf("kms: bootstrap: check regulator key %q: %w", regulatorID, err)
		}
		if !exists {
			if err := importHex(ctx, provider, keyID, hexKey); err != nil {
				return nil, fmt.Errorf("kms: bootstrap: import regulator key %q: %w", regulatorID, err)
			}
		}
	}

	return provider, nil
}

func selectProvider(ctx context.Context, cfg *config.Configuration) (KeyProvider, error) {
	switch {
	case cfg.Keys.VaultAddr != "":
		return NewVaultProvider(ctx, VaultConfig{
			Address:   cfg.Keys.VaultAddr,
			MountPath: "secret",
		})
	case cfg.Keys.AWSKMSKeyID != "":
		return NewAWSKMSProvider(ctx, AWSKMSConfig{
			KeyID: cfg.Keys.AWSKMSKeyID,
			Dir:   cfg.Keys.KeysDir,
		})
	default:
		return NewLocalProvider(cfg.Keys.KeysDir)
	}
}

// importHex installs pre-existing hex-encoded material under keyID.
// Only LocalProvider exposes Import directly; Vault/AWS providers
// accept arbitrary material through their New-adjacent write paths, so
// this re-derives the same write each backend's New uses internally.
func importHex(ctx context.Context, provider KeyProvider, keyID KeyID, materialHex string) error {
	switch p := provider.(type) {
	case *LocalProvider:
		return p.Import(ctx, keyID, materialHex)
	case *VaultProvider:
		return p.writeMaterial(ctx, keyID, materialHex)
	case *AWSKMSProvider:
		raw, err := hex.DecodeString(materialHex)
		if err != nil {
			return fmt.Errorf("kms: bootstrap: decode material: %w", err)
		}
		return p.wrapPlaintext(ctx, keyID, raw)
	default:
		return fmt.Errorf("kms: bootstrap: unsupported provider type %T for key import", provider)
	}
}
