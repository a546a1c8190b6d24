package kms

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/userpass"

	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/eddsa"
)

// VaultConfig configures the HashiCorp Vault-backed KeyProvider.
type VaultConfig struct {
	Address   string
	MountPath string // KV v2 mount, e.g. "secret" (mirrors teacher's PluginIden3MountPath)
	Username  string
	Password  string
}

// VaultProvider stores key material as KV v2 secrets under
// <MountPath>/data/zeroid/<type>/<id>, authenticating with Vault's
// userpass method the way the teacher's providers.VaultClient does
// (kms.NewVaultPluginIden3KeyProvider, KeyTypeBabyJubJub) before
// handing the client to a key provider.
type VaultProvider struct {
	client    *vaultapi.Client
	mountPath string
}

// NewVaultProvider authenticates to Vault and returns a ready provider.
func NewVaultProvider(ctx context.Context, cfg VaultConfig) (*VaultProvider, error) {
	client, err := vaultapi.NewClient(&vaultapi.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("kms: vault client: %w", err)
	}

	authMethod, err := userpass.NewUserpassAuth(cfg.Username, &userpass.Password{FromString: cfg.Password})
	if err != nil {
		return nil, fmt.Errorf("kms: vault userpass auth: %w", err)
	}
	if _, err := client.Auth().Login(ctx, authMethod); err != nil {
		return nil, fmt.Errorf("kms: vault login: %w", err)
	}

	return &VaultProvider{client: client, mountPath: cfg.MountPath}, nil
}

func (v *VaultProvider) secretPath(keyID KeyID) string {
	return fmt.Sprintf("%s/data/zeroid/%s/%s", v.mountPath, keyID.Type, keyID.ID)
}

func (v *VaultProvider) writeMaterial(ctx context.Context, keyID KeyID, materialHex string) error {
	_, err := v.client.Logical().WriteWithContext(ctx, v.secretPath(keyID), map[string]interface{}{
		"data": map[string]interface{}{"material_hex": materialHex},
	})
	if err != nil {
		return fmt.Errorf("kms: vault write: %w", err)
	}
	return nil
}

func (v *VaultProvider) readMaterial(ctx context.Context, keyID KeyID) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.secretPath(keyID))
	if err != nil {
		return "", fmt.Errorf("kms: vault read: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrKeyNotFound
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", ErrKeyNotFound
	}
	materialHex, ok := data["material_hex"].(string)
	if !ok || materialHex == "" {
		return "", ErrKeyNotFound
	}
	return materialHex, nil
}

func (v *VaultProvider) New(ctx context.Context, keyType KeyType, id string) (KeyID, error) {
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

	if err := v.writeMaterial(ctx, keyID, materialHex); err != nil {
		return KeyID{}, err
	}
	return keyID, nil
}

func (v *VaultProvider) PublicKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	if keyID.Type != KeyTypeIssuerEdDSA {
		return nil, ErrIncorrectKeyType
	}
	materialHex, err := v.readMaterial(ctx, keyID)
	if err != nil {
		return nil, err
	}
	kp, err := keyPairFromHex(materialHex)
	if err != nil {
		return nil, err
	}
	return publicKeyBytes(kp), nil
}

func (v *VaultProvider) Sign(ctx context.Context, keyID KeyID, msg []byte) ([]byte, error) {
	if keyID.Type != KeyTypeIssuerEdDSA {
		return nil, ErrIncorrectKeyType
	}
	materialHex, err := v.readMaterial(ctx, keyID)
	if err != nil {
		return nil, err
	}
	kp, err := keyPairFromHex(materialHex)
	if err != nil {
		return nil, err
	}
	sig, err := eddsa.SignPoseidon(kp.Priv, new(big.Int).SetBytes(msg))
	if err != nil {
		return nil, err
	}
	return signatureBytes(sig), nil
}

func (v *VaultProvider) SymmetricKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	if keyID.Type != KeyTypeRegulatorAES {
		return nil, ErrIncorrectKeyType
	}
	materialHex, err := v.readMaterial(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(materialHex)
}

func (v *VaultProvider) Exists(ctx context.Context, keyID KeyID) (bool, error) {
	_, err := v.readMaterial(ctx, keyID)
	if err != nil {
		if err == ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (v *VaultProvider) Delete(ctx context.Context, keyID KeyID) error {
	_, err := v.client.Logical().DeleteWithContext(ctx, v.secretPath(keyID))
	if err != nil {
		return fmt.Errorf("kms: vault delete: %w", err)
	}
	return nil
}

func keyPairFromHex(materialHex string) (*eddsa.KeyPair, error) {
	raw, err := hex.DecodeString(materialHex)
	if err != nil {
		return nil, fmt.Errorf("kms: decode eddsa material: %w", err)
	}
	var seed [32]byte
	copy(seed[:], raw)
	return eddsa.FromHex(seed), nil
}
