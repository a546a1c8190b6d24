// Command server boots the ZeroID HTTP API: it loads configuration,
// opens the encrypted stores, brings up the signing/escrow key
// material, builds the sanctions Merkle tree, and serves the routes
// from internal/httpapi until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/cache"
	"github.com/thesecretlab-dev/zeroid/internal/config"
	"github.com/thesecretlab-dev/zeroid/internal/escrow"
	"github.com/thesecretlab-dev/zeroid/internal/httpapi"
	"github.com/thesecretlab-dev/zeroid/internal/issuer"
	"github.com/thesecretlab-dev/zeroid/internal/kms"
	"github.com/thesecretlab-dev/zeroid/internal/kycprovider"
	"github.com/thesecretlab-dev/zeroid/internal/log"
	"github.com/thesecretlab-dev/zeroid/internal/sanctions"
	"github.com/thesecretlab-dev/zeroid/internal/store"
	"github.com/thesecretlab-dev/zeroid/internal/verification"
	"github.com/thesecretlab-dev/zeroid/internal/verifier"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/hkdf"
)

// merkleDepth is the sanctions tree's fixed depth (spec.md §4.3), big
// enough for any realistic restricted-country list.
const merkleDepth = 10

func main() {
	if err := run(); err != nil {
		log.Error(context.Background(), "fatal startup error", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	vkey, err := os.ReadFile(cfg.Groth16.VKeyPath)
	if err != nil {
		return fmt.Errorf("read verification key %s: %w", cfg.Groth16.VKeyPath, err)
	}

	if err := store.Migrate(ctx, cfg.Database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	pool, err := store.OpenPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer pool.Close()

	provider, err := kms.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap keys: %w", err)
	}
	issuerKeyID, err := ensureIssuerKey(ctx, provider)
	if err != nil {
		return fmt.Errorf("ensure issuer key: %w", err)
	}
	if _, err := ensureRegulatorKey(ctx, provider, "default"); err != nil {
		return fmt.Errorf("ensure default regulator key: %w", err)
	}

	masterKey, err := storeMasterKey(cfg)
	if err != nil {
		return fmt.Errorf("derive store master key: %w", err)
	}
	escrowKey, err := hkdf.DeriveStoreKey(masterKey, "escrow")
	if err != nil {
		return fmt.Errorf("derive escrow key: %w", err)
	}
	cacheKey, err := hkdf.DeriveStoreKey(masterKey, "proofcache")
	if err != nil {
		return fmt.Errorf("derive cache key: %w", err)
	}
	credentialsKey, err := hkdf.DeriveStoreKey(masterKey, "credentials")
	if err != nil {
		return fmt.Errorf("derive credentials key: %w", err)
	}

	countryCodes, err := loadSanctionsList(cfg.Sanctions.ListPath)
	if err != nil {
		return fmt.Errorf("load sanctions list: %w", err)
	}
	screener, err := sanctions.NewScreener(merkleDepth, countryCodes)
	if err != nil {
		return fmt.Errorf("build sanctions tree: %w", err)
	}

	auditLogger := audit.NewLogger(store.NewPgAuditStore(pool))
	escrowSvc := escrow.NewService(store.NewPgKV(pool, "escrow"), escrowKey, auditLogger)
	issuerSvc := issuer.NewService(
		screener,
		kycprovider.NewMockProvider(),
		provider,
		kms.NewRegulatorKeys(provider),
		issuerKeyID,
		escrowSvc,
		store.NewPgCredentials(pool),
		credentialsKey,
		auditLogger,
	)

	l1 := cache.NewL1()
	l2 := cache.NewL2(cache.NewRedisKV(cfg.Cache.RedisAddr, "zeroid:proofcache"), cacheKey)
	twoLayer := cache.NewTwoLayer(l1, l2)
	nullifiers := verifier.NewNullifierRegistry(store.NewPgNullifiers(pool), auditLogger)
	verifierSvc := verifier.NewService(verifier.NewGroth16Verifier(vkey), twoLayer, nullifiers, verifier.NewPool(), auditLogger)

	router := httpapi.NewRouter(httpapi.Config{
		Issuer:       issuerSvc,
		Verifier:     verifierSvc,
		Verification: verification.NewStore(),
		APIKeys:      cfg.Keys.APIKeys,
		CORSOrigin:   cfg.CORSOrigin,
		RateLimit:    100,
		RateBurst:    100,
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info(context.Background(), "shut down cleanly")
	return nil
}

// ensureIssuerKey loads the configured hex issuer key if present
// (kms.Bootstrap already imported it); otherwise it generates one and
// persists it under $ZEROID_KEYS_DIR, per spec.md §6.
func ensureIssuerKey(ctx context.Context, provider kms.KeyProvider) (kms.KeyID, error) {
	keyID := kms.KeyID{Type: kms.KeyTypeIssuerEdDSA, ID: kms.IssuerKeyID}
	exists, err := provider.Exists(ctx, keyID)
	if err != nil {
		return kms.KeyID{}, err
	}
	if exists {
		return keyID, nil
	}
	return provider.New(ctx, kms.KeyTypeIssuerEdDSA, kms.IssuerKeyID)
}

// ensureRegulatorKey generates the named regulator's AES key if
// ZEROID_REGULATOR_KEY_<ID> wasn't set and kms.Bootstrap didn't
// already import one.
func ensureRegulatorKey(ctx context.Context, provider kms.KeyProvider, regulatorID string) (kms.KeyID, error) {
	keyID := kms.KeyID{Type: kms.KeyTypeRegulatorAES, ID: regulatorID}
	exists, err := provider.Exists(ctx, keyID)
	if err != nil {
		return kms.KeyID{}, err
	}
	if exists {
		return keyID, nil
	}
	return provider.New(ctx, kms.KeyTypeRegulatorAES, regulatorID)
}

// storeMasterKey returns the configured HKDF seed, or a fresh random
// one (with a warning) if ZEROID_STORE_MASTER_KEY is unset — spec.md
// §6: "ephemeral if absent (warn)".
func storeMasterKey(cfg *config.Configuration) ([]byte, error) {
	if cfg.Keys.StoreMasterKeyHex != "" {
		key, err := hex.DecodeString(cfg.Keys.StoreMasterKeyHex)
		if err != nil {
			return nil, fmt.Errorf("decode ZEROID_STORE_MASTER_KEY: %w", err)
		}
		return key, nil
	}
	log.Warn(context.Background(), "ZEROID_STORE_MASTER_KEY not set; using an ephemeral key for this process only")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// loadSanctionsList reads ZEROID_SANCTIONS_LIST_PATH if set, else
// starts the screener with an empty list (no country is sanctioned
// until an operator supplies one).
func loadSanctionsList(path string) ([]int64, error) {
	if path == "" {
		return nil, nil
	}
	return sanctions.LoadCountryCodes(path)
}
