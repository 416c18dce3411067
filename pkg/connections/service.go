package connections

import (
	"context"
	"fmt"

	"github.com/reviewpilot/platform/pkg/common/models"
	"github.com/reviewpilot/platform/pkg/platform"
	"github.com/reviewpilot/platform/pkg/secrets"
)

// repository is what Service needs from storage. *Repository implements it.
type repository interface {
	Upsert(ctx context.Context, storeID int64, p models.Platform, loginID, secretCiphertext string) (models.Connection, error)
	Get(ctx context.Context, storeID int64, p models.Platform) (models.Connection, error)
	List(ctx context.Context) ([]models.Connection, error)
	Delete(ctx context.Context, storeID int64, p models.Platform) error
	get(ctx context.Context, storeID int64, p models.Platform) (connectionModel, error)
}

// Service owns platform credentials. Secrets are encrypted before they reach
// storage and decrypted only for adapter calls; no read path outside
// ResolveCredentials ever surfaces them.
type Service struct {
	repo   repository
	cipher *secrets.Cipher
}

func NewService(repo repository, cipher *secrets.Cipher) *Service {
	return &Service{repo: repo, cipher: cipher}
}

// Upsert stores a credential for (store, platform), replacing any existing one.
func (s *Service) Upsert(ctx context.Context, storeID int64, p models.Platform, loginID, secret string) (models.Connection, error) {
	ciphertext, err := s.cipher.Encrypt(secret)
	if err != nil {
		return models.Connection{}, fmt.Errorf("encrypting credential: %w", err)
	}
	return s.repo.Upsert(ctx, storeID, p, loginID, ciphertext)
}

func (s *Service) Get(ctx context.Context, storeID int64, p models.Platform) (models.Connection, error) {
	return s.repo.Get(ctx, storeID, p)
}

func (s *Service) List(ctx context.Context) ([]models.Connection, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, storeID int64, p models.Platform) error {
	return s.repo.Delete(ctx, storeID, p)
}

// ResolveCredentials returns the decrypted credential for an adapter call.
// Returns ErrNotFound when no connection exists; callers treat that as "skip",
// never as fatal to a batch.
func (s *Service) ResolveCredentials(ctx context.Context, storeID int64, p models.Platform) (platform.Credentials, error) {
	row, err := s.repo.get(ctx, storeID, p)
	if err != nil {
		return platform.Credentials{}, err
	}
	secret, err := s.cipher.Decrypt(row.SecretCiphertext)
	if err != nil {
		return platform.Credentials{}, fmt.Errorf("decrypting credential: %w", err)
	}
	return platform.Credentials{LoginID: row.LoginID, Secret: secret}, nil
}
