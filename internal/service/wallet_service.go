package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gamelink-io/provision-service/internal/model"
	"github.com/gamelink-io/provision-service/internal/repo"
	"github.com/gamelink-io/provision-service/internal/status"
)

// AuthClient obtains an access token for the external multi-sig service.
type AuthClient interface {
	Token(ctx context.Context) (string, error)
}

// WalletCreator is the slice of the multi-sig client the wallet flow needs.
type WalletCreator interface {
	CreateWallet(ctx context.Context, publicKey, providerAddress, token string) (string, error)
}

// WalletResult is the outcome of every wallet provisioning operation.
// Domain and external failures set Error and a status code; a returned Go
// error is reserved for store/infrastructure failures.
type WalletResult struct {
	Code       status.Code
	Error      bool
	WalletList []model.WalletOverviewRow
}

// WalletService orchestrates wallet creation, deletion and listing.
type WalletService struct {
	repo repo.RepositoryInterface
	auth AuthClient
	ms   WalletCreator
	log  *zap.SugaredLogger
}

// NewWalletService returns WalletService.
func NewWalletService(r repo.RepositoryInterface, auth AuthClient, ms WalletCreator, logger *zap.SugaredLogger) *WalletService {
	return &WalletService{repo: r, auth: auth, ms: ms, log: logger}
}

// CreateWalletInput is the create request after boundary validation.
type CreateWalletInput struct {
	Company         int
	Address         string
	PublicKey       string
	WalletType      model.WalletType
	ProviderAddress string
	Language        string
}

// overview returns the joined wallet list, preferring the cache.
func (s *WalletService) overview(ctx context.Context, company int, language string) ([]model.WalletOverviewRow, error) {
	if rows, err := s.repo.GetCachedOverview(ctx, company, language); err == nil {
		return rows, nil
	}
	rows, err := s.repo.WalletOverview(ctx, company, language)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CacheOverview(ctx, company, language, rows); err != nil {
		s.log.Warnf("cache overview company=%d: %v", company, err)
	}
	return rows, nil
}

// refresh drops every cached overview variant of the company and rebuilds
// the requested one after a mutation.
func (s *WalletService) refresh(ctx context.Context, company int, language string) ([]model.WalletOverviewRow, error) {
	if err := s.repo.InvalidateOverview(ctx, company); err != nil {
		s.log.Warnf("invalidate overview company=%d: %v", company, err)
	}
	return s.overview(ctx, company, language)
}

// List returns the joined wallet list, read-only.
func (s *WalletService) List(ctx context.Context, company int, language string) (*WalletResult, error) {
	rows, err := s.overview(ctx, company, language)
	if err != nil {
		return nil, err
	}
	return &WalletResult{Code: status.Success, WalletList: rows}, nil
}

// Create provisions a wallet. SINGLE wallets are registered directly; MULTI
// wallets are created on the external multi-sig service first and persisted
// with the returned address. An external failure yields Error=true and skips
// persistence. Whatever happened, the current joined list is returned.
func (s *WalletService) Create(ctx context.Context, in CreateWalletInput) (*WalletResult, error) {
	existing, err := s.repo.FindWallet(ctx, in.Company, in.Address, in.WalletType)
	if err != nil && !errors.Is(err, status.ErrNotFound) {
		return nil, err
	}

	switch {
	case existing != nil && !existing.Deleted:
		rows, err := s.overview(ctx, in.Company, in.Language)
		if err != nil {
			return nil, err
		}
		return &WalletResult{Code: status.AlreadyRegisteredWallet, Error: true, WalletList: rows}, nil

	case existing != nil && existing.Deleted:
		err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.repo.ReactivateWallet(ctx, tx, in.Company, in.Address); err != nil {
				return err
			}
			return s.appendEvent(ctx, tx, existing.ID, model.EventWalletReactivated, map[string]interface{}{
				"company": in.Company, "address": in.Address, "walletType": in.WalletType,
			})
		})
		if err != nil {
			return nil, err
		}

	default:
		record := &model.Wallet{
			Company:    in.Company,
			Address:    in.Address,
			WalletType: in.WalletType,
		}
		if in.WalletType == model.WalletMulti {
			token, err := s.auth.Token(ctx)
			if err != nil {
				s.log.Warnf("auth for multi wallet company=%d: %v", in.Company, err)
				return s.externalFailure(ctx, in.Company, in.Language)
			}
			multiAddress, err := s.ms.CreateWallet(ctx, in.PublicKey, in.ProviderAddress, token)
			if err != nil {
				s.log.Warnf("create multi wallet company=%d provider=%s: %v", in.Company, in.ProviderAddress, err)
				return s.externalFailure(ctx, in.Company, in.Language)
			}
			record.Address = multiAddress
			record.ProviderAddress = in.ProviderAddress
		}
		err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.SaveWallet(ctx, tx, record); err != nil {
				return err
			}
			return s.appendEvent(ctx, tx, record.ID, model.EventWalletCreated, map[string]interface{}{
				"company": in.Company, "address": record.Address, "walletType": in.WalletType,
			})
		})
		if err != nil {
			return nil, err
		}
	}

	rows, err := s.refresh(ctx, in.Company, in.Language)
	if err != nil {
		return nil, err
	}
	return &WalletResult{Code: status.Success, WalletList: rows}, nil
}

// externalFailure wraps an external-client failure into a success envelope
// with Error set; nothing was persisted, so the unmutated list comes back.
func (s *WalletService) externalFailure(ctx context.Context, company int, language string) (*WalletResult, error) {
	rows, err := s.overview(ctx, company, language)
	if err != nil {
		return nil, err
	}
	return &WalletResult{Code: status.Success, Error: true, WalletList: rows}, nil
}

// Delete soft-deletes a SINGLE wallet. Error reflects whether exactly one
// row was touched; a miss is not an infrastructure failure.
func (s *WalletService) Delete(ctx context.Context, company int, address, language string) (*WalletResult, error) {
	var affected int64
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		affected, err = s.repo.SoftDeleteWallet(ctx, tx, company, address)
		if err != nil {
			return err
		}
		if affected == 1 {
			return s.appendEvent(ctx, tx, 0, model.EventWalletDeleted, map[string]interface{}{
				"company": company, "address": address,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.refresh(ctx, company, language)
	if err != nil {
		return nil, err
	}
	code := status.Success
	if affected != 1 {
		code = status.WalletNotFound
	}
	return &WalletResult{Code: code, Error: affected != 1, WalletList: rows}, nil
}

func (s *WalletService) appendEvent(ctx context.Context, tx *gorm.DB, aggregateID uint64, eventType string, payload map[string]interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.repo.CreateOutboxEvent(ctx, tx, &model.OutboxEvent{
		Aggregate:   "Wallet",
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     string(raw),
	})
}

// Repo exposes underlying repository (unit tests helper).
func (s *WalletService) Repo() repo.RepositoryInterface {
	return s.repo
}
