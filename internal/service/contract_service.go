package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gamelink-io/provision-service/internal/client"
	"github.com/gamelink-io/provision-service/internal/httpx"
	"github.com/gamelink-io/provision-service/internal/model"
	"github.com/gamelink-io/provision-service/internal/repo"
	"github.com/gamelink-io/provision-service/internal/status"
)

// ContractAPI is the slice of the multi-sig client the contract flows need.
type ContractAPI interface {
	ListContracts(ctx context.Context, multiAddress string, company, page int, orderBy, token string) ([]client.ContractItem, int, error)
	CreateContractTx(ctx context.Context, payload client.ContractPayload, appID, token string) (json.RawMessage, error)
	DeployContractTx(ctx context.Context, payload client.DeployPayload, appID, token string) (*client.DeployResult, error)
}

// TxResult is the outcome of the create and deploy flows. TxInfo carries the
// unsigned/deployed transaction on success and the raw upstream body on an
// external failure.
type TxResult struct {
	Code   status.Code
	Error  bool
	TxInfo json.RawMessage
}

// ContractListResult is the outcome of the merged contract listing.
type ContractListResult struct {
	Code          status.Code
	Error         bool
	WalletList    []model.WalletOverviewRow
	ContractCount int
	ContractList  []model.ContractOverviewRow
}

// ContractService orchestrates per-game contract creation and deployment.
type ContractService struct {
	repo repo.RepositoryInterface
	auth AuthClient
	ms   ContractAPI
	log  *zap.SugaredLogger
}

// NewContractService returns ContractService.
func NewContractService(r repo.RepositoryInterface, auth AuthClient, ms ContractAPI, logger *zap.SugaredLogger) *ContractService {
	return &ContractService{repo: r, auth: auth, ms: ms, log: logger}
}

// CreateContractInput is the create request after boundary validation.
type CreateContractInput struct {
	Company        int
	GameIndex      int
	MultiAddress   string
	ContractSymbol string
	ContractType   model.ContractType
	Language       string
}

// Create builds an unsigned contract-creation transaction for a game. The
// payload varies by contract kind: NFT carries a symbol, LOCK does not.
func (s *ContractService) Create(ctx context.Context, in CreateContractInput) (*TxResult, error) {
	info, err := s.repo.FindGameInfo(ctx, in.Company, in.GameIndex, in.Language)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return &TxResult{Code: status.GameNotFound, Error: true}, nil
		}
		return nil, err
	}

	name := info.AppID
	if info.GameName != nil {
		name = *info.GameName
	}
	payload := client.ContractPayload{
		ProviderAddress: info.ProviderAddress,
		MultiAddress:    in.MultiAddress,
	}
	switch in.ContractType {
	case model.ContractNFT:
		payload.Name = name + " NFT"
		payload.Symbol = in.ContractSymbol + "NFT"
		payload.Label = name + " NFT"
	case model.ContractLock:
		payload.Name = name + " LOCK"
		payload.Label = name + " LOCK"
	}

	token, err := s.auth.Token(ctx)
	if err != nil {
		s.log.Warnf("auth for contract create company=%d game=%d: %v", in.Company, in.GameIndex, err)
		return &TxResult{Code: status.ContractAPIError, Error: true, TxInfo: rawBody(err)}, nil
	}
	txInfo, err := s.ms.CreateContractTx(ctx, payload, info.AppID, token)
	if err != nil {
		s.log.Warnf("create contract tx company=%d game=%d: %v", in.Company, in.GameIndex, err)
		return &TxResult{Code: status.ContractAPIError, Error: true, TxInfo: rawBody(err)}, nil
	}
	return &TxResult{Code: status.Success, TxInfo: txInfo}, nil
}

// DeployContractInput is the deploy request after boundary validation.
type DeployContractInput struct {
	Company         int
	GameIndex       int
	RequestID       string
	MultiAddress    string
	ProviderAddress string
	SignedTx        string
	Language        string
}

// Deploy submits a signed deployment transaction and, on success, records
// the deployed address in the ledger. The window between the external deploy
// succeeding and the ledger write landing is kept to the single transaction
// below; the outbox event makes it observable downstream.
func (s *ContractService) Deploy(ctx context.Context, in DeployContractInput) (*TxResult, error) {
	info, err := s.repo.FindGameInfo(ctx, in.Company, in.GameIndex, in.Language)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return &TxResult{Code: status.GameNotFound, Error: true}, nil
		}
		return nil, err
	}

	token, err := s.auth.Token(ctx)
	if err != nil {
		s.log.Warnf("auth for deploy company=%d game=%d: %v", in.Company, in.GameIndex, err)
		return &TxResult{Code: status.ContractAPIError, Error: true, TxInfo: rawBody(err)}, nil
	}
	result, err := s.ms.DeployContractTx(ctx, client.DeployPayload{
		RequestID:    in.RequestID,
		MultiAddress: in.MultiAddress,
		SignedTx:     in.SignedTx,
	}, info.AppID, token)
	if err != nil {
		s.log.Warnf("deploy contract company=%d game=%d: %v", in.Company, in.GameIndex, err)
		return &TxResult{Code: status.ContractAPIError, Error: true, TxInfo: rawBody(err)}, nil
	}

	err = s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.UpdateDeployedContract(ctx, tx, in.Company, in.GameIndex, result.ContractAddress, result.ContractType); err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]interface{}{
			"company": in.Company, "gameIndex": in.GameIndex,
			"contractAddress": result.ContractAddress, "contractType": result.ContractType,
		})
		if err != nil {
			return err
		}
		return s.repo.CreateOutboxEvent(ctx, tx, &model.OutboxEvent{
			Aggregate:   "Contract",
			AggregateID: uint64(in.GameIndex),
			EventType:   model.EventContractDeployed,
			Payload:     string(payload),
		})
	})
	if err != nil {
		return nil, err
	}

	txInfo, _ := json.Marshal(result)
	return &TxResult{Code: status.Success, TxInfo: txInfo}, nil
}

// ContractInfoInput is the merged-listing request.
type ContractInfoInput struct {
	Company      int
	MultiAddress string
	Page         int
	OrderBy      string
	Language     string
}

// ContractInfo returns the wallet list plus the company's deployed
// contracts, merged with issue dates from the external contract list and
// sorted by NFT issue date. When several external rows match one ledger row
// the last match wins.
func (s *ContractService) ContractInfo(ctx context.Context, in ContractInfoInput) (*ContractListResult, error) {
	walletList, err := s.repo.WalletOverview(ctx, in.Company, in.Language)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.Token(ctx)
	if err != nil {
		s.log.Warnf("auth for contract list company=%d: %v", in.Company, err)
		return &ContractListResult{Code: status.ContractAPIError, Error: true, WalletList: walletList}, nil
	}
	items, total, err := s.ms.ListContracts(ctx, in.MultiAddress, in.Company, in.Page, in.OrderBy, token)
	if err != nil {
		s.log.Warnf("external contract list company=%d: %v", in.Company, err)
		return &ContractListResult{Code: status.ContractAPIError, Error: true, WalletList: walletList}, nil
	}

	appIDs := make([]string, 0, len(items))
	for _, it := range items {
		appIDs = append(appIDs, it.AppID)
	}
	ledger, err := s.repo.ListJoinedContracts(ctx, in.Company, in.Language, appIDs)
	if err != nil {
		return nil, err
	}

	mergeIssueDates(ledger, items)
	sortByNFTIssueDate(ledger, in.OrderBy)

	return &ContractListResult{
		Code:          status.Success,
		WalletList:    walletList,
		ContractCount: total,
		ContractList:  ledger,
	}, nil
}

// mergeIssueDates copies issue dates onto ledger rows from external rows
// matching on (multiAddress, appId, nftContract). Later matches overwrite
// earlier ones.
func mergeIssueDates(ledger []model.ContractOverviewRow, items []client.ContractItem) {
	for i := range ledger {
		row := &ledger[i]
		for _, it := range items {
			if row.MultiAddress == nil || *row.MultiAddress != it.MultiAddress {
				continue
			}
			if row.AppID != it.AppID {
				continue
			}
			if row.NFTContract == nil || *row.NFTContract != it.NFTContract {
				continue
			}
			row.NFTIssueDate = it.NFTIssueDate
			row.LockIssueDate = it.LockIssueDate
		}
	}
}

// sortByNFTIssueDate orders rows by NFT issue date, descending unless
// orderBy is ASC. Rows with a missing or unparseable date sort after every
// dated row in both directions.
func sortByNFTIssueDate(rows []model.ContractOverviewRow, orderBy string) {
	asc := orderBy == "ASC"
	sort.SliceStable(rows, func(i, j int) bool {
		ti, okI := parseIssueDate(rows[i].NFTIssueDate)
		tj, okJ := parseIssueDate(rows[j].NFTIssueDate)
		if okI != okJ {
			return okI
		}
		if !okI {
			return false
		}
		if asc {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
}

func parseIssueDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// rawBody extracts the upstream response body from an external failure so
// callers see what the external service said. Falls back to the error text.
func rawBody(err error) json.RawMessage {
	var he *httpx.Error
	if errors.As(err, &he) && he.Response != nil && len(he.Response.Body) > 0 && json.Valid(he.Response.Body) {
		return json.RawMessage(he.Response.Body)
	}
	raw, _ := json.Marshal(err.Error())
	return raw
}
