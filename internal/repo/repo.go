package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gamelink-io/provision-service/internal/model"
	"github.com/gamelink-io/provision-service/internal/status"
)

// RepositoryInterface restricts Repo methods so services can be unit-tested
// against a narrow surface.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	FindWallet(ctx context.Context, company int, address string, walletType model.WalletType) (*model.Wallet, error)
	ListWallets(ctx context.Context, company int) ([]model.Wallet, error)
	ListMultiWallets(ctx context.Context, company int) ([]model.Wallet, error)
	SaveWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error
	SoftDeleteWallet(ctx context.Context, tx *gorm.DB, company int, address string) (int64, error)
	ReactivateWallet(ctx context.Context, tx *gorm.DB, company int, address string) (int64, error)

	ListJoinedGameNames(ctx context.Context, company int, language string) ([]model.JoinedGameName, error)
	ListJoinedContracts(ctx context.Context, company int, language string, appIDs []string) ([]model.ContractOverviewRow, error)
	FindGameInfo(ctx context.Context, company, gameIndex int, language string) (*model.GameInfo, error)
	UpdateDeployedContract(ctx context.Context, tx *gorm.DB, company, gameIndex int, contractAddress string, contractType model.ContractType) (int64, error)

	WalletOverview(ctx context.Context, company int, language string) ([]model.WalletOverviewRow, error)

	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error

	CacheOverview(ctx context.Context, company int, language string, rows []model.WalletOverviewRow) error
	GetCachedOverview(ctx context.Context, company int, language string) ([]model.WalletOverviewRow, error)
	InvalidateOverview(ctx context.Context, company int) error
}

// Repository implements RepositoryInterface on postgres + redis + kafka.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// NewRepository constructs repo. ttl bounds the overview cache lifetime.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, ttl time.Duration, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, ttl: ttl, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

func storeErr(op string, err error) error {
	return fmt.Errorf("store %s: %w", op, err)
}

// FindWallet looks up one wallet row regardless of its deleted flag.
// Absence is status.ErrNotFound, never a wrapped store error.
func (r *Repository) FindWallet(ctx context.Context, company int, address string, walletType model.WalletType) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.WithContext(ctx).
		Where("company = ? AND address = ? AND wallet_type = ?", company, address, walletType).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find wallet", err)
	}
	return &w, nil
}

// ListWallets returns the live SINGLE wallets of a company, oldest first.
func (r *Repository) ListWallets(ctx context.Context, company int) ([]model.Wallet, error) {
	var ws []model.Wallet
	err := r.db.WithContext(ctx).
		Where("company = ? AND wallet_type = ? AND deleted = ?", company, model.WalletSingle, false).
		Order("id asc").
		Find(&ws).Error
	if err != nil {
		return nil, storeErr("list wallets", err)
	}
	return ws, nil
}

// ListMultiWallets returns the live MULTI wallets of a company, oldest first.
func (r *Repository) ListMultiWallets(ctx context.Context, company int) ([]model.Wallet, error) {
	var ws []model.Wallet
	err := r.db.WithContext(ctx).
		Where("company = ? AND wallet_type = ? AND deleted = ?", company, model.WalletMulti, false).
		Order("id asc").
		Find(&ws).Error
	if err != nil {
		return nil, storeErr("list multi wallets", err)
	}
	return ws, nil
}

// SaveWallet inserts or updates depending on whether ID is set.
func (r *Repository) SaveWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	if err := tx.WithContext(ctx).Save(w).Error; err != nil {
		return storeErr("save wallet", err)
	}
	return nil
}

// SoftDeleteWallet flips the deleted flag on a SINGLE wallet.
func (r *Repository) SoftDeleteWallet(ctx context.Context, tx *gorm.DB, company int, address string) (int64, error) {
	res := tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("company = ? AND address = ? AND wallet_type = ? AND deleted = ?",
			company, address, model.WalletSingle, false).
		Update("deleted", true)
	if res.Error != nil {
		return 0, storeErr("soft delete wallet", res.Error)
	}
	return res.RowsAffected, nil
}

// ReactivateWallet flips the deleted flag back on a soft-deleted wallet.
func (r *Repository) ReactivateWallet(ctx context.Context, tx *gorm.DB, company int, address string) (int64, error) {
	res := tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("company = ? AND address = ? AND deleted = ?", company, address, true).
		Update("deleted", false)
	if res.Error != nil {
		return 0, storeErr("reactivate wallet", res.Error)
	}
	return res.RowsAffected, nil
}

// ListJoinedGameNames lists every registered game of a company with its
// provider address and localized title. Games without a title row are kept
// with a NULL name. Ordered by ledger id ascending.
func (r *Repository) ListJoinedGameNames(ctx context.Context, company int, language string) ([]model.JoinedGameName, error) {
	var rows []model.JoinedGameName
	err := r.db.WithContext(ctx).
		Table("game_contract AS gc").
		Select("gc.provider_address AS address, gc.game_index, gn.name AS game_name").
		Joins("LEFT JOIN game_name gn ON gn.company = gc.company AND gn.game_index = gc.game_index AND gn.language = ?", language).
		Where("gc.company = ?", company).
		Order("gc.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("list joined game names", err)
	}
	return rows, nil
}

// ListJoinedContracts lists the fully-deployed ledger rows of a company,
// joined to their multi-sig wallet by provider address and to the localized
// title. A non-empty appIDs slice restricts the result to those app ids.
func (r *Repository) ListJoinedContracts(ctx context.Context, company int, language string, appIDs []string) ([]model.ContractOverviewRow, error) {
	q := r.db.WithContext(ctx).
		Table("game_contract AS gc").
		Select("gc.company, gc.game_index, gc.app_id, gn.name AS game_name, w.address AS multi_address, gc.nft_contract, gc.lock_contract").
		Joins("LEFT JOIN wallet w ON w.company = gc.company AND w.provider_address = gc.provider_address AND w.wallet_type = ? AND w.deleted = ?",
			model.WalletMulti, false).
		Joins("LEFT JOIN game_name gn ON gn.company = gc.company AND gn.game_index = gc.game_index AND gn.language = ?", language).
		Where("gc.company = ? AND gc.nft_contract IS NOT NULL AND gc.lock_contract IS NOT NULL", company)
	if len(appIDs) > 0 {
		q = q.Where("gc.app_id IN ?", appIDs)
	}
	var rows []model.ContractOverviewRow
	if err := q.Order("gc.id asc").Scan(&rows).Error; err != nil {
		return nil, storeErr("list joined contracts", err)
	}
	return rows, nil
}

// FindGameInfo fetches the ledger state of one game plus the provider's
// live SINGLE wallet address, when one is registered.
func (r *Repository) FindGameInfo(ctx context.Context, company, gameIndex int, language string) (*model.GameInfo, error) {
	var info model.GameInfo
	res := r.db.WithContext(ctx).
		Table("game_contract AS gc").
		Select("gc.app_id, gn.name AS game_name, gc.nft_contract, gc.lock_contract, gc.provider_address, w.address AS single_address").
		Joins("LEFT JOIN game_name gn ON gn.company = gc.company AND gn.game_index = gc.game_index AND gn.language = ?", language).
		Joins("LEFT JOIN wallet w ON w.company = gc.company AND w.address = gc.provider_address AND w.wallet_type = ? AND w.deleted = ?",
			model.WalletSingle, false).
		Where("gc.company = ? AND gc.game_index = ?", company, gameIndex).
		Limit(1).
		Scan(&info)
	if res.Error != nil {
		return nil, storeErr("find game info", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, status.ErrNotFound
	}
	return &info, nil
}

// UpdateDeployedContract sets exactly one of nft_contract / lock_contract,
// leaving the other untouched. Deployed addresses are never overwritten.
func (r *Repository) UpdateDeployedContract(ctx context.Context, tx *gorm.DB, company, gameIndex int, contractAddress string, contractType model.ContractType) (int64, error) {
	column := "nft_contract"
	if contractType == model.ContractLock {
		column = "lock_contract"
	}
	res := tx.WithContext(ctx).Model(&model.GameContract{}).
		Where("company = ? AND game_index = ? AND "+column+" IS NULL", company, gameIndex).
		Update(column, contractAddress)
	if res.Error != nil {
		return 0, storeErr("update deployed contract", res.Error)
	}
	return res.RowsAffected, nil
}

// WalletOverview assembles the composite wallet list: every live SINGLE
// wallet of the company with its MULTI address (matched by provider address)
// and its games' localized names and contract state. Company scoping is
// applied on every leg of the join.
func (r *Repository) WalletOverview(ctx context.Context, company int, language string) ([]model.WalletOverviewRow, error) {
	singles, err := r.ListWallets(ctx, company)
	if err != nil {
		return nil, err
	}
	multis, err := r.ListMultiWallets(ctx, company)
	if err != nil {
		return nil, err
	}
	multiByProvider := make(map[string]string, len(multis))
	for _, m := range multis {
		multiByProvider[m.ProviderAddress] = m.Address
	}

	names, err := r.ListJoinedGameNames(ctx, company, language)
	if err != nil {
		return nil, err
	}
	var ledger []model.GameContract
	err = r.db.WithContext(ctx).
		Where("company = ?", company).
		Order("id asc").
		Find(&ledger).Error
	if err != nil {
		return nil, storeErr("overview ledger", err)
	}
	ledgerByIndex := make(map[int]model.GameContract, len(ledger))
	for _, gc := range ledger {
		ledgerByIndex[gc.GameIndex] = gc
	}
	gamesByProvider := make(map[string][]model.GameSummary)
	for _, n := range names {
		gc := ledgerByIndex[n.GameIndex]
		gamesByProvider[n.Address] = append(gamesByProvider[n.Address], model.GameSummary{
			GameIndex:    n.GameIndex,
			GameName:     n.GameName,
			AppID:        gc.AppID,
			NFTContract:  gc.NFTContract,
			LockContract: gc.LockContract,
		})
	}

	rows := make([]model.WalletOverviewRow, 0, len(singles))
	for _, s := range singles {
		row := model.WalletOverviewRow{
			Company:       s.Company,
			SingleAddress: s.Address,
			GameList:      []model.GameSummary{},
		}
		if multi, ok := multiByProvider[s.Address]; ok {
			row.MultiAddress = &multi
		}
		if gl, ok := gamesByProvider[s.Address]; ok {
			row.GameList = gl
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	if err := tx.WithContext(ctx).Create(evt).Error; err != nil {
		return storeErr("create outbox event", err)
	}
	return nil
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = ?", false).Order("created_at").Limit(limit).Find(&evts).Error
	if err != nil {
		return nil, storeErr("poll outbox", err)
	}
	return evts, nil
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
	if err != nil {
		return storeErr("mark outbox processed", err)
	}
	return nil
}

// PublishEvent sends to Kafka.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", evt.Aggregate, evt.AggregateID)),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

func overviewKey(company int, language string) string {
	return fmt.Sprintf("overview:%d:%s", company, language)
}

func overviewLangsKey(company int) string {
	return fmt.Sprintf("overview-langs:%d", company)
}

// CacheOverview stores the assembled wallet list under a TTL and remembers
// the language variant in a per-company set, so a mutation can drop every
// cached variant at once. The set outlives the newest entry: its expiry is
// refreshed on every write.
func (r *Repository) CacheOverview(ctx context.Context, company int, language string, rows []model.WalletOverviewRow) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if err := r.rdb.SAdd(ctx, overviewLangsKey(company), language).Err(); err != nil {
		return err
	}
	if err := r.rdb.Expire(ctx, overviewLangsKey(company), r.ttl).Err(); err != nil {
		return err
	}
	return r.rdb.Set(ctx, overviewKey(company, language), raw, r.ttl).Err()
}

// GetCachedOverview reads a cached wallet list; redis.Nil on miss.
func (r *Repository) GetCachedOverview(ctx context.Context, company int, language string) ([]model.WalletOverviewRow, error) {
	raw, err := r.rdb.Get(ctx, overviewKey(company, language)).Bytes()
	if err != nil {
		return nil, err
	}
	var rows []model.WalletOverviewRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InvalidateOverview drops every cached language variant of the company's
// wallet list after a mutation.
func (r *Repository) InvalidateOverview(ctx context.Context, company int) error {
	langs, err := r.rdb.SMembers(ctx, overviewLangsKey(company)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(langs)+1)
	for _, lang := range langs {
		keys = append(keys, overviewKey(company, lang))
	}
	keys = append(keys, overviewLangsKey(company))
	return r.rdb.Del(ctx, keys...).Err()
}
