package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gamelink-io/provision-service/internal/logger"
	"github.com/gamelink-io/provision-service/internal/model"
	"github.com/gamelink-io/provision-service/internal/status"
)

var dbSeq int

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	dbSeq++
	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", dbSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Wallet{}, &model.GameContract{}, &model.GameName{}, &model.OutboxEvent{}))
	return NewRepository(db, nil, &kafka.Writer{}, time.Minute, must(logger.NewLogger("info"))), db
}

func must(l *zap.SugaredLogger, err error) *zap.SugaredLogger {
	if err != nil {
		panic(err)
	}
	return l
}

func strPtr(s string) *string { return &s }

func TestSoftDeleteThenReactivate_KeepsSameRow(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	w := &model.Wallet{Company: 1, Address: "addr-A", WalletType: model.WalletSingle}
	assert.NoError(t, r.SaveWallet(ctx, db, w))
	originalID := w.ID

	affected, err := r.SoftDeleteWallet(ctx, db, 1, "addr-A")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// deleted rows stay findable, flagged
	found, err := r.FindWallet(ctx, 1, "addr-A", model.WalletSingle)
	assert.NoError(t, err)
	assert.True(t, found.Deleted)

	affected, err = r.ReactivateWallet(ctx, db, 1, "addr-A")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	found, err = r.FindWallet(ctx, 1, "addr-A", model.WalletSingle)
	assert.NoError(t, err)
	assert.False(t, found.Deleted)
	assert.Equal(t, originalID, found.ID)
}

func TestSoftDelete_MissReturnsZeroAffected(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	affected, err := r.SoftDeleteWallet(ctx, db, 1, "no-such-address")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	_, err = r.FindWallet(ctx, 1, "no-such-address", model.WalletSingle)
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestListWallets_FiltersAndOrders(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	seed := []model.Wallet{
		{Company: 1, Address: "addr-B", WalletType: model.WalletSingle},
		{Company: 1, Address: "addr-A", WalletType: model.WalletSingle},
		{Company: 1, Address: "multi-X", WalletType: model.WalletMulti, ProviderAddress: "addr-A"},
		{Company: 1, Address: "addr-gone", WalletType: model.WalletSingle, Deleted: true},
		{Company: 2, Address: "addr-other", WalletType: model.WalletSingle},
	}
	for i := range seed {
		assert.NoError(t, db.Create(&seed[i]).Error)
	}

	ws, err := r.ListWallets(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, ws, 2)
	assert.Equal(t, "addr-B", ws[0].Address)
	assert.Equal(t, "addr-A", ws[1].Address)
}

func TestUpdateDeployedContract_MutatesExactlyOneColumn(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	gc := model.GameContract{Company: 1, GameIndex: 7, AppID: "app-7", ProviderAddress: "addr-A", LockContract: strPtr("0xLOCK")}
	assert.NoError(t, db.Create(&gc).Error)

	affected, err := r.UpdateDeployedContract(ctx, db, 1, 7, "0xNFT", model.ContractNFT)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var got model.GameContract
	assert.NoError(t, db.First(&got, gc.ID).Error)
	assert.Equal(t, "0xNFT", *got.NFTContract)
	assert.Equal(t, "0xLOCK", *got.LockContract)

	// deployed addresses are never overwritten
	affected, err = r.UpdateDeployedContract(ctx, db, 1, 7, "0xNFT2", model.ContractNFT)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestListJoinedGameNames_LeftJoinAndScope(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	assert.NoError(t, db.Create(&model.GameContract{Company: 1, GameIndex: 1, AppID: "app-1", ProviderAddress: "addr-A"}).Error)
	assert.NoError(t, db.Create(&model.GameContract{Company: 1, GameIndex: 2, AppID: "app-2", ProviderAddress: "addr-A"}).Error)
	assert.NoError(t, db.Create(&model.GameContract{Company: 2, GameIndex: 1, AppID: "app-x", ProviderAddress: "addr-Z"}).Error)
	assert.NoError(t, db.Create(&model.GameName{Company: 1, GameIndex: 1, Language: "en", Name: "Sky Raiders"}).Error)
	assert.NoError(t, db.Create(&model.GameName{Company: 1, GameIndex: 1, Language: "ko", Name: "스카이 레이더스"}).Error)

	rows, err := r.ListJoinedGameNames(ctx, 1, "en")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "Sky Raiders", *rows[0].GameName)
	// game without a localized title is kept with a NULL name
	assert.Nil(t, rows[1].GameName)
}

func TestListJoinedContracts_OnlyFullyDeployed(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	assert.NoError(t, db.Create(&model.Wallet{Company: 1, Address: "multi-X", WalletType: model.WalletMulti, ProviderAddress: "addr-A"}).Error)
	assert.NoError(t, db.Create(&model.GameContract{
		Company: 1, GameIndex: 1, AppID: "app-1", ProviderAddress: "addr-A",
		NFTContract: strPtr("0xN1"), LockContract: strPtr("0xL1"),
	}).Error)
	assert.NoError(t, db.Create(&model.GameContract{
		Company: 1, GameIndex: 2, AppID: "app-2", ProviderAddress: "addr-A",
		NFTContract: strPtr("0xN2"),
	}).Error)
	assert.NoError(t, db.Create(&model.GameContract{
		Company: 2, GameIndex: 1, AppID: "app-x", ProviderAddress: "addr-Z",
		NFTContract: strPtr("0xN"), LockContract: strPtr("0xL"),
	}).Error)

	rows, err := r.ListJoinedContracts(ctx, 1, "en", nil)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "app-1", rows[0].AppID)
	assert.Equal(t, "multi-X", *rows[0].MultiAddress)

	rows, err = r.ListJoinedContracts(ctx, 1, "en", []string{"no-such-app"})
	assert.NoError(t, err)
	assert.Len(t, rows, 0)
}

func TestFindGameInfo(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	assert.NoError(t, db.Create(&model.Wallet{Company: 1, Address: "addr-A", WalletType: model.WalletSingle}).Error)
	assert.NoError(t, db.Create(&model.GameContract{Company: 1, GameIndex: 3, AppID: "app-3", ProviderAddress: "addr-A"}).Error)
	assert.NoError(t, db.Create(&model.GameName{Company: 1, GameIndex: 3, Language: "en", Name: "Dungeon Run"}).Error)

	info, err := r.FindGameInfo(ctx, 1, 3, "en")
	assert.NoError(t, err)
	assert.Equal(t, "app-3", info.AppID)
	assert.Equal(t, "Dungeon Run", *info.GameName)
	assert.Equal(t, "addr-A", info.ProviderAddress)
	assert.Equal(t, "addr-A", *info.SingleAddress)

	_, err = r.FindGameInfo(ctx, 1, 99, "en")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestWalletOverview_AttachesMultiAndGames(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	assert.NoError(t, db.Create(&model.Wallet{Company: 1, Address: "addr-A", WalletType: model.WalletSingle}).Error)
	assert.NoError(t, db.Create(&model.Wallet{Company: 1, Address: "addr-B", WalletType: model.WalletSingle}).Error)
	assert.NoError(t, db.Create(&model.Wallet{Company: 1, Address: "multi-X", WalletType: model.WalletMulti, ProviderAddress: "addr-A"}).Error)
	assert.NoError(t, db.Create(&model.GameContract{Company: 1, GameIndex: 1, AppID: "app-1", ProviderAddress: "addr-A", NFTContract: strPtr("0xN1")}).Error)
	assert.NoError(t, db.Create(&model.GameName{Company: 1, GameIndex: 1, Language: "en", Name: "Sky Raiders"}).Error)
	// other company's rows must never bleed in
	assert.NoError(t, db.Create(&model.Wallet{Company: 2, Address: "addr-A", WalletType: model.WalletSingle}).Error)
	assert.NoError(t, db.Create(&model.GameContract{Company: 2, GameIndex: 1, AppID: "app-x", ProviderAddress: "addr-A"}).Error)

	rows, err := r.WalletOverview(ctx, 1, "en")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.Equal(t, "addr-A", rows[0].SingleAddress)
	assert.Equal(t, "multi-X", *rows[0].MultiAddress)
	assert.Len(t, rows[0].GameList, 1)
	assert.Equal(t, "app-1", rows[0].GameList[0].AppID)
	assert.Equal(t, "Sky Raiders", *rows[0].GameList[0].GameName)
	assert.Equal(t, "0xN1", *rows[0].GameList[0].NFTContract)

	// no multi wallet, no games: empty sublists, row retained
	assert.Equal(t, "addr-B", rows[1].SingleAddress)
	assert.Nil(t, rows[1].MultiAddress)
	assert.Empty(t, rows[1].GameList)
}

func TestWalletOverview_DanglingProviderYieldsEmptySublists(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	assert.NoError(t, db.Create(&model.Wallet{Company: 1, Address: "addr-A", WalletType: model.WalletSingle}).Error)
	// provider addresses pointing at no live SINGLE wallet
	assert.NoError(t, db.Create(&model.Wallet{Company: 1, Address: "multi-orphan", WalletType: model.WalletMulti, ProviderAddress: "addr-ghost"}).Error)
	assert.NoError(t, db.Create(&model.GameContract{Company: 1, GameIndex: 1, AppID: "app-1", ProviderAddress: "addr-phantom", NFTContract: strPtr("0xN1"), LockContract: strPtr("0xL1")}).Error)

	rows, err := r.WalletOverview(ctx, 1, "en")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "addr-A", rows[0].SingleAddress)
	assert.Nil(t, rows[0].MultiAddress)
	assert.Empty(t, rows[0].GameList)

	// the dangling rows join to no wallet on the contract list either
	contracts, err := r.ListJoinedContracts(ctx, 1, "en", nil)
	assert.NoError(t, err)
	assert.Len(t, contracts, 1)
	assert.Nil(t, contracts[0].MultiAddress)
}

func TestOverviewCache_MutationDropsAllLanguageVariants(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	r := NewRepository(nil, rdb, &kafka.Writer{}, time.Minute, must(logger.NewLogger("info")))
	ctx := context.Background()

	rows := []model.WalletOverviewRow{{Company: 1, SingleAddress: "addr-A", GameList: []model.GameSummary{}}}
	raw, err := json.Marshal(rows)
	assert.NoError(t, err)

	mock.ExpectSAdd("overview-langs:1", "en").SetVal(1)
	mock.ExpectExpire("overview-langs:1", time.Minute).SetVal(true)
	mock.ExpectSet("overview:1:en", raw, time.Minute).SetVal("OK")
	assert.NoError(t, r.CacheOverview(ctx, 1, "en", rows))

	mock.ExpectSAdd("overview-langs:1", "ko").SetVal(1)
	mock.ExpectExpire("overview-langs:1", time.Minute).SetVal(true)
	mock.ExpectSet("overview:1:ko", raw, time.Minute).SetVal("OK")
	assert.NoError(t, r.CacheOverview(ctx, 1, "ko", rows))

	// a mutation in one language drops every cached variant for the company
	mock.ExpectSMembers("overview-langs:1").SetVal([]string{"en", "ko"})
	mock.ExpectDel("overview:1:en", "overview:1:ko", "overview-langs:1").SetVal(3)
	assert.NoError(t, r.InvalidateOverview(ctx, 1))

	assert.NoError(t, mock.ExpectationsWereMet())
}
