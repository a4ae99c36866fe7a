package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gamelink-io/provision-service/internal/client"
	"github.com/gamelink-io/provision-service/internal/config"
	"github.com/gamelink-io/provision-service/internal/logger"
	"github.com/gamelink-io/provision-service/internal/model"
	"github.com/gamelink-io/provision-service/internal/repo"
	"github.com/gamelink-io/provision-service/internal/service"
	httptransport "github.com/gamelink-io/provision-service/internal/transport/http"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.Wallet{}, &model.GameContract{}, &model.GameName{}, &model.OutboxEvent{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	// 6. repo, clients & services
	repository := repo.NewRepository(gdb, rdb, kw, cfg.Cache.OverviewTTL(), log)
	auth := client.NewAuthClient(cfg.External)
	multisig := client.NewMultiSigClient(cfg.External)
	wallets := service.NewWalletService(repository, auth, multisig, log)
	contracts := service.NewContractService(repository, auth, multisig, log)

	// 7. gin router
	router := httptransport.NewRouter(wallets, contracts, cfg.RateLimit, log)

	// 8. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("provision-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
