package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/gamelink-io/provision-service/http"
	"github.com/gamelink-io/provision-service/internal/config"
	"github.com/gamelink-io/provision-service/internal/service"
)

func NewRouter(wallets *service.WalletService, contracts *service.ContractService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.LoggingMiddleware(log))
	r.Use(mw.RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, wallets, contracts)
	return r
}
