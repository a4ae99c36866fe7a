package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gamelink-io/provision-service/internal/model"
	"github.com/gamelink-io/provision-service/internal/service"
	"github.com/gamelink-io/provision-service/internal/status"
)

const defaultLanguage = "en"

// respond writes the envelope every endpoint shares.
func respond(c *gin.Context, httpStatus int, code status.Code, data interface{}) {
	c.JSON(httpStatus, gin.H{
		"statusCode": code,
		"message":    code.Message(),
		"data":       data,
	})
}

func badRequest(c *gin.Context) {
	respond(c, http.StatusBadRequest, status.ValidationError, nil)
}

func internalError(c *gin.Context) {
	respond(c, http.StatusInternalServerError, status.InternalError, nil)
}

func language(c *gin.Context, body string) string {
	if body != "" {
		return body
	}
	if q := c.Query("language"); q != "" {
		return q
	}
	return defaultLanguage
}

func RegisterHandlers(r *gin.Engine, wallets *service.WalletService, contracts *service.ContractService) {
	v1 := r.Group("/v1")
	{
		v1.GET("/wallet/list", walletListHandler(wallets))
		v1.POST("/wallet/create", walletCreateHandler(wallets))
		v1.POST("/wallet/delete", walletDeleteHandler(wallets))
		v1.GET("/contract/multi-contract-list", contractListHandler(contracts))
		v1.POST("/contract/create", contractCreateHandler(contracts))
		v1.POST("/contract/deploy", contractDeployHandler(contracts))
	}
}

func walletListHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		company, err := strconv.Atoi(c.Query("company"))
		if err != nil {
			badRequest(c)
			return
		}
		res, err := svc.List(c, company, language(c, ""))
		if err != nil {
			internalError(c)
			return
		}
		respond(c, http.StatusOK, res.Code, gin.H{"walletList": res.WalletList})
	}
}

type walletCreateReq struct {
	Company         int    `json:"company" binding:"required"`
	Address         string `json:"address" binding:"required"`
	PublicKey       string `json:"publicKey"`
	WalletType      string `json:"walletType" binding:"required"`
	ProviderAddress string `json:"providerAddress"`
	Language        string `json:"language"`
}

func walletCreateHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req walletCreateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		walletType := model.WalletType(req.WalletType)
		if !walletType.Valid() {
			badRequest(c)
			return
		}
		if walletType == model.WalletMulti && req.ProviderAddress == "" {
			badRequest(c)
			return
		}
		res, err := svc.Create(c, service.CreateWalletInput{
			Company:         req.Company,
			Address:         req.Address,
			PublicKey:       req.PublicKey,
			WalletType:      walletType,
			ProviderAddress: req.ProviderAddress,
			Language:        language(c, req.Language),
		})
		if err != nil {
			internalError(c)
			return
		}
		respond(c, http.StatusOK, res.Code, gin.H{"error": res.Error, "walletList": res.WalletList})
	}
}

type walletDeleteReq struct {
	Company  int    `json:"company" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Language string `json:"language"`
}

func walletDeleteHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req walletDeleteReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		res, err := svc.Delete(c, req.Company, req.Address, language(c, req.Language))
		if err != nil {
			internalError(c)
			return
		}
		respond(c, http.StatusOK, res.Code, gin.H{"error": res.Error, "walletList": res.WalletList})
	}
}

func contractListHandler(svc *service.ContractService) gin.HandlerFunc {
	return func(c *gin.Context) {
		company, err := strconv.Atoi(c.Query("company"))
		if err != nil {
			badRequest(c)
			return
		}
		multiAddress := c.Query("multiAddress")
		if multiAddress == "" {
			badRequest(c)
			return
		}
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil {
			badRequest(c)
			return
		}
		res, err := svc.ContractInfo(c, service.ContractInfoInput{
			Company:      company,
			MultiAddress: multiAddress,
			Page:         page,
			OrderBy:      c.DefaultQuery("orderBy", "DESC"),
			Language:     language(c, ""),
		})
		if err != nil {
			internalError(c)
			return
		}
		respond(c, http.StatusOK, res.Code, gin.H{
			"error":         res.Error,
			"walletList":    res.WalletList,
			"contractCount": res.ContractCount,
			"contractList":  res.ContractList,
		})
	}
}

type contractCreateReq struct {
	Company        int    `json:"company" binding:"required"`
	GameIndex      int    `json:"gameIndex" binding:"required"`
	MultiAddress   string `json:"multiAddress" binding:"required"`
	ContractSymbol string `json:"contractSymbol"`
	ContractType   string `json:"contractType" binding:"required"`
	Language       string `json:"language"`
}

func contractCreateHandler(svc *service.ContractService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contractCreateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		contractType := model.ContractType(req.ContractType)
		if !contractType.Valid() {
			badRequest(c)
			return
		}
		res, err := svc.Create(c, service.CreateContractInput{
			Company:        req.Company,
			GameIndex:      req.GameIndex,
			MultiAddress:   req.MultiAddress,
			ContractSymbol: req.ContractSymbol,
			ContractType:   contractType,
			Language:       language(c, req.Language),
		})
		if err != nil {
			internalError(c)
			return
		}
		respond(c, http.StatusOK, res.Code, gin.H{"error": res.Error, "txInfo": res.TxInfo})
	}
}

type contractDeployReq struct {
	Company         int    `json:"company" binding:"required"`
	GameIndex       int    `json:"gameIndex" binding:"required"`
	RequestID       string `json:"requestId" binding:"required"`
	MultiAddress    string `json:"multiAddress" binding:"required"`
	ProviderAddress string `json:"providerAddress"`
	SignedTx        string `json:"signedTx" binding:"required"`
	Language        string `json:"language"`
}

func contractDeployHandler(svc *service.ContractService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contractDeployReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		res, err := svc.Deploy(c, service.DeployContractInput{
			Company:         req.Company,
			GameIndex:       req.GameIndex,
			RequestID:       req.RequestID,
			MultiAddress:    req.MultiAddress,
			ProviderAddress: req.ProviderAddress,
			SignedTx:        req.SignedTx,
			Language:        language(c, req.Language),
		})
		if err != nil {
			internalError(c)
			return
		}
		respond(c, http.StatusOK, res.Code, gin.H{"error": res.Error, "txInfo": res.TxInfo})
	}
}
