// Package handlers exposes the orchestration core over HTTP.
package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/orchestrator"
)

// VaultHandler drives the four batched pipelines and the timelock calls.
type VaultHandler struct {
	orch   *orchestrator.Orchestrator
	logger *logrus.Logger
}

func NewVaultHandler(orch *orchestrator.Orchestrator, logger *logrus.Logger) *VaultHandler {
	return &VaultHandler{orch: orch, logger: logger}
}

type vaultRequest struct {
	Token     string   `json:"token" binding:"required"`
	Fungible  bool     `json:"fungible"`
	Amount    string   `json:"amount"`
	TokenID   string   `json:"tokenId"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Providers []string `json:"providers"`
}

type lockRequest struct {
	Token     string   `json:"token" binding:"required"`
	Fungible  bool     `json:"fungible"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Providers []string `json:"providers"`
}

type unlockRequest struct {
	Token        string   `json:"token" binding:"required"`
	Fungible     bool     `json:"fungible"`
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	OTPSecretOne string   `json:"otpSecretOne"`
	OTPSecretTwo string   `json:"otpSecretTwo"`
	Providers    []string `json:"providers"`
}

type unvaultRequest struct {
	Token        string   `json:"token" binding:"required"`
	Fungible     bool     `json:"fungible"`
	Amount       string   `json:"amount" binding:"required"`
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	OTPSecretOne string   `json:"otpSecretOne"`
	OTPSecretTwo string   `json:"otpSecretTwo"`
	Providers    []string `json:"providers"`
}

type timelockRequest struct {
	Token string `json:"token" binding:"required"`
	Until string `json:"until" binding:"required"`
}

func parseAddress(c *gin.Context, raw, field string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "ValidationError",
			"message": field + " is not a valid address",
		})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func parseAmount(c *gin.Context, raw, field string) (*big.Int, bool) {
	if raw == "" {
		return big.NewInt(0), true
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "ValidationError",
			"message": field + " is not a valid decimal integer",
		})
		return nil, false
	}
	return n, true
}

func parseProviders(c *gin.Context, raw []string) ([]common.Address, bool) {
	providers := make([]common.Address, 0, len(raw))
	for _, p := range raw {
		addr, ok := parseAddress(c, p, "provider")
		if !ok {
			return nil, false
		}
		providers = append(providers, addr)
	}
	return providers, true
}

// respondOperationError maps pipeline failures onto HTTP statuses. A wrong
// password is a 401 business result; everything else surfaces as a 502 with
// the underlying error unmodified.
func respondOperationError(c *gin.Context, err error) {
	if errors.Is(err, mfa.ErrPasswordIncorrect) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Password is incorrect",
			"code":    "PASSWORD_INCORRECT",
		})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{
		"success":   false,
		"error":     "OperationFailed",
		"message":   err.Error(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Vault handles POST /api/vault.
func (h *VaultHandler) Vault(c *gin.Context) {
	var req vaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}
	token, ok := parseAddress(c, req.Token, "token")
	if !ok {
		return
	}
	amount, ok := parseAmount(c, req.Amount, "amount")
	if !ok {
		return
	}
	tokenID, ok := parseAmount(c, req.TokenID, "tokenId")
	if !ok {
		return
	}
	providers, ok := parseProviders(c, req.Providers)
	if !ok {
		return
	}

	result, err := h.orch.VaultAndSetMFA(c.Request.Context(), orchestrator.VaultRequest{
		Token:     token,
		Fungible:  req.Fungible,
		Amount:    amount,
		TokenID:   tokenID,
		Username:  req.Username,
		Password:  req.Password,
		Providers: providers,
	})
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// Lock handles POST /api/lock.
func (h *VaultHandler) Lock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}
	token, ok := parseAddress(c, req.Token, "token")
	if !ok {
		return
	}
	providers, ok := parseProviders(c, req.Providers)
	if !ok {
		return
	}

	result, err := h.orch.LockAndSetMFA(c.Request.Context(), orchestrator.LockRequest{
		Token:     token,
		Fungible:  req.Fungible,
		Username:  req.Username,
		Password:  req.Password,
		Providers: providers,
	})
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// Unlock handles POST /api/unlock.
func (h *VaultHandler) Unlock(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}
	token, ok := parseAddress(c, req.Token, "token")
	if !ok {
		return
	}
	providers, ok := parseProviders(c, req.Providers)
	if !ok {
		return
	}

	result, err := h.orch.UnlockAndVerifyMFA(c.Request.Context(), orchestrator.UnlockRequest{
		Token:        token,
		Fungible:     req.Fungible,
		Username:     req.Username,
		Password:     req.Password,
		OTPSecretOne: req.OTPSecretOne,
		OTPSecretTwo: req.OTPSecretTwo,
		Providers:    providers,
	})
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// Unvault handles POST /api/unvault.
func (h *VaultHandler) Unvault(c *gin.Context) {
	var req unvaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}
	token, ok := parseAddress(c, req.Token, "token")
	if !ok {
		return
	}
	amount, ok := parseAmount(c, req.Amount, "amount")
	if !ok {
		return
	}
	providers, ok := parseProviders(c, req.Providers)
	if !ok {
		return
	}

	result, err := h.orch.UnvaultAndVerifyMFA(c.Request.Context(), orchestrator.UnvaultRequest{
		Token:        token,
		Fungible:     req.Fungible,
		Amount:       amount,
		Username:     req.Username,
		Password:     req.Password,
		OTPSecretOne: req.OTPSecretOne,
		OTPSecretTwo: req.OTPSecretTwo,
		Providers:    providers,
	})
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// Timelock handles POST /api/timelock.
func (h *VaultHandler) Timelock(c *gin.Context) {
	var req timelockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}
	token, ok := parseAddress(c, req.Token, "token")
	if !ok {
		return
	}

	result, err := h.orch.TimelockTransfers(c.Request.Context(), token, req.Until)
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// Restrictions handles GET /api/timelock/:token.
func (h *VaultHandler) Restrictions(c *gin.Context) {
	token, ok := parseAddress(c, c.Param("token"), "token")
	if !ok {
		return
	}
	restrictions, err := h.orch.TransferRestrictions(c.Request.Context(), token)
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "restrictions": restrictions})
}
