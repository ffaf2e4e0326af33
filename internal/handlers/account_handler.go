package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/recovery"
)

// AccountHandler serves the username/password account flows and recovery.
type AccountHandler struct {
	flow   *recovery.Flow
	logger *logrus.Logger
}

func NewAccountHandler(flow *recovery.Flow, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{flow: flow, logger: logger}
}

type setUsernameRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

type checkCredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

type recoverRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SetUsername handles POST /api/account/username.
func (h *AccountHandler) SetUsername(c *gin.Context) {
	var req setUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}

	if err := h.flow.SetUsername(c.Request.Context(), req.Username, req.Password); err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "username": req.Username})
}

// UsernameExists handles GET /api/account/username/:username/exists.
func (h *AccountHandler) UsernameExists(c *gin.Context) {
	exists, err := h.flow.CheckUsernameExists(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "exists": exists})
}

// CheckCredentials handles POST /api/account/check. The decision classifies
// the on-chain mappings; INVALID_STATE means they disagree with each other
// and no automated recovery exists.
func (h *AccountHandler) CheckCredentials(c *gin.Context) {
	var req checkCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}

	decision, err := h.flow.CheckUsernameAndPassword(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondOperationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "decision": decision})
}

// Recover handles POST /api/recovery.
func (h *AccountHandler) Recover(c *gin.Context) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ValidationError", "message": err.Error()})
		return
	}

	result, err := h.flow.Recover(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, mfa.ErrPasswordIncorrect) {
			respondOperationError(c, err)
			return
		}
		h.logger.WithError(err).WithField("username", req.Username).Warn("recovery rejected")
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "RecoveryRejected",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"result":                 result,
		"settlementDelaySeconds": int(result.SettlementDelay.Seconds()),
	})
}
