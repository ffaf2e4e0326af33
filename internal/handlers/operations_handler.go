package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vaultblockmagic/vault/internal/repository"
)

// OperationsHandler serves the persisted operation journal.
type OperationsHandler struct {
	repo   repository.OperationRepository
	logger *logrus.Logger
}

func NewOperationsHandler(repo repository.OperationRepository, logger *logrus.Logger) *OperationsHandler {
	return &OperationsHandler{repo: repo, logger: logger}
}

func (h *OperationsHandler) journalDisabled(c *gin.Context) bool {
	if h.repo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"success": false,
			"error":   "JournalDisabled",
			"message": "operation journal requires a configured database",
		})
		return true
	}
	return false
}

// Get handles GET /api/operations/:id.
func (h *OperationsHandler) Get(c *gin.Context) {
	if h.journalDisabled(c) {
		return
	}
	op, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NotFound"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "QueryFailed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "operation": op})
}

// List handles GET /api/operations?wallet=0x...&limit=50.
func (h *OperationsHandler) List(c *gin.Context) {
	if h.journalDisabled(c) {
		return
	}
	wallet, ok := parseAddress(c, c.Query("wallet"), "wallet")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	ops, err := h.repo.FindByWallet(c.Request.Context(), wallet.Hex(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "QueryFailed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "operations": ops})
}
