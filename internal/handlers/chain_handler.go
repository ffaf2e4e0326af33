package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/chain"
	"github.com/vaultblockmagic/vault/internal/metrics"
)

// ChainHandler exposes the wallet session's network state.
type ChainHandler struct {
	manager *chain.Manager
	logger  *logrus.Logger
}

func NewChainHandler(manager *chain.Manager, logger *logrus.Logger) *ChainHandler {
	return &ChainHandler{manager: manager, logger: logger}
}

// Current handles GET /api/chain.
func (h *ChainHandler) Current(c *gin.Context) {
	desc := h.manager.Descriptor()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"chainId":       desc.ChainID,
		"name":          desc.Name,
		"nativeSymbol":  desc.NativeSymbol,
		"blockExplorer": desc.BlockExplorerURL,
		"account":       h.manager.Account().Hex(),
	})
}

// Switch handles POST /api/chain/switch, toggling between the two supported
// networks.
func (h *ChainHandler) Switch(c *gin.Context) {
	desc, err := h.manager.SwitchChain(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "ChainSwitchFailed",
			"message": err.Error(),
		})
		return
	}
	metrics.ChainSwitchesTotal.Inc()
	metrics.CurrentChainID.Set(float64(desc.ChainID))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chainId": desc.ChainID,
		"name":    desc.Name,
	})
}
