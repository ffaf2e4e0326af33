package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/assets"
)

// AssetsHandler serves the wallet's discovered holdings.
type AssetsHandler struct {
	discovery *assets.Discovery
	logger    *logrus.Logger
}

func NewAssetsHandler(discovery *assets.Discovery, logger *logrus.Logger) *AssetsHandler {
	return &AssetsHandler{discovery: discovery, logger: logger}
}

// List handles GET /api/assets/:address. The list is rebuilt wholesale on
// every request.
func (h *AssetsHandler) List(c *gin.Context) {
	wallet, ok := parseAddress(c, c.Param("address"), "address")
	if !ok {
		return
	}

	discovered, err := h.discovery.Discover(c.Request.Context(), wallet)
	if err != nil {
		h.logger.WithError(err).WithField("wallet", wallet.Hex()).Error("asset discovery failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "DiscoveryFailed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assets": discovered})
}
