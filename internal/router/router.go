package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/config"
	"github.com/vaultblockmagic/vault/internal/handlers"
	"github.com/vaultblockmagic/vault/internal/metrics"
	"github.com/vaultblockmagic/vault/internal/middleware"
)

// corsMiddleware CORS middleware, origins from config with allow-all default
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
		} else {
			allowedOrigins = []string{"*"}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// metricsMiddleware records request durations per route
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// Handlers bundles everything the router mounts.
type Handlers struct {
	Vault      *handlers.VaultHandler
	Assets     *handlers.AssetsHandler
	Account    *handlers.AccountHandler
	Chain      *handlers.ChainHandler
	Operations *handlers.OperationsHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRouter(h *Handlers, auth *middleware.AuthMiddleware, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(metricsMiddleware())

	// ============ Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// ============ Health Check ============
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "vault-backend",
		})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ WebSocket ============
	r.GET("/ws", func(c *gin.Context) {
		h.WebSocket.HandleWebSocket(c.Writer, c.Request)
	})

	// ============ API Routes ============
	api := r.Group("/api")
	api.Use(auth.RequireAuth())
	{
		api.POST("/vault", h.Vault.Vault)
		api.POST("/lock", h.Vault.Lock)
		api.POST("/unlock", h.Vault.Unlock)
		api.POST("/unvault", h.Vault.Unvault)

		api.POST("/timelock", h.Vault.Timelock)
		api.GET("/timelock/:token", h.Vault.Restrictions)

		api.GET("/assets/:address", h.Assets.List)

		api.POST("/account/username", h.Account.SetUsername)
		api.GET("/account/username/:username/exists", h.Account.UsernameExists)
		api.POST("/account/check", h.Account.CheckCredentials)
		api.POST("/recovery", h.Account.Recover)

		api.GET("/chain", h.Chain.Current)
		api.POST("/chain/switch", h.Chain.Switch)

		api.GET("/operations", h.Operations.List)
		api.GET("/operations/:id", h.Operations.Get)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api endpoints for available APIs",
		})
	})

	return r
}
