package main

import (
	"errors"
	"flag"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/db"
	"github.com/vaultblockmagic/vault/internal/signer"
)

// The signing service runs separately from the backend: it holds the two
// signer keys and the username secrets, nothing else.
func main() {
	addr := flag.String("addr", ":8090", "listen address")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := db.InitSignerDB(os.Getenv("DATABASE_DSN")); err != nil {
		logger.WithError(err).Fatal("failed to initialize signer database")
	}

	keyOne, err := crypto.HexToECDSA(os.Getenv("PRIVATE_KEY_ONE"))
	if err != nil {
		logger.WithError(err).Fatal("PRIVATE_KEY_ONE is missing or malformed")
	}
	keyTwo, err := crypto.HexToECDSA(os.Getenv("PRIVATE_KEY_TWO"))
	if err != nil {
		logger.WithError(err).Fatal("PRIVATE_KEY_TWO is missing or malformed")
	}

	service := signer.NewService(db.DB, keyOne, keyTwo, logger)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Test GET request successful"})
	})

	r.POST("/registerMFA", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := service.RegisterMFA(c.Request.Context(), req.Username)
		if err != nil {
			logger.WithError(err).WithField("username", req.Username).Error("registerMFA failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.POST("/signMFA", func(c *gin.Context) {
		var req struct {
			Username     string `json:"username" binding:"required"`
			RequestID    string `json:"requestId" binding:"required"`
			OTPSecretOne string `json:"otpSecretOne"`
			OTPSecretTwo string `json:"otpSecretTwo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := service.SignMFA(c.Request.Context(), req.Username, req.RequestID, req.OTPSecretOne, req.OTPSecretTwo)
		if errors.Is(err, signer.ErrUnknownUsername) || errors.Is(err, signer.ErrInvalidOTP) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			logger.WithError(err).WithField("username", req.Username).Error("signMFA failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.POST("/registerPassword", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := service.RegisterPassword(c.Request.Context(), req.Username, req.Password)
		if errors.Is(err, signer.ErrPasswordExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			logger.WithError(err).WithField("username", req.Username).Error("registerPassword failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password registered successfully"})
	})

	r.POST("/signPassword", func(c *gin.Context) {
		var req struct {
			Username     string `json:"username" binding:"required"`
			PasswordHash string `json:"passwordHash" binding:"required"`
			Salt         string `json:"salt" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		valid, err := service.SignPassword(c.Request.Context(), req.Username, req.PasswordHash, req.Salt)
		if errors.Is(err, signer.ErrUnknownUsername) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			logger.WithError(err).WithField("username", req.Username).Error("signPassword failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": valid})
	})

	logger.WithField("addr", *addr).Info("MFA signer listening")
	if err := r.Run(*addr); err != nil {
		logger.WithError(err).Fatal("server failed")
	}
}
