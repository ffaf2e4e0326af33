package app

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/assets"
	"github.com/vaultblockmagic/vault/internal/chain"
	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/config"
	"github.com/vaultblockmagic/vault/internal/contracts"
	"github.com/vaultblockmagic/vault/internal/db"
	"github.com/vaultblockmagic/vault/internal/events"
	"github.com/vaultblockmagic/vault/internal/metrics"
	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/orchestrator"
	"github.com/vaultblockmagic/vault/internal/recovery"
	"github.com/vaultblockmagic/vault/internal/repository"
	"github.com/vaultblockmagic/vault/internal/zkproof"
)

// ServiceContainer wires the wallet session, clients and domain services.
type ServiceContainer struct {
	Manager       *chain.Manager
	Registry      *mfa.Registry
	ProofService  *zkproof.Service
	SignerClient  *clients.SignerClient
	Registrar     *clients.RegistrarClient
	Indexer       *clients.IndexerClient
	OperationRepo repository.OperationRepository
	Events        *events.Publisher
	Orchestrator  *orchestrator.Orchestrator
	Discovery     *assets.Discovery
	RecoveryFlow  *recovery.Flow

	logger *logrus.Logger
}

var Container *ServiceContainer
var containerOnce sync.Once

// oracleNonceSource reads the oracle contract's nonce against whichever
// backend is active when the call happens.
type oracleNonceSource struct {
	manager *chain.Manager
	address common.Address
}

func (s *oracleNonceSource) CurrentRandomNumber(ctx context.Context) (*big.Int, error) {
	return contracts.NewExternalAPIMFA(s.address, s.manager.Backend()).GetCurrentRandomNumber(ctx)
}

// InitializeContainer builds the container once. Config must be loaded first.
func InitializeContainer(ctx context.Context, logger *logrus.Logger) (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		cfg := config.AppConfig
		if cfg == nil {
			initErr = fmt.Errorf("configuration not loaded")
			return
		}
		if logger == nil {
			logger = logrus.StandardLogger()
		}

		container := &ServiceContainer{logger: logger}

		manager := chain.NewManager(cfg.Chains, cfg.Wallet, logger)
		if err := manager.Connect(ctx); err != nil {
			initErr = fmt.Errorf("failed to establish wallet session: %w", err)
			return
		}
		container.Manager = manager
		metrics.CurrentChainID.Set(float64(manager.Current()))

		if err := db.InitDB(cfg.Database.DSN); err != nil {
			initErr = fmt.Errorf("failed to initialize database: %w", err)
			return
		}
		if db.DB != nil {
			container.OperationRepo = repository.NewOperationRepository(db.DB)
		}

		natsURL := ""
		if cfg.NATS.Enabled {
			natsURL = cfg.NATS.URL
		}
		publisher, err := events.Connect(natsURL)
		if err != nil {
			initErr = fmt.Errorf("failed to connect event publisher: %w", err)
			return
		}
		container.Events = publisher

		serviceTimeout := time.Duration(cfg.Services.Timeout) * time.Second
		if serviceTimeout <= 0 {
			serviceTimeout = 30 * time.Second
		}
		proverTimeout := time.Duration(cfg.Prover.Timeout) * time.Second
		if proverTimeout <= 0 {
			proverTimeout = 120 * time.Second
		}

		container.ProofService = zkproof.NewService(
			zkproof.NewHTTPProver(cfg.Prover.BaseURL, proverTimeout),
			cfg.Prover.VerificationKeyPath,
			logger,
		)
		container.SignerClient = clients.NewSignerClient(cfg.Services.SignerBaseURL, serviceTimeout)
		container.Registrar = clients.NewRegistrarClient(cfg.RegistrarURL(), serviceTimeout)
		container.Indexer = clients.NewIndexerClient(cfg.Services.IndexerBaseURL, cfg.Services.IndexerAPIKey, serviceTimeout)

		subscriptions := map[uint64]string{
			cfg.Chains.Primary.ChainID:   cfg.Chains.Primary.OracleSubscriptionID,
			cfg.Chains.Secondary.ChainID: cfg.Chains.Secondary.OracleSubscriptionID,
		}
		nonceSource := &oracleNonceSource{
			manager: manager,
			address: common.HexToAddress(cfg.Contracts.ExternalAPIMFA),
		}
		registry, err := mfa.NewRegistryFromConfig(cfg.MFA.Providers, nonceSource, container.ProofService, subscriptions, logger)
		if err != nil {
			initErr = fmt.Errorf("failed to build MFA provider registry: %w", err)
			return
		}
		container.Registry = registry

		vaultAddress := common.HexToAddress(cfg.Contracts.VaultCore)
		container.Orchestrator = orchestrator.NewOrchestrator(
			manager,
			vaultAddress,
			registry,
			container.SignerClient,
			container.OperationRepo,
			publisher,
			logger,
		)

		retrieverAddress := common.HexToAddress(cfg.Contracts.TokenDataRetriever)
		container.Discovery = assets.NewDiscovery(
			container.Indexer,
			func() assets.TokenReader {
				return contracts.NewTokenDataRetriever(retrieverAddress, manager.Backend())
			},
			manager.Descriptor,
			logger,
		)

		container.RecoveryFlow = recovery.NewFlow(
			manager,
			func() recovery.VaultAccount {
				return contracts.NewVaultCore(vaultAddress, manager.Backend())
			},
			container.Registrar,
			container.ProofService,
			logger,
		)

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

// Cleanup tears down the container's long-lived connections.
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")
	if c.Events != nil {
		c.Events.Close()
	}
	if c.Manager != nil {
		c.Manager.Close()
	}
	log.Println("✅ Service Container cleaned up")
}
