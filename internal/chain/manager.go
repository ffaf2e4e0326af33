// Package chain owns the wallet session: one RPC connection per supported
// network, the signing key, and the process-wide current chain id. Exactly
// two networks are supported and they are mutually exclusive toggle targets.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/config"
)

var (
	// ErrWalletAbsent no signing key is configured
	ErrWalletAbsent = errors.New("no wallet configured")
	// ErrUserRejected the keystore refused to unlock
	ErrUserRejected = errors.New("wallet access rejected")
	// ErrUnsupportedChain the RPC endpoint serves a chain outside the two supported networks
	ErrUnsupportedChain = errors.New("unsupported chain")
	// ErrChainMismatch the active chain id is neither of the two configured toggle targets
	ErrChainMismatch = errors.New("current chain is not supported for switching")
)

// Client is the slice of ethclient.Client the manager hands out. It covers
// contract reads/writes and receipt lookups; tests substitute fakes.
type Client interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Manager maintains the wallet session. All chain-dependent values must be
// chosen against Current() at call time: an out-of-band switch invalidates
// anything read earlier.
type Manager struct {
	chains config.ChainsConfig
	wallet config.WalletConfig
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[uint64]Client
	current uint64
	key     *ecdsa.PrivateKey
	account common.Address

	// dial is swappable for tests
	dial func(rawurl string) (Client, error)
}

// NewManager creates an unconnected manager.
func NewManager(chains config.ChainsConfig, wallet config.WalletConfig, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		chains:  chains,
		wallet:  wallet,
		logger:  logger,
		clients: make(map[uint64]Client),
		dial: func(rawurl string) (Client, error) {
			return ethclient.Dial(rawurl)
		},
	}
}

// Connect unlocks the signing key and establishes the session on the primary
// network. An endpoint serving anything other than a supported chain id is
// ErrUnsupportedChain.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.unlockKey(); err != nil {
		return err
	}

	client, err := m.connectDescriptor(ctx, &m.chains.Primary)
	if err != nil {
		return err
	}

	m.clients[m.chains.Primary.ChainID] = client
	m.current = m.chains.Primary.ChainID
	m.logger.WithFields(logrus.Fields{
		"chain_id": m.current,
		"network":  m.chains.Primary.Name,
		"account":  m.account.Hex(),
	}).Info("wallet session established")
	return nil
}

func (m *Manager) unlockKey() error {
	switch {
	case m.wallet.PrivateKey != "":
		key, err := crypto.HexToECDSA(m.wallet.PrivateKey)
		if err != nil {
			return fmt.Errorf("invalid private key: %w", err)
		}
		m.key = key
	case m.wallet.KeystorePath != "":
		keyjson, err := os.ReadFile(m.wallet.KeystorePath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWalletAbsent, err)
		}
		unlocked, err := keystore.DecryptKey(keyjson, m.wallet.KeystorePassphrase)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		m.key = unlocked.PrivateKey
	default:
		return ErrWalletAbsent
	}
	m.account = crypto.PubkeyToAddress(m.key.PublicKey)
	return nil
}

func (m *Manager) connectDescriptor(ctx context.Context, desc *config.ChainDescriptor) (Client, error) {
	client, err := m.dial(desc.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", desc.Name, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to query chain id from %s: %w", desc.Name, err)
	}
	if chainID.Uint64() != desc.ChainID {
		client.Close()
		return nil, fmt.Errorf("%w: endpoint %s reports chain %d, want %d",
			ErrUnsupportedChain, desc.RPCURL, chainID.Uint64(), desc.ChainID)
	}
	return client, nil
}

// SwitchChain toggles strictly between the two configured networks and
// returns the descriptor now active. Any other current chain id is
// ErrChainMismatch, never silently coerced.
func (m *Manager) SwitchChain(ctx context.Context) (*config.ChainDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *config.ChainDescriptor
	switch m.current {
	case m.chains.Primary.ChainID:
		target = &m.chains.Secondary
	case m.chains.Secondary.ChainID:
		target = &m.chains.Primary
	default:
		return nil, ErrChainMismatch
	}

	if _, ok := m.clients[target.ChainID]; !ok {
		client, err := m.connectDescriptor(ctx, target)
		if err != nil {
			return nil, err
		}
		m.clients[target.ChainID] = client
	}

	m.current = target.ChainID
	m.logger.WithFields(logrus.Fields{
		"chain_id": target.ChainID,
		"network":  target.Name,
	}).Info("switched chain")
	return target, nil
}

// Current returns the active chain id. Re-read it immediately before
// choosing any chain-dependent value.
func (m *Manager) Current() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Descriptor returns the descriptor of the active network.
func (m *Manager) Descriptor() *config.ChainDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == m.chains.Secondary.ChainID {
		return &m.chains.Secondary
	}
	return &m.chains.Primary
}

// Account returns the session wallet address.
func (m *Manager) Account() common.Address {
	return m.account
}

// Backend returns the RPC client for the active network.
func (m *Manager) Backend() Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.current]
}

// Transactor builds signing options bound to the active chain id.
func (m *Manager) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	m.mu.Lock()
	chainID := m.current
	key := m.key
	m.mu.Unlock()

	if key == nil {
		return nil, ErrWalletAbsent
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	if m.wallet.GasLimit > 0 {
		opts.GasLimit = m.wallet.GasLimit
	}
	if m.wallet.GasPriceGwei > 0 {
		opts.GasPrice = new(big.Int).Mul(big.NewInt(m.wallet.GasPriceGwei), big.NewInt(1e9))
	}
	return opts, nil
}

// WaitMined blocks until the transaction is confirmed on the active network.
func (m *Manager) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, m.Backend(), tx)
}

// Close tears down all RPC connections.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, client := range m.clients {
		client.Close()
	}
	m.clients = make(map[uint64]Client)
}
