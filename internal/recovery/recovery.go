// Package recovery re-binds a username to a new wallet address and carries
// the account flows around the on-chain username, address and password-hash
// mappings.
package recovery

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/commitment"
	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/zkproof"
)

// Decision classifies the on-chain username/address/password-hash mappings
// for the session account.
type Decision string

const (
	// DecisionSkipMFA the account is fully registered with matching
	// credentials; MFA setup can be skipped.
	DecisionSkipMFA Decision = "SKIP_MFA"
	// DecisionProceedMFA all three mappings are empty; the account is new
	// and should proceed with MFA setup.
	DecisionProceedMFA Decision = "PROCEED_MFA"
	// DecisionInvalidCredentials the account is registered but the supplied
	// credentials do not match.
	DecisionInvalidCredentials Decision = "INVALID_CREDENTIALS"
	// DecisionInvalidState the mappings disagree with each other. There is
	// no defined recovery path out of this state; it is surfaced to the
	// caller as-is.
	DecisionInvalidState Decision = "INVALID_STATE"
)

// settlementDelay is how long mirrored-asset recovery takes to settle on the
// secondary network after the registrar accepts the request.
const settlementDelay = 2 * time.Minute

// VaultAccount is the username/password-hash surface of the custody contract.
type VaultAccount interface {
	SetUsername(opts *bind.TransactOpts, username string, userAddress common.Address, passwordHash *big.Int) (*types.Transaction, error)
	UsernameAddress(ctx context.Context, username string) (common.Address, error)
	Usernames(ctx context.Context, userAddress common.Address) (string, error)
	PasswordHashes(ctx context.Context, userAddress common.Address) (*big.Int, error)
}

// Registrar is the off-chain name service surface.
type Registrar interface {
	RegisterPassword(ctx context.Context, username, password string) error
	RegisterENS(ctx context.Context, name, userAddress, passwordHash string) error
	RecoverENS(ctx context.Context, req clients.RecoverENSRequest) error
}

// ProofService generates the password proof for recovery.
type ProofService interface {
	Prove(ctx context.Context, seg0, seg1, providedHash *big.Int, timestamp string) (zkproof.Result, error)
}

// Session is the wallet surface recovery needs.
type Session interface {
	Account() common.Address
	Transactor(ctx context.Context) (*bind.TransactOpts, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Result reports a completed recovery and its pending settlement window.
type Result struct {
	Username        string        `json:"username"`
	NewAddress      string        `json:"newAddress"`
	SettlementDelay time.Duration `json:"settlementDelay"`
}

// Flow drives recovery and the account mapping checks.
type Flow struct {
	session   Session
	vault     func() VaultAccount
	registrar Registrar
	prover    ProofService
	logger    *logrus.Logger

	now func() time.Time
}

func NewFlow(session Session, vault func() VaultAccount, registrar Registrar, prover ProofService, logger *logrus.Logger) *Flow {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Flow{
		session:   session,
		vault:     vault,
		registrar: registrar,
		prover:    prover,
		logger:    logger,
		now:       time.Now,
	}
}

// Recover proves knowledge of the password and asks the registrar to re-bind
// the username to the session's wallet address. A failed proof aborts before
// the registrar sees anything. On registrar failure the caller must retry
// from an address that is not already registered.
func (f *Flow) Recover(ctx context.Context, username, password string) (*Result, error) {
	timestamp := strconv.FormatInt(f.now().Unix(), 10)

	seg0, seg1, err := commitment.Split(password)
	if err != nil {
		return nil, err
	}
	n0, err := commitment.SegmentToInt(seg0)
	if err != nil {
		return nil, err
	}
	n1, err := commitment.SegmentToInt(seg1)
	if err != nil {
		return nil, err
	}
	hash := commitment.Commit(n0, n1)

	result, err := f.prover.Prove(ctx, n0, n1, hash, timestamp)
	if err != nil {
		return nil, err
	}
	if result.Status != zkproof.StatusOK {
		return nil, mfa.ErrPasswordIncorrect
	}

	newAddress := f.session.Account()
	req := clients.RecoverENSRequest{
		Username:       username,
		NewUserAddress: newAddress.Hex(),
		PasswordHash:   hash.String(),
		Timestamp:      timestamp,
		Params:         clients.NewProofParamsPayload(result.Params),
	}
	if err := f.registrar.RecoverENS(ctx, req); err != nil {
		return nil, fmt.Errorf("recovery rejected, retry from an unregistered address: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"username":    username,
		"new_address": newAddress.Hex(),
	}).Info("recovery accepted, awaiting cross-chain settlement")
	return &Result{
		Username:        username,
		NewAddress:      newAddress.Hex(),
		SettlementDelay: settlementDelay,
	}, nil
}

// SetUsername binds the username and password commitment to the session
// account on chain, then registers the name and password off chain.
func (f *Flow) SetUsername(ctx context.Context, username, password string) error {
	hash, err := commitment.FromPassword(password)
	if err != nil {
		return err
	}

	opts, err := f.session.Transactor(ctx)
	if err != nil {
		return err
	}
	account := f.session.Account()
	tx, err := f.vault().SetUsername(opts, username, account, hash)
	if err != nil {
		return fmt.Errorf("failed to set username: %w", err)
	}
	if _, err := f.session.WaitMined(ctx, tx); err != nil {
		return fmt.Errorf("failed to confirm username: %w", err)
	}

	if err := f.registrar.RegisterENS(ctx, username, account.Hex(), hash.String()); err != nil {
		return err
	}
	if password != "" {
		if err := f.registrar.RegisterPassword(ctx, username, password); err != nil {
			return err
		}
	}
	return nil
}

// CheckUsernameExists reports whether the username maps to any address.
func (f *Flow) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	mapped, err := f.vault().UsernameAddress(ctx, username)
	if err != nil {
		return false, err
	}
	return mapped != (common.Address{}), nil
}

// CheckUsernameAndPassword classifies the session account against the three
// on-chain mappings. A registered account with matching username, address
// and commitment skips MFA setup; fully empty mappings proceed to setup;
// a partial mismatch of a registered account is invalid credentials; any
// other combination is the inconsistent mapping state.
func (f *Flow) CheckUsernameAndPassword(ctx context.Context, username, password string) (Decision, error) {
	account := f.session.Account()
	vault := f.vault()

	mappedUsername, err := vault.Usernames(ctx, account)
	if err != nil {
		return "", err
	}
	mappedAddress, err := vault.UsernameAddress(ctx, mappedUsername)
	if err != nil {
		return "", err
	}
	storedHash, err := vault.PasswordHashes(ctx, mappedAddress)
	if err != nil {
		return "", err
	}

	hash, err := commitment.FromPassword(password)
	if err != nil {
		return "", err
	}

	registered := mappedUsername != "" && mappedAddress != (common.Address{}) && storedHash.Sign() != 0
	empty := mappedUsername == "" && mappedAddress == (common.Address{}) && storedHash.Sign() == 0

	switch {
	case registered:
		if mappedUsername != username || mappedAddress != account || storedHash.Cmp(hash) != 0 {
			return DecisionInvalidCredentials, nil
		}
		return DecisionSkipMFA, nil
	case empty:
		return DecisionProceedMFA, nil
	default:
		return DecisionInvalidState, nil
	}
}
