// Package orchestrator assembles commitments, proofs and MFA provider
// records into the four batched custody operations. Every pipeline is
// strictly sequential: each step waits for the previous step's result,
// including on-chain confirmation, before continuing.
package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/chain"
	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/contracts"
	"github.com/vaultblockmagic/vault/internal/events"
	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/models"
	"github.com/vaultblockmagic/vault/internal/repository"
	"github.com/vaultblockmagic/vault/internal/zkproof"
)

// Session is the slice of the chain manager the pipelines use. Chain id is
// always read through Current() at the moment of use, never cached.
type Session interface {
	Current() uint64
	Account() common.Address
	Backend() chain.Client
	Transactor(ctx context.Context) (*bind.TransactOpts, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// VaultContract is the custody entry point surface consumed here.
type VaultContract interface {
	Address() common.Address
	BatchVaultAndSetMFA(opts *bind.TransactOpts, token common.Address, amount, tokenID *big.Int, isFungible bool, passwordHash *big.Int, records []contracts.MFAProviderData) (*types.Transaction, error)
	BatchLockAndSetMFA(opts *bind.TransactOpts, token common.Address, isFungible bool, records []contracts.MFAProviderData, passwordHash *big.Int) (*types.Transaction, error)
	BatchUnlockAndVerifyMFA(opts *bind.TransactOpts, requestID *big.Int, isFungible bool, timestamp *big.Int, params contracts.ProofParams, records []contracts.MFAProviderData) (*types.Transaction, error)
	BatchUnvaultAndVerifyMFA(opts *bind.TransactOpts, underlying common.Address, amount, requestID *big.Int, isFungible bool, timestamp *big.Int, params contracts.ProofParams, records []contracts.MFAProviderData) (*types.Transaction, error)
}

// ERC20Token is the fungible approval surface.
type ERC20Token interface {
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error)
}

// ERC721Token is the non-fungible approval surface.
type ERC721Token interface {
	IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error)
	SetApprovalForAll(opts *bind.TransactOpts, operator common.Address, approved bool) (*types.Transaction, error)
}

// MirroredToken tracks pending requests and transfer restrictions on a
// wrapped asset.
type MirroredToken interface {
	LockID(ctx context.Context) (*big.Int, error)
	RequestID(ctx context.Context) (*big.Int, error)
	UnderlyingAsset(ctx context.Context) (common.Address, error)
	TransferUnlockTimestamp(ctx context.Context) (*big.Int, error)
	TransfersDisabled(ctx context.Context) (bool, error)
	DisableTransfersPermanently(opts *bind.TransactOpts) (*types.Transaction, error)
	SetTransferUnlockTimestamp(opts *bind.TransactOpts, unlockTime *big.Int) (*types.Transaction, error)
}

// MFASigner requests off-chain signatures for a pending request id.
type MFASigner interface {
	SignMFA(ctx context.Context, username, requestID, otpSecretOne, otpSecretTwo string) (*clients.SignMFAResponse, error)
}

// Result reports where a pipeline run ended up.
type Result struct {
	OperationID    string `json:"operationId"`
	TxHash         string `json:"txHash"`
	ApprovalTxHash string `json:"approvalTxHash,omitempty"`
}

// Orchestrator runs the batched pipelines. Contract handles are resolved
// through factories against the session's current backend so a chain switch
// between operations picks up the right network.
type Orchestrator struct {
	session  Session
	registry *mfa.Registry
	signer   MFASigner
	journal  repository.OperationRepository
	events   *events.Publisher
	logger   *logrus.Logger

	vault      func() VaultContract
	erc20At    func(common.Address) ERC20Token
	erc721At   func(common.Address) ERC721Token
	mirroredAt func(common.Address) MirroredToken

	now func() time.Time
}

// NewOrchestrator wires the pipelines against the live contract bindings.
// Journal and events may be nil; journaling failures never block a pipeline.
func NewOrchestrator(session Session, vaultAddress common.Address, registry *mfa.Registry, signer MFASigner, journal repository.OperationRepository, publisher *events.Publisher, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		session:  session,
		registry: registry,
		signer:   signer,
		journal:  journal,
		events:   publisher,
		logger:   logger,
		vault: func() VaultContract {
			return contracts.NewVaultCore(vaultAddress, session.Backend())
		},
		erc20At: func(addr common.Address) ERC20Token {
			return contracts.NewERC20(addr, session.Backend())
		},
		erc721At: func(addr common.Address) ERC721Token {
			return contracts.NewERC721(addr, session.Backend())
		},
		mirroredAt: func(addr common.Address) MirroredToken {
			return contracts.NewMirrored(addr, session.Backend())
		},
		now: time.Now,
	}
}

// beginOperation opens a journal entry. The returned operation is always
// usable even when persistence is disabled or failing.
func (o *Orchestrator) beginOperation(ctx context.Context, kind string, token common.Address, fungible bool, amount, tokenID *big.Int) *models.VaultOperation {
	op := &models.VaultOperation{
		ID:       uuid.New().String(),
		Kind:     kind,
		State:    models.StatePending,
		ChainID:  o.session.Current(),
		Wallet:   o.session.Account().Hex(),
		Token:    token.Hex(),
		Fungible: fungible,
	}
	if amount != nil {
		op.Amount = amount.String()
	}
	if tokenID != nil {
		op.TokenID = tokenID.String()
	}
	if o.journal != nil {
		if err := o.journal.Create(ctx, op); err != nil {
			o.logger.WithError(err).Warn("failed to journal operation start")
		}
	}
	o.publish(op, "")
	return op
}

func (o *Orchestrator) transition(ctx context.Context, op *models.VaultOperation, state string) {
	op.State = state
	if o.journal != nil {
		if err := o.journal.UpdateState(ctx, op.ID, state); err != nil {
			o.logger.WithError(err).WithField("operation", op.ID).Warn("failed to journal state transition")
		}
	}
	o.publish(op, "")
}

func (o *Orchestrator) markApproval(ctx context.Context, op *models.VaultOperation, txHash string) {
	op.State = models.StateNeedsApproval
	op.ApprovalTxHash = txHash
	if o.journal != nil {
		if err := o.journal.MarkApprovalSubmitted(ctx, op.ID, txHash); err != nil {
			o.logger.WithError(err).WithField("operation", op.ID).Warn("failed to journal approval")
		}
	}
	o.publish(op, "")
}

func (o *Orchestrator) markSubmitted(ctx context.Context, op *models.VaultOperation, txHash string) {
	op.State = models.StateSubmitted
	op.TxHash = txHash
	if o.journal != nil {
		if err := o.journal.MarkSubmitted(ctx, op.ID, txHash); err != nil {
			o.logger.WithError(err).WithField("operation", op.ID).Warn("failed to journal submission")
		}
	}
	o.publish(op, "")
}

// fail records the failure and returns the original error unmodified.
func (o *Orchestrator) fail(ctx context.Context, op *models.VaultOperation, err error) error {
	op.State = models.StateFailed
	op.Error = err.Error()
	if o.journal != nil {
		if jerr := o.journal.MarkFailed(ctx, op.ID, err.Error()); jerr != nil {
			o.logger.WithError(jerr).WithField("operation", op.ID).Warn("failed to journal failure")
		}
	}
	o.publish(op, err.Error())
	return err
}

func (o *Orchestrator) publish(op *models.VaultOperation, errMsg string) {
	o.events.PublishOperation(events.OperationEvent{
		OperationID: op.ID,
		Kind:        op.Kind,
		State:       op.State,
		ChainID:     op.ChainID,
		Wallet:      op.Wallet,
		TxHash:      op.TxHash,
		Error:       errMsg,
	})
}

// confirm waits for the main call to be mined and checks the receipt status.
func (o *Orchestrator) confirm(ctx context.Context, op *models.VaultOperation, tx *types.Transaction) error {
	receipt, err := o.session.WaitMined(ctx, tx)
	if err != nil {
		return o.fail(ctx, op, fmt.Errorf("failed to await confirmation: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return o.fail(ctx, op, fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
	}
	o.transition(ctx, op, models.StateConfirmed)
	return nil
}

// parseProofParams converts the decimal-string tuple into the verifier's
// integer layout.
func parseProofParams(params zkproof.Parameters) (contracts.ProofParams, error) {
	var out contracts.ProofParams
	for i, raw := range params {
		n, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return contracts.ProofParams{}, fmt.Errorf("malformed proof parameter %d: %q", i, raw)
		}
		out[i] = n
	}
	return out, nil
}
