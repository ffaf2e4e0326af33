package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/commitment"
	"github.com/vaultblockmagic/vault/internal/metrics"
	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/models"
)

// VaultRequest deposits an asset under custody and enrolls MFA providers.
type VaultRequest struct {
	Token     common.Address
	Fungible  bool
	Amount    *big.Int // fungible only
	TokenID   *big.Int // non-fungible only
	Username  string
	Password  string
	Providers []common.Address
}

// LockRequest locks an already-vaulted asset and enrolls MFA providers.
type LockRequest struct {
	Token     common.Address
	Fungible  bool
	Username  string
	Password  string
	Providers []common.Address
}

// UnlockRequest releases a locked asset after second-factor verification.
// Token is the mirrored contract carrying the pending lock id.
type UnlockRequest struct {
	Token        common.Address
	Fungible     bool
	Username     string
	Password     string
	OTPSecretOne string
	OTPSecretTwo string
	Providers    []common.Address
}

// UnvaultRequest withdraws an asset after second-factor verification.
type UnvaultRequest struct {
	Token        common.Address
	Fungible     bool
	Amount       *big.Int
	Username     string
	Password     string
	OTPSecretOne string
	OTPSecretTwo string
	Providers    []common.Address
}

// VaultAndSetMFA runs the deposit pipeline: ensure spender approval, derive
// the commitment, build enrollment records, submit the batched vault call.
//
// The approval and the main call are separate transactions. If the approval
// confirms and the main call then fails, the allowance stays set with no
// vault effect; the journal records the stranded state, nothing is rolled
// back.
func (o *Orchestrator) VaultAndSetMFA(ctx context.Context, req VaultRequest) (*Result, error) {
	if req.Fungible && req.Amount == nil {
		return nil, fmt.Errorf("amount is required for fungible deposits")
	}

	timer := o.now()
	op := o.beginOperation(ctx, models.KindVault, req.Token, req.Fungible, req.Amount, req.TokenID)

	approvalHash, err := o.ensureApproval(ctx, op, req)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindVault, "failed").Inc()
		return nil, err
	}

	hash, err := commitment.FromPassword(req.Password)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindVault, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}

	records, err := o.registry.BuildEnrollmentRecords(ctx, req.Providers, &mfa.EnrollmentContext{
		ChainID:  o.session.Current(),
		Username: req.Username,
	})
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindVault, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}

	opts, err := o.session.Transactor(ctx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindVault, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}

	amount := big.NewInt(0)
	tokenID := big.NewInt(0)
	if req.Fungible {
		amount = req.Amount
	} else {
		tokenID = req.TokenID
	}

	tx, err := o.vault().BatchVaultAndSetMFA(opts, req.Token, amount, tokenID, req.Fungible, hash, records)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindVault, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}
	o.markSubmitted(ctx, op, tx.Hash().Hex())

	if err := o.confirm(ctx, op, tx); err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindVault, "failed").Inc()
		return nil, err
	}

	metrics.OperationsTotal.WithLabelValues(models.KindVault, "confirmed").Inc()
	metrics.OperationDuration.WithLabelValues(models.KindVault).Observe(o.now().Sub(timer).Seconds())
	o.logger.WithFields(logrus.Fields{
		"operation": op.ID,
		"token":     req.Token.Hex(),
		"tx":        tx.Hash().Hex(),
	}).Info("vault operation confirmed")
	return &Result{OperationID: op.ID, TxHash: tx.Hash().Hex(), ApprovalTxHash: approvalHash}, nil
}

// ensureApproval grants the custody contract spending rights when the
// current allowance (or collection approval) is insufficient, waiting for
// the approval to confirm before the pipeline continues.
func (o *Orchestrator) ensureApproval(ctx context.Context, op *models.VaultOperation, req VaultRequest) (string, error) {
	owner := o.session.Account()
	spender := o.vault().Address()

	if req.Fungible {
		allowance, err := o.erc20At(req.Token).Allowance(ctx, owner, spender)
		if err != nil {
			return "", o.fail(ctx, op, fmt.Errorf("failed to read allowance: %w", err))
		}
		if req.Amount.Cmp(allowance) <= 0 {
			return "", nil
		}
		opts, err := o.session.Transactor(ctx)
		if err != nil {
			return "", o.fail(ctx, op, err)
		}
		tx, err := o.erc20At(req.Token).Approve(opts, spender, req.Amount)
		if err != nil {
			return "", o.fail(ctx, op, fmt.Errorf("failed to submit approval: %w", err))
		}
		o.markApproval(ctx, op, tx.Hash().Hex())
		if _, err := o.session.WaitMined(ctx, tx); err != nil {
			return "", o.fail(ctx, op, fmt.Errorf("failed to confirm approval: %w", err))
		}
		metrics.ApprovalsIssued.Inc()
		o.transition(ctx, op, models.StateApproved)
		return tx.Hash().Hex(), nil
	}

	approved, err := o.erc721At(req.Token).IsApprovedForAll(ctx, owner, spender)
	if err != nil {
		return "", o.fail(ctx, op, fmt.Errorf("failed to read collection approval: %w", err))
	}
	if approved {
		return "", nil
	}
	opts, err := o.session.Transactor(ctx)
	if err != nil {
		return "", o.fail(ctx, op, err)
	}
	tx, err := o.erc721At(req.Token).SetApprovalForAll(opts, spender, true)
	if err != nil {
		return "", o.fail(ctx, op, fmt.Errorf("failed to submit collection approval: %w", err))
	}
	o.markApproval(ctx, op, tx.Hash().Hex())
	if _, err := o.session.WaitMined(ctx, tx); err != nil {
		return "", o.fail(ctx, op, fmt.Errorf("failed to confirm collection approval: %w", err))
	}
	metrics.ApprovalsIssued.Inc()
	o.transition(ctx, op, models.StateApproved)
	return tx.Hash().Hex(), nil
}

// LockAndSetMFA runs the lock pipeline. The asset is already under custody,
// so there is no approval step.
func (o *Orchestrator) LockAndSetMFA(ctx context.Context, req LockRequest) (*Result, error) {
	timer := o.now()
	op := o.beginOperation(ctx, models.KindLock, req.Token, req.Fungible, nil, nil)

	hash, err := commitment.FromPassword(req.Password)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindLock, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}

	records, err := o.registry.BuildEnrollmentRecords(ctx, req.Providers, &mfa.EnrollmentContext{
		ChainID:  o.session.Current(),
		Username: req.Username,
	})
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindLock, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}

	opts, err := o.session.Transactor(ctx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindLock, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}

	tx, err := o.vault().BatchLockAndSetMFA(opts, req.Token, req.Fungible, records, hash)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindLock, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}
	o.markSubmitted(ctx, op, tx.Hash().Hex())

	if err := o.confirm(ctx, op, tx); err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindLock, "failed").Inc()
		return nil, err
	}

	metrics.OperationsTotal.WithLabelValues(models.KindLock, "confirmed").Inc()
	metrics.OperationDuration.WithLabelValues(models.KindLock).Observe(o.now().Sub(timer).Seconds())
	return &Result{OperationID: op.ID, TxHash: tx.Hash().Hex()}, nil
}

// UnlockAndVerifyMFA runs the unlock pipeline: read the pending lock id,
// gather off-chain signatures when OTP secrets are present, build
// verification records (the password proof happens here) and submit the
// batched unlock call. A failed proof aborts before any chain write.
func (o *Orchestrator) UnlockAndVerifyMFA(ctx context.Context, req UnlockRequest) (*Result, error) {
	timer := o.now()
	op := o.beginOperation(ctx, models.KindUnlock, req.Token, req.Fungible, nil, nil)

	requestID, err := o.mirroredAt(req.Token).LockID(ctx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindUnlock, "failed").Inc()
		return nil, o.fail(ctx, op, fmt.Errorf("failed to read lock id: %w", err))
	}

	result, err := o.verifyAndSubmit(ctx, op, requestID, verifySubmission{
		fungible:     req.Fungible,
		username:     req.Username,
		password:     req.Password,
		otpSecretOne: req.OTPSecretOne,
		otpSecretTwo: req.OTPSecretTwo,
		providers:    req.Providers,
	})
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindUnlock, "failed").Inc()
		return nil, err
	}

	metrics.OperationsTotal.WithLabelValues(models.KindUnlock, "confirmed").Inc()
	metrics.OperationDuration.WithLabelValues(models.KindUnlock).Observe(o.now().Sub(timer).Seconds())
	return result, nil
}

// UnvaultAndVerifyMFA runs the withdraw pipeline. It resolves the pending
// request id and the underlying asset from the mirrored contract and
// forwards the requested amount.
func (o *Orchestrator) UnvaultAndVerifyMFA(ctx context.Context, req UnvaultRequest) (*Result, error) {
	timer := o.now()
	op := o.beginOperation(ctx, models.KindUnvault, req.Token, req.Fungible, req.Amount, nil)

	mirrored := o.mirroredAt(req.Token)
	requestID, err := mirrored.RequestID(ctx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindUnvault, "failed").Inc()
		return nil, o.fail(ctx, op, fmt.Errorf("failed to read request id: %w", err))
	}
	underlying, err := mirrored.UnderlyingAsset(ctx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindUnvault, "failed").Inc()
		return nil, o.fail(ctx, op, fmt.Errorf("failed to read underlying asset: %w", err))
	}

	result, err := o.verifyAndSubmit(ctx, op, requestID, verifySubmission{
		fungible:     req.Fungible,
		username:     req.Username,
		password:     req.Password,
		otpSecretOne: req.OTPSecretOne,
		otpSecretTwo: req.OTPSecretTwo,
		providers:    req.Providers,
		underlying:   &underlying,
		amount:       req.Amount,
	})
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindUnvault, "failed").Inc()
		return nil, err
	}

	metrics.OperationsTotal.WithLabelValues(models.KindUnvault, "confirmed").Inc()
	metrics.OperationDuration.WithLabelValues(models.KindUnvault).Observe(o.now().Sub(timer).Seconds())
	return result, nil
}

type verifySubmission struct {
	fungible     bool
	username     string
	password     string
	otpSecretOne string
	otpSecretTwo string
	providers    []common.Address

	// unvault only
	underlying *common.Address
	amount     *big.Int
}

// verifyAndSubmit is the shared verification half of the unlock and unvault
// pipelines: signing, timestamp selection, record construction, proof
// parameter parsing and the batched call.
func (o *Orchestrator) verifyAndSubmit(ctx context.Context, op *models.VaultOperation, requestID *big.Int, sub verifySubmission) (*Result, error) {
	signResponse, timestamp, err := o.resolveSignature(ctx, sub.username, requestID, sub.otpSecretOne, sub.otpSecretTwo)
	if err != nil {
		return nil, o.fail(ctx, op, err)
	}

	hash, err := commitment.FromPassword(sub.password)
	if err != nil {
		return nil, o.fail(ctx, op, err)
	}

	vc := &mfa.VerificationContext{
		CurrentChainID: o.session.Current,
		Username:       sub.username,
		Password:       sub.password,
		Commitment:     hash,
		Timestamp:      timestamp,
		SignResponse:   signResponse,
	}
	records, proof, err := o.registry.BuildVerificationRecords(ctx, sub.providers, vc)
	if err != nil {
		// Includes mfa.ErrPasswordIncorrect: no chain write has happened yet.
		return nil, o.fail(ctx, op, err)
	}

	params, err := parseProofParams(proof)
	if err != nil {
		return nil, o.fail(ctx, op, err)
	}
	tsValue, ok := new(big.Int).SetString(timestamp, 10)
	if !ok {
		return nil, o.fail(ctx, op, fmt.Errorf("malformed timestamp %q", timestamp))
	}

	opts, err := o.session.Transactor(ctx)
	if err != nil {
		return nil, o.fail(ctx, op, err)
	}

	var tx *types.Transaction
	if sub.underlying != nil {
		tx, err = o.vault().BatchUnvaultAndVerifyMFA(opts, *sub.underlying, sub.amount, requestID, sub.fungible, tsValue, params, records)
	} else {
		tx, err = o.vault().BatchUnlockAndVerifyMFA(opts, requestID, sub.fungible, tsValue, params, records)
	}
	if err != nil {
		return nil, o.fail(ctx, op, err)
	}
	o.markSubmitted(ctx, op, tx.Hash().Hex())

	if err := o.confirm(ctx, op, tx); err != nil {
		return nil, err
	}
	return &Result{OperationID: op.ID, TxHash: tx.Hash().Hex()}, nil
}

// resolveSignature fetches the off-chain signing response when either OTP
// secret is present. The authoritative timestamp comes from the signed
// challenge payload when available, wall clock otherwise.
func (o *Orchestrator) resolveSignature(ctx context.Context, username string, requestID *big.Int, otpSecretOne, otpSecretTwo string) (*clients.SignMFAResponse, string, error) {
	if otpSecretOne == "" && otpSecretTwo == "" {
		return nil, strconv.FormatInt(o.now().Unix(), 10), nil
	}

	response, err := o.signer.SignMFA(ctx, username, requestID.String(), otpSecretOne, otpSecretTwo)
	if err != nil {
		return nil, "", fmt.Errorf("failed to obtain MFA signature: %w", err)
	}

	signed := response.SignedMessageOne
	if signed == nil {
		signed = response.SignedMessageTwo
	}
	if signed == nil {
		return nil, "", fmt.Errorf("signing service returned no signed message")
	}
	timestamp, err := signed.Timestamp()
	if err != nil {
		return nil, "", err
	}
	return response, timestamp, nil
}
