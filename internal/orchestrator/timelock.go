package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vaultblockmagic/vault/internal/metrics"
	"github.com/vaultblockmagic/vault/internal/models"
)

// PermanentLock requests an irreversible transfer freeze.
const PermanentLock = "inf"

// Restrictions reports a mirrored asset's transfer constraints.
type Restrictions struct {
	UnlockTimestamp   *big.Int `json:"unlockTimestamp"`
	TransfersDisabled bool     `json:"transfersDisabled"`
}

// TransferRestrictions reads the mirrored asset's current constraints.
func (o *Orchestrator) TransferRestrictions(ctx context.Context, token common.Address) (*Restrictions, error) {
	mirrored := o.mirroredAt(token)
	unlock, err := mirrored.TransferUnlockTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read unlock timestamp: %w", err)
	}
	disabled, err := mirrored.TransfersDisabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer status: %w", err)
	}
	return &Restrictions{UnlockTimestamp: unlock, TransfersDisabled: disabled}, nil
}

// TimelockTransfers restricts transfers of a mirrored asset until the given
// unix timestamp, or permanently when until is "inf". Permanent disabling is
// irreversible on chain.
func (o *Orchestrator) TimelockTransfers(ctx context.Context, token common.Address, until string) (*Result, error) {
	op := o.beginOperation(ctx, models.KindTimelock, token, true, nil, nil)

	opts, err := o.session.Transactor(ctx)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindTimelock, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}

	mirrored := o.mirroredAt(token)
	var tx *types.Transaction
	if until == PermanentLock {
		tx, err = mirrored.DisableTransfersPermanently(opts)
	} else {
		unlockTime, ok := new(big.Int).SetString(until, 10)
		if !ok {
			metrics.OperationsTotal.WithLabelValues(models.KindTimelock, "failed").Inc()
			return nil, o.fail(ctx, op, fmt.Errorf("malformed unlock time %q", until))
		}
		tx, err = mirrored.SetTransferUnlockTimestamp(opts, unlockTime)
	}
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindTimelock, "failed").Inc()
		return nil, o.fail(ctx, op, err)
	}
	o.markSubmitted(ctx, op, tx.Hash().Hex())

	if err := o.confirm(ctx, op, tx); err != nil {
		metrics.OperationsTotal.WithLabelValues(models.KindTimelock, "failed").Inc()
		return nil, err
	}
	metrics.OperationsTotal.WithLabelValues(models.KindTimelock, "confirmed").Inc()
	return &Result{OperationID: op.ID, TxHash: tx.Hash().Hex()}, nil
}
