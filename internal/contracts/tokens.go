package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ERC20 binds the fungible token surface used for vault approvals.
type ERC20 struct {
	contract *bind.BoundContract
}

func NewERC20(address common.Address, backend bind.ContractBackend) *ERC20 {
	return &ERC20{contract: bind.NewBoundContract(address, erc20ABI, backend, backend, backend)}
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (t *ERC20) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "approve", spender, amount)
}

// ERC721 binds the non-fungible token approval surface.
type ERC721 struct {
	contract *bind.BoundContract
}

func NewERC721(address common.Address, backend bind.ContractBackend) *ERC721 {
	return &ERC721{contract: bind.NewBoundContract(address, erc721ABI, backend, backend, backend)}
}

func (t *ERC721) IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error) {
	var out []interface{}
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isApprovedForAll", owner, operator); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (t *ERC721) SetApprovalForAll(opts *bind.TransactOpts, operator common.Address, approved bool) (*types.Transaction, error) {
	return t.contract.Transact(opts, "setApprovalForAll", operator, approved)
}

// Mirrored binds the wrapped-token contract that tracks lock/unvault
// requests and transfer restrictions for a vaulted asset.
type Mirrored struct {
	contract *bind.BoundContract
}

func NewMirrored(address common.Address, backend bind.ContractBackend) *Mirrored {
	return &Mirrored{contract: bind.NewBoundContract(address, mirroredABI, backend, backend, backend)}
}

func (m *Mirrored) callUint(ctx context.Context, method string) (*big.Int, error) {
	var out []interface{}
	if err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// LockID the pending unlock request identifier.
func (m *Mirrored) LockID(ctx context.Context) (*big.Int, error) {
	return m.callUint(ctx, "lockId")
}

// RequestID the pending unvault request identifier.
func (m *Mirrored) RequestID(ctx context.Context) (*big.Int, error) {
	return m.callUint(ctx, "requestId")
}

func (m *Mirrored) UnderlyingAsset(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "underlyingAsset"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (m *Mirrored) TransferUnlockTimestamp(ctx context.Context) (*big.Int, error) {
	return m.callUint(ctx, "transferUnlockTimestamp")
}

func (m *Mirrored) TransfersDisabled(ctx context.Context) (bool, error) {
	var out []interface{}
	if err := m.contract.Call(&bind.CallOpts{Context: ctx}, &out, "transfersDisabled"); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (m *Mirrored) DisableTransfersPermanently(opts *bind.TransactOpts) (*types.Transaction, error) {
	return m.contract.Transact(opts, "disableTransfersPermanently")
}

func (m *Mirrored) SetTransferUnlockTimestamp(opts *bind.TransactOpts, unlockTime *big.Int) (*types.Transaction, error) {
	return m.contract.Transact(opts, "setTransferUnlockTimestamp", unlockTime)
}

// ExternalAPIMFA binds the oracle MFA contract serving chain-current
// randomness.
type ExternalAPIMFA struct {
	contract *bind.BoundContract
}

func NewExternalAPIMFA(address common.Address, backend bind.ContractBackend) *ExternalAPIMFA {
	return &ExternalAPIMFA{contract: bind.NewBoundContract(address, externalAPIMFAABI, backend, backend, backend)}
}

func (e *ExternalAPIMFA) GetCurrentRandomNumber(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCurrentRandomNumber"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
