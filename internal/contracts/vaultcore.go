package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MFAProviderData is the wire form of one provider record.
type MFAProviderData struct {
	Provider       common.Address
	Message        string
	V              uint8
	R              [32]byte
	S              [32]byte
	SubscriptionId *big.Int
	Username       string
	MfaRequestId   *big.Int
	Args           []string
}

// ProofParams is the verifier's fixed 10-slot proof layout.
type ProofParams [10]*big.Int

// VaultCore binds the custody entry-point contract.
type VaultCore struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewVaultCore binds the contract at the given address.
func NewVaultCore(address common.Address, backend bind.ContractBackend) *VaultCore {
	return &VaultCore{
		address:  address,
		contract: bind.NewBoundContract(address, vaultCoreABI, backend, backend, backend),
	}
}

// Address the bound contract address (also the token spender for approvals).
func (v *VaultCore) Address() common.Address {
	return v.address
}

func (v *VaultCore) SetUsername(opts *bind.TransactOpts, username string, userAddress common.Address, passwordHash *big.Int) (*types.Transaction, error) {
	return v.contract.Transact(opts, "setUsername", username, userAddress, passwordHash)
}

func (v *VaultCore) UsernameAddress(ctx context.Context, username string) (common.Address, error) {
	var out []interface{}
	if err := v.contract.Call(&bind.CallOpts{Context: ctx}, &out, "usernameAddress", username); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (v *VaultCore) Usernames(ctx context.Context, userAddress common.Address) (string, error) {
	var out []interface{}
	if err := v.contract.Call(&bind.CallOpts{Context: ctx}, &out, "usernames", userAddress); err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (v *VaultCore) PasswordHashes(ctx context.Context, userAddress common.Address) (*big.Int, error) {
	var out []interface{}
	if err := v.contract.Call(&bind.CallOpts{Context: ctx}, &out, "passwordHashes", userAddress); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (v *VaultCore) BatchVaultAndSetMFA(opts *bind.TransactOpts, token common.Address, amount, tokenID *big.Int, isFungible bool, passwordHash *big.Int, records []MFAProviderData) (*types.Transaction, error) {
	return v.contract.Transact(opts, "batchVaultAndSetMFA", token, amount, tokenID, isFungible, passwordHash, records)
}

func (v *VaultCore) BatchLockAndSetMFA(opts *bind.TransactOpts, token common.Address, isFungible bool, records []MFAProviderData, passwordHash *big.Int) (*types.Transaction, error) {
	return v.contract.Transact(opts, "batchLockAndSetMFA", token, isFungible, records, passwordHash)
}

func (v *VaultCore) BatchUnlockAndVerifyMFA(opts *bind.TransactOpts, requestID *big.Int, isFungible bool, timestamp *big.Int, params ProofParams, records []MFAProviderData) (*types.Transaction, error) {
	return v.contract.Transact(opts, "batchUnlockAndVerifyMFA", requestID, isFungible, timestamp, [10]*big.Int(params), records)
}

func (v *VaultCore) BatchUnvaultAndVerifyMFA(opts *bind.TransactOpts, underlying common.Address, amount, requestID *big.Int, isFungible bool, timestamp *big.Int, params ProofParams, records []MFAProviderData) (*types.Transaction, error) {
	return v.contract.Transact(opts, "batchUnvaultAndVerifyMFA", underlying, amount, requestID, isFungible, timestamp, [10]*big.Int(params), records)
}
