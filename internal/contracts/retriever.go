package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// TokenData is one batch-reader result row.
type TokenData struct {
	TokenAddress     common.Address
	Name             string
	Symbol           string
	Decimals         uint8
	Balance          *big.Int
	TokenId          *big.Int
	Vaulted          bool
	Locked           bool
	VaultAuthOptions []common.Address
	LockAuthOptions  []common.Address
}

// TokenDataRetriever binds the batch-query contract resolving token details
// in a single call per token class.
type TokenDataRetriever struct {
	contract *bind.BoundContract
}

func NewTokenDataRetriever(address common.Address, backend bind.ContractBackend) *TokenDataRetriever {
	return &TokenDataRetriever{contract: bind.NewBoundContract(address, retrieverABI, backend, backend, backend)}
}

func (r *TokenDataRetriever) call(ctx context.Context, method string, args ...interface{}) ([]TokenData, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]TokenData)).(*[]TokenData), nil
}

func (r *TokenDataRetriever) GetERC20TokenData(ctx context.Context, tokens []common.Address, owner common.Address) ([]TokenData, error) {
	return r.call(ctx, "getERC20TokenData", tokens, owner)
}

func (r *TokenDataRetriever) GetERC721TokenData(ctx context.Context, tokens []common.Address, tokenIDs []*big.Int, owner common.Address) ([]TokenData, error) {
	return r.call(ctx, "getERC721TokenData", tokens, tokenIDs, owner)
}

func (r *TokenDataRetriever) GetMirroredERC20TokenData(ctx context.Context, tokens []common.Address, owner common.Address) ([]TokenData, error) {
	return r.call(ctx, "getMirroredERC20TokenData", tokens, owner)
}

func (r *TokenDataRetriever) GetMirroredERC721TokenData(ctx context.Context, tokens []common.Address, owner common.Address) ([]TokenData, error) {
	return r.call(ctx, "getMirroredERC721TokenData", tokens, owner)
}
