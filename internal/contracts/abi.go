// Package contracts holds hand-rolled bindings for the custody contract
// system: the VaultCore entry point, plain and mirrored token contracts, the
// TokenDataRetriever batch reader and the oracle-backed ExternalAPIMFA
// provider contract.
package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// mfaProviderComponents is the wire shape of one MFA provider record, shared
// by every batch entry point.
const mfaProviderComponents = `[
	{"name":"provider","type":"address"},
	{"name":"message","type":"string"},
	{"name":"v","type":"uint8"},
	{"name":"r","type":"bytes32"},
	{"name":"s","type":"bytes32"},
	{"name":"subscriptionId","type":"uint256"},
	{"name":"username","type":"string"},
	{"name":"mfaRequestId","type":"uint256"},
	{"name":"args","type":"string[]"}
]`

var vaultCoreABIJSON = `[
	{"type":"function","name":"setUsername","stateMutability":"nonpayable","inputs":[{"name":"username","type":"string"},{"name":"userAddress","type":"address"},{"name":"passwordHash","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"usernameAddress","stateMutability":"view","inputs":[{"name":"username","type":"string"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"usernames","stateMutability":"view","inputs":[{"name":"userAddress","type":"address"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"passwordHashes","stateMutability":"view","inputs":[{"name":"userAddress","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"batchVaultAndSetMFA","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"tokenId","type":"uint256"},{"name":"isERC20","type":"bool"},{"name":"passwordHash","type":"uint256"},{"name":"mfaProviderData","type":"tuple[]","components":` + mfaProviderComponents + `}],"outputs":[]},
	{"type":"function","name":"batchLockAndSetMFA","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"isERC20","type":"bool"},{"name":"mfaProviderData","type":"tuple[]","components":` + mfaProviderComponents + `},{"name":"passwordHash","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"batchUnlockAndVerifyMFA","stateMutability":"nonpayable","inputs":[{"name":"requestId","type":"uint256"},{"name":"isERC20","type":"bool"},{"name":"timestamp","type":"uint256"},{"name":"params","type":"uint256[10]"},{"name":"mfaProviderData","type":"tuple[]","components":` + mfaProviderComponents + `}],"outputs":[]},
	{"type":"function","name":"batchUnvaultAndVerifyMFA","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"requestId","type":"uint256"},{"name":"isERC20","type":"bool"},{"name":"timestamp","type":"uint256"},{"name":"params","type":"uint256[10]"},{"name":"mfaProviderData","type":"tuple[]","components":` + mfaProviderComponents + `}],"outputs":[]}
]`

var erc20ABIJSON = `[
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var erc721ABIJSON = `[
	{"type":"function","name":"isApprovedForAll","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"setApprovalForAll","stateMutability":"nonpayable","inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]}
]`

var mirroredABIJSON = `[
	{"type":"function","name":"lockId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"requestId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"underlyingAsset","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"transferUnlockTimestamp","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfersDisabled","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"disableTransfersPermanently","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"setTransferUnlockTimestamp","stateMutability":"nonpayable","inputs":[{"name":"time","type":"uint256"}],"outputs":[]}
]`

// tokenDataComponents is the batch reader's per-token result tuple.
const tokenDataComponents = `[
	{"name":"tokenAddress","type":"address"},
	{"name":"name","type":"string"},
	{"name":"symbol","type":"string"},
	{"name":"decimals","type":"uint8"},
	{"name":"balance","type":"uint256"},
	{"name":"tokenId","type":"uint256"},
	{"name":"vaulted","type":"bool"},
	{"name":"locked","type":"bool"},
	{"name":"vaultAuthOptions","type":"address[]"},
	{"name":"lockAuthOptions","type":"address[]"}
]`

var retrieverABIJSON = `[
	{"type":"function","name":"getERC20TokenData","stateMutability":"view","inputs":[{"name":"tokens","type":"address[]"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"tuple[]","components":` + tokenDataComponents + `}]},
	{"type":"function","name":"getERC721TokenData","stateMutability":"view","inputs":[{"name":"tokens","type":"address[]"},{"name":"tokenIds","type":"uint256[]"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"tuple[]","components":` + tokenDataComponents + `}]},
	{"type":"function","name":"getMirroredERC20TokenData","stateMutability":"view","inputs":[{"name":"tokens","type":"address[]"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"tuple[]","components":` + tokenDataComponents + `}]},
	{"type":"function","name":"getMirroredERC721TokenData","stateMutability":"view","inputs":[{"name":"tokens","type":"address[]"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"tuple[]","components":` + tokenDataComponents + `}]}
]`

var externalAPIMFAABIJSON = `[
	{"type":"function","name":"getCurrentRandomNumber","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// mustParseABI parses a compiled-in ABI definition or panics at init.
func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

var (
	vaultCoreABI      = mustParseABI(vaultCoreABIJSON)
	erc20ABI          = mustParseABI(erc20ABIJSON)
	erc721ABI         = mustParseABI(erc721ABIJSON)
	mirroredABI       = mustParseABI(mirroredABIJSON)
	retrieverABI      = mustParseABI(retrieverABIJSON)
	externalAPIMFAABI = mustParseABI(externalAPIMFAABIJSON)
)
