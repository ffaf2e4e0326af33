// Package mfa maps provider identities to the logic that builds their
// enrollment and verification records. The registry is populated from
// configuration; orchestration code never dispatches on provider addresses.
package mfa

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/config"
	"github.com/vaultblockmagic/vault/internal/contracts"
	"github.com/vaultblockmagic/vault/internal/zkproof"
)

// EnrollmentContext carries the inputs for setting up MFA on an asset.
type EnrollmentContext struct {
	ChainID  uint64
	Username string
}

// VerificationContext carries the inputs for proving a second factor.
// CurrentChainID is a getter rather than a value: chain-dependent parameters
// must be chosen against the chain id as it is at the moment of use.
type VerificationContext struct {
	CurrentChainID func() uint64
	Username       string
	Password       string
	Commitment     *big.Int
	Timestamp      string
	SignResponse   *clients.SignMFAResponse

	// Proof is populated by the password-proof provider; it stays the zero
	// tuple when that provider is not engaged.
	Proof zkproof.Parameters
}

// Provider builds the records for one MFA mechanism.
type Provider interface {
	Address() common.Address
	BuildEnrollment(ctx context.Context, ec *EnrollmentContext) (contracts.MFAProviderData, error)
	BuildVerification(ctx context.Context, vc *VerificationContext) (contracts.MFAProviderData, error)
}

// Registry resolves provider identities to capabilities.
type Registry struct {
	providers map[common.Address]Provider
	logger    *logrus.Logger
}

func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		providers: make(map[common.Address]Provider),
		logger:    logger,
	}
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Address()] = p
}

// BuildEnrollmentRecords builds one record per requested provider. An
// identity absent from the registry is skipped without error; this mirrors
// the contract-side behavior of ignoring unknown providers.
func (r *Registry) BuildEnrollmentRecords(ctx context.Context, ids []common.Address, ec *EnrollmentContext) ([]contracts.MFAProviderData, error) {
	records := make([]contracts.MFAProviderData, 0, len(ids))
	for _, id := range ids {
		provider, ok := r.providers[id]
		if !ok {
			r.logger.WithField("provider", id.Hex()).Debug("skipping unknown MFA provider")
			continue
		}
		record, err := provider.BuildEnrollment(ctx, ec)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// BuildVerificationRecords builds one record per requested provider and
// returns the proof parameters contributed by the password-proof provider
// (the zero tuple otherwise). A failed password proof aborts before any
// record set is finalized.
func (r *Registry) BuildVerificationRecords(ctx context.Context, ids []common.Address, vc *VerificationContext) ([]contracts.MFAProviderData, zkproof.Parameters, error) {
	vc.Proof = zkproof.ZeroParameters()
	records := make([]contracts.MFAProviderData, 0, len(ids))
	for _, id := range ids {
		provider, ok := r.providers[id]
		if !ok {
			r.logger.WithField("provider", id.Hex()).Debug("skipping unknown MFA provider")
			continue
		}
		record, err := provider.BuildVerification(ctx, vc)
		if err != nil {
			return nil, zkproof.ZeroParameters(), err
		}
		records = append(records, record)
	}
	return records, vc.Proof, nil
}

// NewRegistryFromConfig instantiates every configured provider. Subscriptions
// map chain ids to the oracle subscription id used on that chain.
func NewRegistryFromConfig(entries []config.MFAProviderConfig, nonce NonceSource, prover PasswordProver, subscriptions map[uint64]string, logger *logrus.Logger) (*Registry, error) {
	registry := NewRegistry(logger)
	for _, entry := range entries {
		if !common.IsHexAddress(entry.Address) {
			return nil, fmt.Errorf("invalid address %q for MFA provider %s", entry.Address, entry.Name)
		}
		address := common.HexToAddress(entry.Address)
		switch entry.Kind {
		case "external_signer":
			if entry.Slot != 1 && entry.Slot != 2 {
				return nil, fmt.Errorf("MFA provider %s: slot must be 1 or 2, got %d", entry.Name, entry.Slot)
			}
			registry.Register(NewExternalSignerProvider(address, entry.Slot))
		case "oracle_api":
			registry.Register(NewOracleAPIProvider(address, nonce, subscriptions))
		case "password_proof":
			registry.Register(NewPasswordProofProvider(address, prover))
		default:
			return nil, fmt.Errorf("MFA provider %s: unknown kind %q", entry.Name, entry.Kind)
		}
	}
	return registry, nil
}

// zeroRecord is the identity-only record shape shared by providers that
// carry no payload in a given phase.
func zeroRecord(provider common.Address) contracts.MFAProviderData {
	return contracts.MFAProviderData{
		Provider:       provider,
		Message:        "",
		V:              0,
		R:              [32]byte{},
		S:              [32]byte{},
		SubscriptionId: big.NewInt(0),
		Username:       "",
		MfaRequestId:   big.NewInt(0),
		Args:           []string{},
	}
}
