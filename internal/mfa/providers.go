package mfa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vaultblockmagic/vault/internal/commitment"
	"github.com/vaultblockmagic/vault/internal/contracts"
	"github.com/vaultblockmagic/vault/internal/zkproof"
)

// ErrPasswordIncorrect reports that the password proof failed verification.
// Callers abort before submitting any transaction.
var ErrPasswordIncorrect = errors.New("password is incorrect")

// NonceSource supplies the oracle provider's current random nonce. It is
// re-resolved against the active chain on every call.
type NonceSource interface {
	CurrentRandomNumber(ctx context.Context) (*big.Int, error)
}

// PasswordProver produces normalized proof parameters for a password claim.
type PasswordProver interface {
	Prove(ctx context.Context, seg0, seg1, providedHash *big.Int, timestamp string) (zkproof.Result, error)
}

// externalSignerProvider consumes one slot of the off-chain signing
// service's response. Enrollment needs no payload.
type externalSignerProvider struct {
	address common.Address
	slot    int
}

// NewExternalSignerProvider builds a provider for signing slot 1 or 2.
func NewExternalSignerProvider(address common.Address, slot int) Provider {
	return &externalSignerProvider{address: address, slot: slot}
}

func (p *externalSignerProvider) Address() common.Address { return p.address }

func (p *externalSignerProvider) BuildEnrollment(_ context.Context, _ *EnrollmentContext) (contracts.MFAProviderData, error) {
	return zeroRecord(p.address), nil
}

func (p *externalSignerProvider) BuildVerification(_ context.Context, vc *VerificationContext) (contracts.MFAProviderData, error) {
	if vc.SignResponse == nil {
		return contracts.MFAProviderData{}, fmt.Errorf("no signing response available for provider %s", p.address.Hex())
	}
	signed := vc.SignResponse.SignedMessageOne
	if p.slot == 2 {
		signed = vc.SignResponse.SignedMessageTwo
	}
	if signed == nil {
		return contracts.MFAProviderData{}, fmt.Errorf("signing slot %d missing for provider %s", p.slot, p.address.Hex())
	}

	record := zeroRecord(p.address)
	record.Message = signed.Message
	record.V = signed.V
	record.R = common.HexToHash(signed.R)
	record.S = common.HexToHash(signed.S)
	return record, nil
}

// oracleAPIProvider drives the off-chain oracle check. Its record carries a
// chain-specific subscription id and, during verification, a salted hash of
// the password so the oracle can compare without seeing the plaintext.
type oracleAPIProvider struct {
	address       common.Address
	nonce         NonceSource
	subscriptions map[uint64]string
}

func NewOracleAPIProvider(address common.Address, nonce NonceSource, subscriptions map[uint64]string) Provider {
	return &oracleAPIProvider{address: address, nonce: nonce, subscriptions: subscriptions}
}

func (p *oracleAPIProvider) Address() common.Address { return p.address }

func (p *oracleAPIProvider) subscriptionFor(chainID uint64) (*big.Int, error) {
	raw, ok := p.subscriptions[chainID]
	if !ok {
		return nil, fmt.Errorf("no oracle subscription for chain %d", chainID)
	}
	sub, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("malformed oracle subscription id %q", raw)
	}
	return sub, nil
}

func (p *oracleAPIProvider) BuildEnrollment(_ context.Context, ec *EnrollmentContext) (contracts.MFAProviderData, error) {
	sub, err := p.subscriptionFor(ec.ChainID)
	if err != nil {
		return contracts.MFAProviderData{}, err
	}
	record := zeroRecord(p.address)
	record.SubscriptionId = sub
	record.Username = ec.Username
	return record, nil
}

func (p *oracleAPIProvider) BuildVerification(ctx context.Context, vc *VerificationContext) (contracts.MFAProviderData, error) {
	// The subscription id depends on the chain id as it is right now, not
	// as it was when the flow started.
	sub, err := p.subscriptionFor(vc.CurrentChainID())
	if err != nil {
		return contracts.MFAProviderData{}, err
	}
	nonce, err := p.nonce.CurrentRandomNumber(ctx)
	if err != nil {
		return contracts.MFAProviderData{}, fmt.Errorf("failed to fetch oracle nonce: %w", err)
	}

	digest := sha256.Sum256([]byte(vc.Password + nonce.String()))
	saltedHash := hex.EncodeToString(digest[:])

	record := zeroRecord(p.address)
	record.SubscriptionId = sub
	record.Username = vc.Username
	record.Args = []string{vc.Username, saltedHash, nonce.String()}
	return record, nil
}

// passwordProofProvider triggers proof generation during verification and
// deposits the normalized parameters on the context. Its own record carries
// no payload; the proof travels in the transaction's dedicated argument.
type passwordProofProvider struct {
	address common.Address
	prover  PasswordProver
}

func NewPasswordProofProvider(address common.Address, prover PasswordProver) Provider {
	return &passwordProofProvider{address: address, prover: prover}
}

func (p *passwordProofProvider) Address() common.Address { return p.address }

func (p *passwordProofProvider) BuildEnrollment(_ context.Context, _ *EnrollmentContext) (contracts.MFAProviderData, error) {
	return zeroRecord(p.address), nil
}

func (p *passwordProofProvider) BuildVerification(ctx context.Context, vc *VerificationContext) (contracts.MFAProviderData, error) {
	seg0, seg1, err := commitment.Split(vc.Password)
	if err != nil {
		return contracts.MFAProviderData{}, err
	}
	n0, err := commitment.SegmentToInt(seg0)
	if err != nil {
		return contracts.MFAProviderData{}, err
	}
	n1, err := commitment.SegmentToInt(seg1)
	if err != nil {
		return contracts.MFAProviderData{}, err
	}
	result, err := p.prover.Prove(ctx, n0, n1, vc.Commitment, vc.Timestamp)
	if err != nil {
		return contracts.MFAProviderData{}, err
	}
	if result.Status != zkproof.StatusOK {
		return contracts.MFAProviderData{}, ErrPasswordIncorrect
	}
	vc.Proof = result.Params
	return zeroRecord(p.address), nil
}
