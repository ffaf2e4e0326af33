package orchestrator

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultblockmagic/vault/internal/chain"
	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/contracts"
	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/zkproof"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testVault   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	proofAddr   = common.HexToAddress("0xB9506dC2B7294842072E11b6BAED550DA3d8F455")
)

func dummyTx() *types.Transaction {
	return types.NewTransaction(1, testVault, big.NewInt(0), 21000, big.NewInt(1), nil)
}

type fakeSession struct {
	chainID uint64
	mined   int
}

func (s *fakeSession) Current() uint64         { return s.chainID }
func (s *fakeSession) Account() common.Address { return testAccount }
func (s *fakeSession) Backend() chain.Client   { return nil }
func (s *fakeSession) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: testAccount, Context: ctx}, nil
}
func (s *fakeSession) WaitMined(_ context.Context, _ *types.Transaction) (*types.Receipt, error) {
	s.mined++
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type vaultCall struct {
	method     string
	token      common.Address
	amount     *big.Int
	tokenID    *big.Int
	fungible   bool
	hash       *big.Int
	requestID  *big.Int
	timestamp  *big.Int
	underlying common.Address
	params     contracts.ProofParams
	records    []contracts.MFAProviderData
}

type fakeVault struct {
	calls []vaultCall
}

func (v *fakeVault) Address() common.Address { return testVault }

func (v *fakeVault) BatchVaultAndSetMFA(_ *bind.TransactOpts, token common.Address, amount, tokenID *big.Int, isFungible bool, passwordHash *big.Int, records []contracts.MFAProviderData) (*types.Transaction, error) {
	v.calls = append(v.calls, vaultCall{method: "vault", token: token, amount: amount, tokenID: tokenID, fungible: isFungible, hash: passwordHash, records: records})
	return dummyTx(), nil
}

func (v *fakeVault) BatchLockAndSetMFA(_ *bind.TransactOpts, token common.Address, isFungible bool, records []contracts.MFAProviderData, passwordHash *big.Int) (*types.Transaction, error) {
	v.calls = append(v.calls, vaultCall{method: "lock", token: token, fungible: isFungible, hash: passwordHash, records: records})
	return dummyTx(), nil
}

func (v *fakeVault) BatchUnlockAndVerifyMFA(_ *bind.TransactOpts, requestID *big.Int, isFungible bool, timestamp *big.Int, params contracts.ProofParams, records []contracts.MFAProviderData) (*types.Transaction, error) {
	v.calls = append(v.calls, vaultCall{method: "unlock", requestID: requestID, fungible: isFungible, timestamp: timestamp, params: params, records: records})
	return dummyTx(), nil
}

func (v *fakeVault) BatchUnvaultAndVerifyMFA(_ *bind.TransactOpts, underlying common.Address, amount, requestID *big.Int, isFungible bool, timestamp *big.Int, params contracts.ProofParams, records []contracts.MFAProviderData) (*types.Transaction, error) {
	v.calls = append(v.calls, vaultCall{method: "unvault", underlying: underlying, amount: amount, requestID: requestID, fungible: isFungible, timestamp: timestamp, params: params, records: records})
	return dummyTx(), nil
}

type fakeERC20 struct {
	allowance *big.Int
	approvals []*big.Int
}

func (t *fakeERC20) Allowance(_ context.Context, _, _ common.Address) (*big.Int, error) {
	return t.allowance, nil
}

func (t *fakeERC20) Approve(_ *bind.TransactOpts, _ common.Address, amount *big.Int) (*types.Transaction, error) {
	t.approvals = append(t.approvals, amount)
	return dummyTx(), nil
}

type fakeERC721 struct {
	approved bool
	setCalls int
}

func (t *fakeERC721) IsApprovedForAll(_ context.Context, _, _ common.Address) (bool, error) {
	return t.approved, nil
}

func (t *fakeERC721) SetApprovalForAll(_ *bind.TransactOpts, _ common.Address, _ bool) (*types.Transaction, error) {
	t.setCalls++
	return dummyTx(), nil
}

type fakeMirrored struct {
	lockID      *big.Int
	requestID   *big.Int
	underlying  common.Address
	disabled    bool
	unlockTime  *big.Int
	permanent   int
	setUnlockAt []*big.Int
}

func (m *fakeMirrored) LockID(_ context.Context) (*big.Int, error)    { return m.lockID, nil }
func (m *fakeMirrored) RequestID(_ context.Context) (*big.Int, error) { return m.requestID, nil }
func (m *fakeMirrored) UnderlyingAsset(_ context.Context) (common.Address, error) {
	return m.underlying, nil
}
func (m *fakeMirrored) TransferUnlockTimestamp(_ context.Context) (*big.Int, error) {
	return m.unlockTime, nil
}
func (m *fakeMirrored) TransfersDisabled(_ context.Context) (bool, error) { return m.disabled, nil }
func (m *fakeMirrored) DisableTransfersPermanently(_ *bind.TransactOpts) (*types.Transaction, error) {
	m.permanent++
	return dummyTx(), nil
}
func (m *fakeMirrored) SetTransferUnlockTimestamp(_ *bind.TransactOpts, unlockTime *big.Int) (*types.Transaction, error) {
	m.setUnlockAt = append(m.setUnlockAt, unlockTime)
	return dummyTx(), nil
}

type fakeSigner struct {
	requests []string
	response *clients.SignMFAResponse
}

func (s *fakeSigner) SignMFA(_ context.Context, _, requestID, _, _ string) (*clients.SignMFAResponse, error) {
	s.requests = append(s.requests, requestID)
	return s.response, nil
}

type fakeProver struct {
	result zkproof.Result
}

func (p *fakeProver) Prove(_ context.Context, _, _, _ *big.Int, _ string) (zkproof.Result, error) {
	return p.result, nil
}

type fixture struct {
	session  *fakeSession
	vault    *fakeVault
	erc20    *fakeERC20
	erc721   *fakeERC721
	mirrored *fakeMirrored
	signer   *fakeSigner
	orch     *Orchestrator
}

func newFixture(t *testing.T, registry *mfa.Registry) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	if registry == nil {
		registry = mfa.NewRegistry(logger)
	}

	f := &fixture{
		session:  &fakeSession{chainID: 43113},
		vault:    &fakeVault{},
		erc20:    &fakeERC20{allowance: big.NewInt(0)},
		erc721:   &fakeERC721{},
		mirrored: &fakeMirrored{lockID: big.NewInt(7), requestID: big.NewInt(9)},
		signer:   &fakeSigner{},
	}
	f.orch = NewOrchestrator(f.session, testVault, registry, f.signer, nil, nil, logger)
	f.orch.vault = func() VaultContract { return f.vault }
	f.orch.erc20At = func(common.Address) ERC20Token { return f.erc20 }
	f.orch.erc721At = func(common.Address) ERC721Token { return f.erc721 }
	f.orch.mirroredAt = func(common.Address) MirroredToken { return f.mirrored }
	f.orch.now = func() time.Time { return time.Unix(1714000000, 0) }
	return f
}

func TestVaultEmptyPasswordNoProviders(t *testing.T) {
	f := newFixture(t, nil)
	f.erc20.allowance = big.NewInt(100)

	result, err := f.orch.VaultAndSetMFA(context.Background(), VaultRequest{
		Token:    testToken,
		Fungible: true,
		Amount:   big.NewInt(50),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.TxHash)
	assert.Empty(t, result.ApprovalTxHash)

	require.Len(t, f.vault.calls, 1)
	call := f.vault.calls[0]
	assert.Equal(t, "vault", call.method)
	assert.Zero(t, call.hash.Sign())
	assert.Empty(t, call.records)
	assert.Empty(t, f.erc20.approvals)
}

func TestVaultApprovesWhenAmountExceedsAllowance(t *testing.T) {
	f := newFixture(t, nil)
	f.erc20.allowance = big.NewInt(5)

	result, err := f.orch.VaultAndSetMFA(context.Background(), VaultRequest{
		Token:    testToken,
		Fungible: true,
		Amount:   big.NewInt(10),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ApprovalTxHash)

	require.Len(t, f.erc20.approvals, 1)
	assert.Equal(t, big.NewInt(10), f.erc20.approvals[0])
	// approval mined first, then the main call
	assert.Equal(t, 2, f.session.mined)
	require.Len(t, f.vault.calls, 1)
}

func TestVaultSkipsApprovalWhenAllowanceSufficient(t *testing.T) {
	f := newFixture(t, nil)
	f.erc20.allowance = big.NewInt(10)

	_, err := f.orch.VaultAndSetMFA(context.Background(), VaultRequest{
		Token:    testToken,
		Fungible: true,
		Amount:   big.NewInt(10),
	})
	require.NoError(t, err)
	assert.Empty(t, f.erc20.approvals)
	assert.Equal(t, 1, f.session.mined)
}

func TestVaultRejectsNilFungibleAmount(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.VaultAndSetMFA(context.Background(), VaultRequest{
		Token:    testToken,
		Fungible: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount is required")
	assert.Empty(t, f.vault.calls)
	assert.Empty(t, f.erc20.approvals)
}

func TestVaultNonFungibleSetsCollectionApproval(t *testing.T) {
	f := newFixture(t, nil)
	f.erc721.approved = false

	_, err := f.orch.VaultAndSetMFA(context.Background(), VaultRequest{
		Token:   testToken,
		TokenID: big.NewInt(42),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.erc721.setCalls)

	require.Len(t, f.vault.calls, 1)
	call := f.vault.calls[0]
	assert.Zero(t, call.amount.Sign())
	assert.Equal(t, big.NewInt(42), call.tokenID)
	assert.False(t, call.fungible)
}

func TestLockHasNoApprovalStep(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.LockAndSetMFA(context.Background(), LockRequest{
		Token:    testToken,
		Fungible: true,
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Empty(t, f.erc20.approvals)

	require.Len(t, f.vault.calls, 1)
	assert.Equal(t, "lock", f.vault.calls[0].method)
	assert.Positive(t, f.vault.calls[0].hash.Sign())
}

func TestUnlockWallClockTimestampWithoutOTP(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.UnlockAndVerifyMFA(context.Background(), UnlockRequest{
		Token:    testToken,
		Fungible: true,
	})
	require.NoError(t, err)
	assert.Empty(t, f.signer.requests)

	require.Len(t, f.vault.calls, 1)
	call := f.vault.calls[0]
	assert.Equal(t, "unlock", call.method)
	assert.Equal(t, big.NewInt(7), call.requestID)
	assert.Equal(t, big.NewInt(1714000000), call.timestamp)
	for _, p := range call.params {
		assert.Zero(t, p.Sign())
	}
}

func TestUnlockTimestampFromSignedChallenge(t *testing.T) {
	f := newFixture(t, nil)
	f.signer.response = &clients.SignMFAResponse{
		SignedMessageOne: &clients.SignedMessage{Message: "alice-7-1699999999"},
	}

	_, err := f.orch.UnlockAndVerifyMFA(context.Background(), UnlockRequest{
		Token:        testToken,
		Fungible:     true,
		Username:     "alice",
		OTPSecretOne: "123456",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"7"}, f.signer.requests)
	assert.Equal(t, big.NewInt(1699999999), f.vault.calls[0].timestamp)
}

func TestUnlockPasswordIncorrectBlocksChainWrite(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	registry := mfa.NewRegistry(logger)
	registry.Register(mfa.NewPasswordProofProvider(proofAddr, &fakeProver{
		result: zkproof.Result{Status: zkproof.StatusPasswordIncorrect, Params: zkproof.ZeroParameters()},
	}))

	f := newFixture(t, registry)
	_, err := f.orch.UnlockAndVerifyMFA(context.Background(), UnlockRequest{
		Token:     testToken,
		Fungible:  true,
		Password:  "hunter2",
		Providers: []common.Address{proofAddr},
	})
	assert.ErrorIs(t, err, mfa.ErrPasswordIncorrect)
	assert.Empty(t, f.vault.calls)
}

func TestUnlockCarriesProofParams(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	params := zkproof.Parameters{"11", "12", "13", "14", "15", "16", "17", "18", "19", "20"}
	registry := mfa.NewRegistry(logger)
	registry.Register(mfa.NewPasswordProofProvider(proofAddr, &fakeProver{
		result: zkproof.Result{Status: zkproof.StatusOK, Params: params},
	}))

	f := newFixture(t, registry)
	_, err := f.orch.UnlockAndVerifyMFA(context.Background(), UnlockRequest{
		Token:     testToken,
		Fungible:  true,
		Password:  "hunter2",
		Providers: []common.Address{proofAddr},
	})
	require.NoError(t, err)
	require.Len(t, f.vault.calls, 1)
	assert.Equal(t, big.NewInt(11), f.vault.calls[0].params[0])
	assert.Equal(t, big.NewInt(20), f.vault.calls[0].params[9])
}

func TestUnvaultForwardsUnderlyingAndAmount(t *testing.T) {
	f := newFixture(t, nil)
	underlying := common.HexToAddress("0x4444444444444444444444444444444444444444")
	f.mirrored.underlying = underlying

	_, err := f.orch.UnvaultAndVerifyMFA(context.Background(), UnvaultRequest{
		Token:    testToken,
		Fungible: true,
		Amount:   big.NewInt(25),
	})
	require.NoError(t, err)

	require.Len(t, f.vault.calls, 1)
	call := f.vault.calls[0]
	assert.Equal(t, "unvault", call.method)
	assert.Equal(t, underlying, call.underlying)
	assert.Equal(t, big.NewInt(25), call.amount)
	assert.Equal(t, big.NewInt(9), call.requestID)
}

func TestTimelockPermanent(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.TimelockTransfers(context.Background(), testToken, PermanentLock)
	require.NoError(t, err)
	assert.Equal(t, 1, f.mirrored.permanent)
	assert.Empty(t, f.mirrored.setUnlockAt)
}

func TestTimelockUntilTimestamp(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.TimelockTransfers(context.Background(), testToken, "1999999999")
	require.NoError(t, err)
	assert.Zero(t, f.mirrored.permanent)
	require.Len(t, f.mirrored.setUnlockAt, 1)
	assert.Equal(t, big.NewInt(1999999999), f.mirrored.setUnlockAt[0])
}

func TestTransferRestrictions(t *testing.T) {
	f := newFixture(t, nil)
	f.mirrored.unlockTime = big.NewInt(1800000000)
	f.mirrored.disabled = true

	restrictions, err := f.orch.TransferRestrictions(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1800000000), restrictions.UnlockTimestamp)
	assert.True(t, restrictions.TransfersDisabled)
}
