package recovery

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/commitment"
	"github.com/vaultblockmagic/vault/internal/mfa"
	"github.com/vaultblockmagic/vault/internal/zkproof"
)

var testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")

type fakeSession struct{}

func (fakeSession) Account() common.Address { return testAccount }
func (fakeSession) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: testAccount, Context: ctx}, nil
}
func (fakeSession) WaitMined(_ context.Context, _ *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type fakeVault struct {
	mappedUsername string
	mappedAddress  common.Address
	storedHash     *big.Int
	setCalls       []string
}

func (v *fakeVault) SetUsername(_ *bind.TransactOpts, username string, _ common.Address, _ *big.Int) (*types.Transaction, error) {
	v.setCalls = append(v.setCalls, username)
	return types.NewTransaction(1, testAccount, big.NewInt(0), 21000, big.NewInt(1), nil), nil
}

func (v *fakeVault) UsernameAddress(_ context.Context, _ string) (common.Address, error) {
	return v.mappedAddress, nil
}

func (v *fakeVault) Usernames(_ context.Context, _ common.Address) (string, error) {
	return v.mappedUsername, nil
}

func (v *fakeVault) PasswordHashes(_ context.Context, _ common.Address) (*big.Int, error) {
	return v.storedHash, nil
}

type fakeRegistrar struct {
	recoverReqs []clients.RecoverENSRequest
	ensCalls    []string
	pwCalls     []string
	recoverErr  error
}

func (r *fakeRegistrar) RegisterPassword(_ context.Context, username, _ string) error {
	r.pwCalls = append(r.pwCalls, username)
	return nil
}

func (r *fakeRegistrar) RegisterENS(_ context.Context, name, _, _ string) error {
	r.ensCalls = append(r.ensCalls, name)
	return nil
}

func (r *fakeRegistrar) RecoverENS(_ context.Context, req clients.RecoverENSRequest) error {
	r.recoverReqs = append(r.recoverReqs, req)
	return r.recoverErr
}

type fakeProver struct {
	result zkproof.Result
	err    error
}

func (p *fakeProver) Prove(_ context.Context, _, _, _ *big.Int, _ string) (zkproof.Result, error) {
	return p.result, p.err
}

func newFlow(vault *fakeVault, registrar *fakeRegistrar, prover *fakeProver) *Flow {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	flow := NewFlow(fakeSession{}, func() VaultAccount { return vault }, registrar, prover, logger)
	flow.now = func() time.Time { return time.Unix(1714000000, 0) }
	return flow
}

func TestRecoverPostsProofToRegistrar(t *testing.T) {
	params := zkproof.Parameters{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	registrar := &fakeRegistrar{}
	flow := newFlow(&fakeVault{}, registrar, &fakeProver{
		result: zkproof.Result{Status: zkproof.StatusOK, Params: params},
	})

	result, err := flow.Recover(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Username)
	assert.Equal(t, testAccount.Hex(), result.NewAddress)
	assert.Equal(t, 2*time.Minute, result.SettlementDelay)

	require.Len(t, registrar.recoverReqs, 1)
	req := registrar.recoverReqs[0]
	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, testAccount.Hex(), req.NewUserAddress)
	assert.Equal(t, "1714000000", req.Timestamp)
	assert.Equal(t, "1", req.Params.PA0)

	expected, err := commitment.FromPassword("hunter2")
	require.NoError(t, err)
	assert.Equal(t, expected.String(), req.PasswordHash)
}

func TestRecoverPasswordIncorrectSkipsRegistrar(t *testing.T) {
	registrar := &fakeRegistrar{}
	flow := newFlow(&fakeVault{}, registrar, &fakeProver{
		result: zkproof.Result{Status: zkproof.StatusPasswordIncorrect, Params: zkproof.ZeroParameters()},
	})

	_, err := flow.Recover(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, mfa.ErrPasswordIncorrect)
	assert.Empty(t, registrar.recoverReqs)
}

func TestRecoverRegistrarFailure(t *testing.T) {
	registrar := &fakeRegistrar{recoverErr: errors.New("address already registered")}
	flow := newFlow(&fakeVault{}, registrar, &fakeProver{
		result: zkproof.Result{Status: zkproof.StatusOK, Params: zkproof.ZeroParameters()},
	})

	_, err := flow.Recover(context.Background(), "alice", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered address")
}

func TestSetUsernameRegistersNameAndPassword(t *testing.T) {
	vault := &fakeVault{}
	registrar := &fakeRegistrar{}
	flow := newFlow(vault, registrar, &fakeProver{})

	require.NoError(t, flow.SetUsername(context.Background(), "alice", "hunter2"))
	assert.Equal(t, []string{"alice"}, vault.setCalls)
	assert.Equal(t, []string{"alice"}, registrar.ensCalls)
	assert.Equal(t, []string{"alice"}, registrar.pwCalls)
}

func TestSetUsernameEmptyPasswordSkipsPasswordRegistration(t *testing.T) {
	vault := &fakeVault{}
	registrar := &fakeRegistrar{}
	flow := newFlow(vault, registrar, &fakeProver{})

	require.NoError(t, flow.SetUsername(context.Background(), "alice", ""))
	assert.Equal(t, []string{"alice"}, registrar.ensCalls)
	assert.Empty(t, registrar.pwCalls)
}

func TestCheckUsernameExists(t *testing.T) {
	flow := newFlow(&fakeVault{mappedAddress: testAccount}, &fakeRegistrar{}, &fakeProver{})
	exists, err := flow.CheckUsernameExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	flow = newFlow(&fakeVault{}, &fakeRegistrar{}, &fakeProver{})
	exists, err = flow.CheckUsernameExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCheckUsernameAndPasswordDecisions(t *testing.T) {
	hash, err := commitment.FromPassword("hunter2")
	require.NoError(t, err)

	registered := &fakeVault{
		mappedUsername: "alice",
		mappedAddress:  testAccount,
		storedHash:     hash,
	}
	flow := newFlow(registered, &fakeRegistrar{}, &fakeProver{})

	decision, err := flow.CheckUsernameAndPassword(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, DecisionSkipMFA, decision)

	decision, err = flow.CheckUsernameAndPassword(context.Background(), "alice", "wrong")
	require.NoError(t, err)
	assert.Equal(t, DecisionInvalidCredentials, decision)

	decision, err = flow.CheckUsernameAndPassword(context.Background(), "bob", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, DecisionInvalidCredentials, decision)

	empty := &fakeVault{storedHash: big.NewInt(0)}
	flow = newFlow(empty, &fakeRegistrar{}, &fakeProver{})
	decision, err = flow.CheckUsernameAndPassword(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, DecisionProceedMFA, decision)

	// username mapped but no stored hash: mappings disagree
	inconsistent := &fakeVault{mappedUsername: "alice", mappedAddress: testAccount, storedHash: big.NewInt(0)}
	flow = newFlow(inconsistent, &fakeRegistrar{}, &fakeProver{})
	decision, err = flow.CheckUsernameAndPassword(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, DecisionInvalidState, decision)
}
