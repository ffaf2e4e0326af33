package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultblockmagic/vault/internal/config"
)

type fakeClient struct {
	Client // unimplemented methods panic; the manager only needs ChainID/Close here
	id     *big.Int
}

func (f *fakeClient) ChainID(ctx context.Context) (*big.Int, error) { return f.id, nil }
func (f *fakeClient) Close()                                        {}

var testChains = config.ChainsConfig{
	Primary: config.ChainDescriptor{
		ChainID: 43113, Name: "Avalanche Fuji", RPCURL: "http://fuji.local",
	},
	Secondary: config.ChainDescriptor{
		ChainID: 421614, Name: "Arbitrum Sepolia", RPCURL: "http://arbsepolia.local",
	},
}

// testKey is a throwaway key, never used on a live network.
const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func newTestManager(t *testing.T, ids map[string]uint64) *Manager {
	t.Helper()
	m := NewManager(testChains, config.WalletConfig{PrivateKey: testKey}, nil)
	m.dial = func(rawurl string) (Client, error) {
		id, ok := ids[rawurl]
		require.True(t, ok, "unexpected dial %s", rawurl)
		return &fakeClient{id: new(big.Int).SetUint64(id)}, nil
	}
	return m
}

func TestConnectEstablishesPrimary(t *testing.T) {
	m := newTestManager(t, map[string]uint64{
		"http://fuji.local": 43113,
	})
	require.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, uint64(43113), m.Current())
	assert.Equal(t, "Avalanche Fuji", m.Descriptor().Name)
}

func TestConnectWithoutWallet(t *testing.T) {
	m := NewManager(testChains, config.WalletConfig{}, nil)
	assert.ErrorIs(t, m.Connect(context.Background()), ErrWalletAbsent)
}

func TestConnectUnsupportedChain(t *testing.T) {
	m := newTestManager(t, map[string]uint64{
		"http://fuji.local": 1, // mainnet, not supported
	})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrUnsupportedChain)
}

func TestSwitchChainTogglesStrictly(t *testing.T) {
	m := newTestManager(t, map[string]uint64{
		"http://fuji.local":       43113,
		"http://arbsepolia.local": 421614,
	})
	require.NoError(t, m.Connect(context.Background()))

	seen := map[uint64]bool{}
	for i := 0; i < 6; i++ {
		desc, err := m.SwitchChain(context.Background())
		require.NoError(t, err)
		assert.Equal(t, desc.ChainID, m.Current())
		seen[m.Current()] = true
	}
	// Never a third value.
	assert.Equal(t, map[uint64]bool{43113: true, 421614: true}, seen)
	// Even count of toggles lands back on primary.
	assert.Equal(t, uint64(43113), m.Current())
}

func TestSwitchChainRejectsForeignCurrent(t *testing.T) {
	m := newTestManager(t, map[string]uint64{"http://fuji.local": 43113})
	require.NoError(t, m.Connect(context.Background()))
	m.current = 1337 // simulate an out-of-band wallet switch to an unknown chain

	_, err := m.SwitchChain(context.Background())
	assert.ErrorIs(t, err, ErrChainMismatch)
}

func TestTransactorBindsCurrentChain(t *testing.T) {
	m := newTestManager(t, map[string]uint64{
		"http://fuji.local":       43113,
		"http://arbsepolia.local": 421614,
	})
	require.NoError(t, m.Connect(context.Background()))

	opts, err := m.Transactor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, m.Account(), opts.From)

	_, err = m.SwitchChain(context.Background())
	require.NoError(t, err)
	// A transactor built after the switch signs for the new chain; the old
	// one must not be reused, which is why Transactor is called per pipeline.
	opts2, err := m.Transactor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, opts.From, opts2.From)
}
