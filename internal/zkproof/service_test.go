package zkproof

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProver struct {
	proof     Proof
	signals   [2]string
	proveErr  error
	valid     bool
	verifyErr error
}

func (f *fakeProver) Prove(ctx context.Context, input ProverInput) (Proof, [2]string, error) {
	if f.proveErr != nil {
		return Proof{}, [2]string{}, f.proveErr
	}
	return f.proof, f.signals, nil
}

func (f *fakeProver) Verify(ctx context.Context, vkey []byte, proof Proof, signals [2]string) (bool, error) {
	return f.valid, f.verifyErr
}

func newTestService(p Prover) *Service {
	s := NewService(p, "verification_key.json", nil)
	s.readVKey = func(string) ([]byte, error) { return []byte(`{"protocol":"groth16"}`), nil }
	return s
}

func TestNormalizeSwapsBCoordinates(t *testing.T) {
	proof := Proof{
		PiA: [2]string{"a0", "a1"},
		PiB: [2][2]string{{"b00", "b01"}, {"b10", "b11"}},
		PiC: [2]string{"c0", "c1"},
	}
	params := Normalize(proof, [2]string{"s0", "s1"})

	assert.Equal(t, Parameters{"a0", "a1", "b01", "b00", "b11", "b10", "c0", "c1", "s0", "s1"}, params)
}

func TestZeroParameters(t *testing.T) {
	for _, v := range ZeroParameters() {
		assert.Equal(t, "0", v)
	}
}

func TestProveSuccess(t *testing.T) {
	prover := &fakeProver{
		proof: Proof{
			PiA: [2]string{"1", "2"},
			PiB: [2][2]string{{"3", "4"}, {"5", "6"}},
			PiC: [2]string{"7", "8"},
		},
		signals: [2]string{"9", "10"},
		valid:   true,
	}
	svc := newTestService(prover)

	result, err := svc.Prove(context.Background(), big.NewInt(1), big.NewInt(0), big.NewInt(42), "1700000000")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, Parameters{"1", "2", "4", "3", "6", "5", "7", "8", "9", "10"}, result.Params)
}

func TestProveIncorrectPasswordIsNotAnError(t *testing.T) {
	svc := newTestService(&fakeProver{valid: false})

	result, err := svc.Prove(context.Background(), big.NewInt(1), big.NewInt(0), big.NewInt(42), "1700000000")
	require.NoError(t, err)
	assert.Equal(t, StatusPasswordIncorrect, result.Status)
	assert.Equal(t, ZeroParameters(), result.Params)
}

func TestProveInfrastructureFailure(t *testing.T) {
	svc := newTestService(&fakeProver{proveErr: errors.New("connection refused")})

	_, err := svc.Prove(context.Background(), big.NewInt(1), big.NewInt(0), big.NewInt(42), "1700000000")
	assert.Error(t, err)
}

func TestProveVerificationKeyUnavailable(t *testing.T) {
	svc := newTestService(&fakeProver{valid: true})
	svc.readVKey = func(string) ([]byte, error) { return nil, errors.New("no such file") }

	_, err := svc.Prove(context.Background(), big.NewInt(1), big.NewInt(0), big.NewInt(42), "1700000000")
	assert.ErrorIs(t, err, ErrVerificationKeyUnavailable)
}
