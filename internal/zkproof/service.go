package zkproof

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrVerificationKeyUnavailable is returned when the circuit verification key
// cannot be loaded.
var ErrVerificationKeyUnavailable = errors.New("verification key unavailable")

// Status distinguishes a cryptographic mismatch (wrong password) from a
// usable proof. Infrastructure failures are ordinary errors, never a Status.
type Status int

const (
	StatusOK Status = iota
	StatusPasswordIncorrect
)

// Result of a proving run. Params are only meaningful when Status is
// StatusOK; no on-chain call may be issued from any other result.
type Result struct {
	Status Status
	Params Parameters
}

// Service generates and verifies password proofs and normalizes them into
// the on-chain parameter layout.
type Service struct {
	prover   Prover
	vkeyPath string
	logger   *logrus.Logger

	// readVKey is swappable for tests
	readVKey func(path string) ([]byte, error)
}

// NewService wires a prover backend with the verification key location.
func NewService(prover Prover, verificationKeyPath string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		prover:   prover,
		vkeyPath: verificationKeyPath,
		logger:   logger,
		readVKey: os.ReadFile,
	}
}

// Prove builds the witness from the password segments, commitment and
// timestamp, invokes the prover and verifies the result.
//
// A verification mismatch yields StatusPasswordIncorrect with a nil error:
// it is a business outcome, not an infrastructure failure. Prover invocation
// failures are returned as errors.
func (s *Service) Prove(ctx context.Context, seg0, seg1, providedHash *big.Int, timestamp string) (Result, error) {
	vkey, err := s.readVKey(s.vkeyPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrVerificationKeyUnavailable, err)
	}

	input := ProverInput{
		Password0:            seg0.String(),
		Password1:            seg1.String(),
		ProvidedPasswordHash: providedHash.String(),
		Timestamp:            timestamp,
	}

	proof, publicSignals, err := s.prover.Prove(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("proof generation failed: %w", err)
	}

	valid, err := s.prover.Verify(ctx, vkey, proof, publicSignals)
	if err != nil {
		return Result{}, fmt.Errorf("proof verification failed: %w", err)
	}
	if !valid {
		s.logger.WithField("timestamp", timestamp).Warn("password proof did not verify")
		return Result{Status: StatusPasswordIncorrect, Params: ZeroParameters()}, nil
	}

	return Result{Status: StatusOK, Params: Normalize(proof, publicSignals)}, nil
}
