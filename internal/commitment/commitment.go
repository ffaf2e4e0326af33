// Package commitment derives the numeric password commitment consumed by the
// on-chain verifier. A password of up to 48 characters is split into two
// segments of up to 24 characters, each segment is encoded as a decimal
// integer (three zero-padded digits per character code), and the two segment
// integers are hashed with a 2-input Poseidon permutation over the BN254
// scalar field.
//
// Commitments are never persisted; callers recompute them per operation. An
// empty password is the sentinel commitment 0 and bypasses the hash entirely.
package commitment

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

const maxSegmentLen = 24

// ErrValueTooLong is returned when a password segment would exceed 24 characters.
var ErrValueTooLong = errors.New("string length must be 24 characters or less per segment")

// Split partitions a password into its two commitment segments. The second
// segment is empty when the password fits in the first.
func Split(password string) (string, string, error) {
	if len(password) > 2*maxSegmentLen {
		return "", "", ErrValueTooLong
	}
	if len(password) <= maxSegmentLen {
		return password, "", nil
	}
	return password[:maxSegmentLen], password[maxSegmentLen:], nil
}

// SegmentToInt encodes a segment as the integer formed by concatenating each
// character's code zero-padded to three decimal digits. The empty segment
// encodes to 0.
func SegmentToInt(segment string) (*big.Int, error) {
	if len(segment) > maxSegmentLen {
		return nil, ErrValueTooLong
	}
	if segment == "" {
		return big.NewInt(0), nil
	}
	var sb strings.Builder
	for _, c := range []byte(segment) {
		sb.WriteString(fmt.Sprintf("%03d", c))
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse encoded segment %q", segment)
	}
	return n, nil
}

// IntToSegment is the inverse of SegmentToInt.
func IntToSegment(n *big.Int) string {
	digits := n.Text(10)
	if n.Sign() == 0 {
		return ""
	}
	for len(digits)%3 != 0 {
		digits = "0" + digits
	}
	var sb strings.Builder
	for i := 0; i < len(digits); i += 3 {
		var code int
		fmt.Sscanf(digits[i:i+3], "%d", &code)
		sb.WriteByte(byte(code))
	}
	return sb.String()
}

// Commit hashes the two segment integers with Poseidon over BN254.
// Callers special-case the empty password to commitment 0; Commit is never
// invoked for it.
func Commit(seg0, seg1 *big.Int) *big.Int {
	var e0, e1 fr.Element
	e0.SetBigInt(seg0)
	e1.SetBigInt(seg1)

	hasher := poseidon2.NewMerkleDamgardHasher()
	b0 := e0.Bytes()
	b1 := e1.Bytes()
	hasher.Write(b0[:])
	hasher.Write(b1[:])
	return new(big.Int).SetBytes(hasher.Sum(nil))
}

// FromPassword is the full derivation: split, encode, hash. The empty
// password yields the sentinel commitment 0.
func FromPassword(password string) (*big.Int, error) {
	if password == "" {
		return big.NewInt(0), nil
	}
	seg0, seg1, err := Split(password)
	if err != nil {
		return nil, err
	}
	n0, err := SegmentToInt(seg0)
	if err != nil {
		return nil, err
	}
	n1, err := SegmentToInt(seg1)
	if err != nil {
		return nil, err
	}
	return Commit(n0, n1), nil
}
