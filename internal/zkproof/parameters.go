package zkproof

// Parameters is the fixed 10-element proof encoding expected by the on-chain
// verifier: A0, A1, B01, B00, B11, B10, C0, C1, pubSignal0, pubSignal1.
// Note the coordinate swap inside each B pair relative to the raw proof; the
// verifier consumes the B point in that byte order.
type Parameters [10]string

// ZeroParameters is the default/unset tuple submitted when no password proof
// participates in an operation.
func ZeroParameters() Parameters {
	return Parameters{"0", "0", "0", "0", "0", "0", "0", "0", "0", "0"}
}

// Proof is the raw Groth16 proof as produced by the prover, before
// normalization.
type Proof struct {
	PiA [2]string    `json:"pi_a"`
	PiB [2][2]string `json:"pi_b"`
	PiC [2]string    `json:"pi_c"`
}

// Normalize flattens a raw proof and its public signals into the on-chain
// parameter layout, swapping the inner coordinates of both B pairs.
func Normalize(proof Proof, publicSignals [2]string) Parameters {
	return Parameters{
		proof.PiA[0],
		proof.PiA[1],
		proof.PiB[0][1],
		proof.PiB[0][0],
		proof.PiB[1][1],
		proof.PiB[1][0],
		proof.PiC[0],
		proof.PiC[1],
		publicSignals[0],
		publicSignals[1],
	}
}
