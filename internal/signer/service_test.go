package signer

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignChallengeRecoversToSignerAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signed, err := signChallenge(key, "alice-7-1714000000")
	require.NoError(t, err)

	assert.Equal(t, "alice-7-1714000000", signed.Message)
	assert.Contains(t, []uint8{27, 28}, signed.V)

	// reassemble the 65-byte signature and recover the public key
	r, err := hexutil.Decode(signed.R)
	require.NoError(t, err)
	s, err := hexutil.Decode(signed.S)
	require.NoError(t, err)
	sig := append(append(r, s...), signed.V-27)

	msgHash := accounts.TextHash([]byte(signed.Message))
	assert.Equal(t, hexutil.Encode(msgHash), signed.MsgHash)

	recovered, err := crypto.SigToPub(msgHash, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(*recovered))
}

func TestSignedMessageTimestampField(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signed, err := signChallenge(key, "alice-42-1699999999")
	require.NoError(t, err)

	ts, err := signed.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, "1699999999", ts)
}

func TestTOTPCodeRoundTrip(t *testing.T) {
	generated, err := totp.Generate(totp.GenerateOpts{Issuer: issuerOne, AccountName: "alice"})
	require.NoError(t, err)

	code, err := totp.GenerateCode(generated.Secret(), time.Now())
	require.NoError(t, err)
	assert.True(t, totp.Validate(code, generated.Secret()))
	assert.False(t, totp.Validate("000000", generated.Secret()))
}

func TestProvisioningURIPreservesSecret(t *testing.T) {
	generated, err := totp.Generate(totp.GenerateOpts{Issuer: issuerTwo, AccountName: "alice"})
	require.NoError(t, err)

	uri, err := provisioningURI(issuerTwo, "alice", generated.Secret())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "secret="+generated.Secret())
	assert.Contains(t, uri, "alice")
}
