// Package signer implements the off-chain MFA signing service: TOTP
// provisioning and verification, challenge signing with two dedicated
// signer keys, and the salted-password check used by the oracle provider.
package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vaultblockmagic/vault/internal/clients"
	"github.com/vaultblockmagic/vault/internal/models"
)

var (
	// ErrUnknownUsername the username has no provisioned secrets.
	ErrUnknownUsername = errors.New("username not registered")
	// ErrInvalidOTP no supplied OTP code verified against its secret.
	ErrInvalidOTP = errors.New("invalid OTP secrets")
	// ErrPasswordExists a password is already registered for the username.
	ErrPasswordExists = errors.New("password already exists for the user")
)

const (
	issuerOne = "Google MFA vault.token"
	issuerTwo = "Microsoft MFA vault.token"
)

// ProvisionResult carries the TOTP provisioning URIs for both slots.
type ProvisionResult struct {
	QRURIOne string `json:"qr_uri_one"`
	QRURITwo string `json:"qr_uri_two"`
}

// Service signs MFA challenges. The two signer keys correspond to the two
// external-signer provider slots.
type Service struct {
	db     *gorm.DB
	keyOne *ecdsa.PrivateKey
	keyTwo *ecdsa.PrivateKey
	logger *logrus.Logger

	now func() time.Time
}

func NewService(db *gorm.DB, keyOne, keyTwo *ecdsa.PrivateKey, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		db:     db,
		keyOne: keyOne,
		keyTwo: keyTwo,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterMFA provisions TOTP secrets for the username, reusing existing
// secrets so re-registration never invalidates a configured authenticator.
func (s *Service) RegisterMFA(ctx context.Context, username string) (*ProvisionResult, error) {
	var record models.UsernameSecret
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		keyOne, err := totp.Generate(totp.GenerateOpts{Issuer: issuerOne, AccountName: username})
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret: %w", err)
		}
		keyTwo, err := totp.Generate(totp.GenerateOpts{Issuer: issuerTwo, AccountName: username})
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret: %w", err)
		}
		record = models.UsernameSecret{
			Username:     username,
			OTPSecretOne: keyOne.Secret(),
			OTPSecretTwo: keyTwo.Secret(),
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, fmt.Errorf("failed to store secrets: %w", err)
		}
	case err != nil:
		return nil, err
	}

	uriOne, err := provisioningURI(issuerOne, username, record.OTPSecretOne)
	if err != nil {
		return nil, err
	}
	uriTwo, err := provisioningURI(issuerTwo, username, record.OTPSecretTwo)
	if err != nil {
		return nil, err
	}
	return &ProvisionResult{QRURIOne: uriOne, QRURITwo: uriTwo}, nil
}

// provisioningURI rebuilds the otpauth URL for an existing base32 secret.
func provisioningURI(issuer, account, secret string) (string, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("malformed stored secret: %w", err)
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Secret:      raw,
	})
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

// SignMFA verifies the supplied OTP codes and signs the challenge
// "<username>-<requestId>-<timestamp>" with the key of every slot whose code
// verified. At least one slot must verify.
func (s *Service) SignMFA(ctx context.Context, username, requestID, otpCodeOne, otpCodeTwo string) (*clients.SignMFAResponse, error) {
	var record models.UsernameSecret
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownUsername
	}
	if err != nil {
		return nil, err
	}

	timestamp := s.now().Unix()
	message := fmt.Sprintf("%s-%s-%s", username, requestID, strconv.FormatInt(timestamp, 10))

	response := &clients.SignMFAResponse{}
	if otpCodeOne != "" && totp.Validate(otpCodeOne, record.OTPSecretOne) {
		signed, err := signChallenge(s.keyOne, message)
		if err != nil {
			return nil, err
		}
		response.SignedMessageOne = signed
	}
	if otpCodeTwo != "" && totp.Validate(otpCodeTwo, record.OTPSecretTwo) {
		signed, err := signChallenge(s.keyTwo, message)
		if err != nil {
			return nil, err
		}
		response.SignedMessageTwo = signed
	}

	if response.SignedMessageOne == nil && response.SignedMessageTwo == nil {
		return nil, ErrInvalidOTP
	}
	return response, nil
}

// signChallenge signs the message with the Ethereum personal-sign scheme,
// returning the legacy 27/28 recovery id the verifying contract expects.
func signChallenge(key *ecdsa.PrivateKey, message string) (*clients.SignedMessage, error) {
	msgHash := accounts.TextHash([]byte(message))
	sig, err := crypto.Sign(msgHash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}
	return &clients.SignedMessage{
		Message: message,
		MsgHash: hexutil.Encode(msgHash),
		V:       sig[64] + 27,
		R:       hexutil.Encode(sig[:32]),
		S:       hexutil.Encode(sig[32:64]),
	}, nil
}

// RegisterPassword stores the plaintext password once; re-registration is
// rejected so a registered password can never be silently replaced.
func (s *Service) RegisterPassword(ctx context.Context, username, password string) error {
	var existing models.UsernamePassword
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.db.WithContext(ctx).Create(&models.UsernamePassword{
			Username: username,
			Password: password,
		}).Error
	case err != nil:
		return err
	}
	return ErrPasswordExists
}

// SignPassword checks a salted hash against the stored password: the claim
// holds when sha256(password + salt) equals the supplied hash.
func (s *Service) SignPassword(ctx context.Context, username, passwordHash, salt string) (bool, error) {
	var record models.UsernamePassword
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrUnknownUsername
	}
	if err != nil {
		return false, err
	}

	digest := sha256.Sum256([]byte(record.Password + salt))
	return hex.EncodeToString(digest[:]) == passwordHash, nil
}
