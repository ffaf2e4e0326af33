package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Chains    ChainsConfig    `yaml:"chains"`
	Contracts ContractsConfig `yaml:"contracts"`
	MFA       MFAConfig       `yaml:"mfa"`
	Prover    ProverConfig    `yaml:"prover"`
	Services  ServicesConfig  `yaml:"services"`
	NATS      NATSConfig      `yaml:"nats"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration; DSN empty disables the operation journal
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AuthConfig JWT auth configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Enabled   bool   `yaml:"enabled"`
}

// WalletConfig signing wallet configuration.
// Either a raw private key (hex, no 0x prefix) or a keystore file + passphrase.
type WalletConfig struct {
	PrivateKey         string `yaml:"privateKey"`
	KeystorePath       string `yaml:"keystorePath"`
	KeystorePassphrase string `yaml:"keystorePassphrase"`
	GasLimit           uint64 `yaml:"gasLimit"`
	GasPriceGwei       int64  `yaml:"gasPriceGwei"`
}

// ChainDescriptor describes one of the two supported networks
type ChainDescriptor struct {
	ChainID          uint64 `yaml:"chainId"`
	Name             string `yaml:"name"`
	RPCURL           string `yaml:"rpcUrl"`
	NativeSymbol     string `yaml:"nativeSymbol"`
	BlockExplorerURL string `yaml:"blockExplorerUrl"`
	// Subscription id routing oracle MFA requests on this chain
	OracleSubscriptionID string `yaml:"oracleSubscriptionId"`
	// Chain selector understood by the token indexing service
	IndexerSelector string `yaml:"indexerSelector"`
}

// ChainsConfig exactly two supported networks; Primary is the connect target
type ChainsConfig struct {
	Primary   ChainDescriptor `yaml:"primary"`
	Secondary ChainDescriptor `yaml:"secondary"`
}

// ContractsConfig on-chain contract addresses (identical on both networks)
type ContractsConfig struct {
	VaultCore          string `yaml:"vaultCore"`
	MFAManager         string `yaml:"mfaManager"`
	ExternalAPIMFA     string `yaml:"externalApiMfa"`
	TokenDataRetriever string `yaml:"tokenDataRetriever"`
}

// MFAProviderConfig a single MFA provider registry entry
type MFAProviderConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	// kind: external_signer | oracle_api | password_proof
	Kind string `yaml:"kind"`
	// slot for external signers: 1 or 2
	Slot int `yaml:"slot"`
}

// MFAConfig MFA provider registry configuration
type MFAConfig struct {
	Providers []MFAProviderConfig `yaml:"providers"`
}

// ProverConfig zero-knowledge prover service configuration
type ProverConfig struct {
	BaseURL             string `yaml:"baseUrl"`
	Timeout             int    `yaml:"timeout"`
	VerificationKeyPath string `yaml:"verificationKeyPath"`
}

// ServicesConfig off-chain HTTP service endpoints
type ServicesConfig struct {
	// Signer service also hosts the registrar endpoints
	SignerBaseURL    string `yaml:"signerBaseUrl"`
	RegistrarBaseURL string `yaml:"registrarBaseUrl"`
	IndexerBaseURL   string `yaml:"indexerBaseUrl"`
	IndexerAPIKey    string `yaml:"indexerApiKey"`
	Timeout          int    `yaml:"timeout"`
}

// NATSConfig NATS event publishing configuration
type NATSConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

var AppConfig *Config

// LoadConfig loads the configuration file and applies environment overrides
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)

	if err := validate(&config); err != nil {
		return err
	}

	AppConfig = &config
	return nil
}

func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if key := os.Getenv("WALLET_PRIVATE_KEY"); key != "" {
		config.Wallet.PrivateKey = key
	}
	if passphrase := os.Getenv("KEYSTORE_PASSPHRASE"); passphrase != "" {
		config.Wallet.KeystorePassphrase = passphrase
	}
	if rpc := os.Getenv("PRIMARY_RPC_URL"); rpc != "" {
		config.Chains.Primary.RPCURL = rpc
	}
	if rpc := os.Getenv("SECONDARY_RPC_URL"); rpc != "" {
		config.Chains.Secondary.RPCURL = rpc
	}
	if prover := os.Getenv("PROVER_BASE_URL"); prover != "" {
		config.Prover.BaseURL = prover
	}
	if signer := os.Getenv("SIGNER_BASE_URL"); signer != "" {
		config.Services.SignerBaseURL = signer
	}
	if registrar := os.Getenv("REGISTRAR_BASE_URL"); registrar != "" {
		config.Services.RegistrarBaseURL = registrar
	}
	if indexer := os.Getenv("INDEXER_BASE_URL"); indexer != "" {
		config.Services.IndexerBaseURL = indexer
	}
	if apiKey := os.Getenv("INDEXER_API_KEY"); apiKey != "" {
		config.Services.IndexerAPIKey = apiKey
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

func validate(config *Config) error {
	if config.Chains.Primary.ChainID == 0 || config.Chains.Secondary.ChainID == 0 {
		return fmt.Errorf("both primary and secondary chains must be configured")
	}
	if config.Chains.Primary.ChainID == config.Chains.Secondary.ChainID {
		return fmt.Errorf("primary and secondary chains must differ")
	}
	return nil
}

// DescriptorByChainID returns the descriptor for one of the two supported chains
func (c *Config) DescriptorByChainID(chainID uint64) (*ChainDescriptor, error) {
	switch chainID {
	case c.Chains.Primary.ChainID:
		return &c.Chains.Primary, nil
	case c.Chains.Secondary.ChainID:
		return &c.Chains.Secondary, nil
	}
	return nil, fmt.Errorf("chain %d is not one of the supported networks", chainID)
}

// RegistrarURL falls back to the signer service base URL, which hosts the
// registrar endpoints in the default deployment.
func (c *Config) RegistrarURL() string {
	if c.Services.RegistrarBaseURL != "" {
		return c.Services.RegistrarBaseURL
	}
	return c.Services.SignerBaseURL
}
