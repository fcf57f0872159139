package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// TON
	TONNetwork             string // mainnet/testnet
	LiteServerHost         string
	LiteServerPort         int
	LiteServerKey          string
	TONProofAllowedDomains []string

	// Contract addresses (the four logical ledgers)
	IdentityContractAddress string
	FriendsContractAddress  string
	GroupsContractAddress   string
	TokenContractAddress    string

	// Wallet used to sign ledger writes
	WalletAddress   string
	WalletSecretKey string // hex-encoded ed25519 seed

	// Relay (real-time push channel)
	RelayURL               string
	RelayReconnectMax      time.Duration
	TypingIndicatorTimeout time.Duration

	// Content store
	PinataJWT        string
	PinataGatewayURL string
	S3Endpoint       string
	S3Bucket         string
	S3AccessKeyID    string
	S3SecretKey      string
	MaxUploadSizeMB  int

	// Event bus
	RedisURL string

	// Reconciliation
	SettleDelay           time.Duration // fallback when no confirmer is wired
	ConfirmPollInterval   time.Duration
	RewardRefreshInterval time.Duration

	// Fees (nanotokens)
	GroupCreationFee int64

	// Limits
	FriendMessageMaxLen int
	GroupMaxMembers     int

	// Auth
	JWTSecret     string
	JWTExpiration time.Duration

	// Server
	APIPort string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		TONNetwork:             getEnv("TON_NETWORK", "testnet"),
		LiteServerHost:         getEnv("LITE_SERVER_HOST", ""),
		LiteServerPort:         getEnvInt("LITE_SERVER_PORT", 4443),
		LiteServerKey:          getEnv("LITE_SERVER_KEY", ""),
		TONProofAllowedDomains: parseDomainList(getEnv("TON_PROOF_ALLOWED_DOMAINS", "")),

		IdentityContractAddress: getEnv("IDENTITY_CONTRACT_ADDRESS", ""),
		FriendsContractAddress:  getEnv("FRIENDS_CONTRACT_ADDRESS", ""),
		GroupsContractAddress:   getEnv("GROUPS_CONTRACT_ADDRESS", ""),
		TokenContractAddress:    getEnv("TOKEN_CONTRACT_ADDRESS", ""),

		WalletAddress:   getEnv("WALLET_ADDRESS", ""),
		WalletSecretKey: getEnv("WALLET_SECRET_KEY", ""),

		RelayURL:               getEnv("RELAY_URL", "wss://localhost:9443/ws"),
		RelayReconnectMax:      time.Duration(getEnvInt("RELAY_RECONNECT_MAX_SECONDS", 30)) * time.Second,
		TypingIndicatorTimeout: time.Duration(getEnvInt("TYPING_TIMEOUT_SECONDS", 5)) * time.Second,

		PinataJWT:        getEnv("PINATA_JWT", ""),
		PinataGatewayURL: getEnv("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs"),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3AccessKeyID:    getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		MaxUploadSizeMB:  getEnvInt("MAX_UPLOAD_SIZE_MB", 10),

		RedisURL: getEnv("REDIS_URL", ""),

		SettleDelay:           time.Duration(getEnvInt("SETTLE_DELAY_SECONDS", 3)) * time.Second,
		ConfirmPollInterval:   time.Duration(getEnvInt("CONFIRM_POLL_INTERVAL_SECONDS", 5)) * time.Second,
		RewardRefreshInterval: time.Duration(getEnvInt("REWARD_REFRESH_INTERVAL_SECONDS", 30)) * time.Second,

		GroupCreationFee: getEnvInt64("GROUP_CREATION_FEE_NANO", 100_000_000),

		FriendMessageMaxLen: getEnvInt("FRIEND_MESSAGE_MAX_LEN", 200),
		GroupMaxMembers:     getEnvInt("GROUP_MAX_MEMBERS", 256),

		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,

		APIPort: getEnv("API_PORT", "3000"),
	}

	return cfg
}

func (c *Config) Validate(log *zap.Logger) {
	if c.JWTSecret == "change-me-in-production" {
		log.Warn("JWT_SECRET is default, change in production")
	}
	if c.PinataJWT == "" && c.S3Bucket == "" {
		log.Warn("no content store configured (PINATA_JWT / S3_BUCKET), file uploads will fail")
	}
	if c.IdentityContractAddress == "" {
		log.Warn("IDENTITY_CONTRACT_ADDRESS is not set")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt64(key string, fallback int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseDomainList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var domains []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			domains = append(domains, p)
		}
	}
	return domains
}
