package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/faithledger/donation_engine/internal/core/domain"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string
	RateLimit     string // ulule/limiter formatted rate, e.g. "100-M"

	// Engine policy knobs.
	DonationAmountCeiling          decimal.Decimal
	CacheTTL                       time.Duration
	ZeroPreviousGrowthPolicy       string // "percent100" or "zero"
	AllowInactiveCategoryDonations bool

	// Role -> allowed export field whitelists. Configuration data, not code,
	// so the access boundary is auditable without reading the engine.
	ExportFields map[domain.AccessRole][]string
}

// Default export whitelists. Aggregate access never includes donor identity
// fields; self access is restricted to the subject's own record fields.
var (
	defaultFullAccessFields = []string{
		"donationID", "amount", "donationDate", "method", "categoryName",
		"lineItem", "restrictionType", "isQuidProQuo", "quidProQuoValue",
		"donorID", "donorName", "taxYear", "status", "isReceiptSent",
		"verifiedAt", "verifiedBy", "notes",
	}
	defaultAggregateAccessFields = []string{
		"amount", "donationDate", "method", "categoryName",
		"lineItem", "restrictionType", "taxYear",
	}
	defaultSelfAccessFields = []string{
		"donationID", "amount", "donationDate", "method", "categoryName",
		"taxYear", "status", "isReceiptSent",
	}
)

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("DONATION_AMOUNT_CEILING", "1000000")
	viper.SetDefault("CACHE_TTL", "5m")
	viper.SetDefault("GROWTH_ZERO_PREVIOUS_POLICY", "percent100")
	viper.SetDefault("ALLOW_INACTIVE_CATEGORY_DONATIONS", false)
	viper.SetDefault("EXPORT_FIELDS_FULL_ACCESS", defaultFullAccessFields)
	viper.SetDefault("EXPORT_FIELDS_AGGREGATE_ACCESS", defaultAggregateAccessFields)
	viper.SetDefault("EXPORT_FIELDS_SELF_ACCESS", defaultSelfAccessFields)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}

	ceilingStr := viper.GetString("DONATION_AMOUNT_CEILING")
	ceiling, err := decimal.NewFromString(ceilingStr)
	if err != nil || ceiling.LessThanOrEqual(decimal.Zero) {
		ceiling = decimal.NewFromInt(1_000_000)
		log.Printf("Warning: Invalid DONATION_AMOUNT_CEILING (%q). Defaulting to %s.\n", ceilingStr, ceiling.String())
	}
	cfg.DonationAmountCeiling = ceiling

	ttlStr := viper.GetString("CACHE_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		ttl = 5 * time.Minute
		log.Printf("Warning: Invalid CACHE_TTL (%q). Defaulting to %s.\n", ttlStr, ttl.String())
	}
	cfg.CacheTTL = ttl

	policy := viper.GetString("GROWTH_ZERO_PREVIOUS_POLICY")
	if policy != "percent100" && policy != "zero" {
		log.Printf("Warning: Invalid GROWTH_ZERO_PREVIOUS_POLICY (%q). Defaulting to percent100.\n", policy)
		policy = "percent100"
	}
	cfg.ZeroPreviousGrowthPolicy = policy

	cfg.AllowInactiveCategoryDonations = viper.GetBool("ALLOW_INACTIVE_CATEGORY_DONATIONS")

	cfg.ExportFields = map[domain.AccessRole][]string{
		domain.RoleFullAccess:      viper.GetStringSlice("EXPORT_FIELDS_FULL_ACCESS"),
		domain.RoleAggregateAccess: viper.GetStringSlice("EXPORT_FIELDS_AGGREGATE_ACCESS"),
		domain.RoleSelfAccess:      viper.GetStringSlice("EXPORT_FIELDS_SELF_ACCESS"),
	}

	return cfg, nil
}
