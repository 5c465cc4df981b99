package core

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is set on the first NewConfig call. Package-level access is only for
// helpers that cannot take a *Config parameter; services receive theirs
// explicitly.
var Conf *Config

type (
	Config struct {
		Debug     bool
		TestMode  bool
		Env       string // DEV (local; default), TEST, QA, PROD
		Build     string
		AppName   string
		AdminName string
		WorkDir   string

		DefaultFromEmail string
		AdminEmail       string
		SendgridApiKey   string
		FrontendBaseURL  string
		RollbarToken     string

		Server     ServerConfig
		Database   DatabaseConfig
		Gateway    GatewayConfig
		Settlement SettlementConfig
	}

	ServerConfig struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	// GatewayConfig points at the external money-movement provider.
	GatewayConfig struct {
		BaseURL string
		ApiKey  string
		Timeout time.Duration
	}

	// SettlementConfig carries the financial policy defaults. A validated
	// snapshot is taken at the start of each settlement run; the engine never
	// reads these values mid-run.
	SettlementConfig struct {
		Currency            string
		PlatformFeeBps      int64
		MinimumFee          int64 // minor units
		TaxRateBps          int64
		CommissionTableBps  map[string]int64 // rank -> basis points
		MaxCommissionLevels int
		CommissionCap       int64 // minor units, per beneficiary per earnings record
		MinimumPayoutAmount int64 // minor units
		PayoutFrequency     string
		PayoutFanOut        int
		MaxSubmitAttempts   int
		RetryBackoffBase    time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "FunnelsEye")
	conf.SetDefault("adminName", "FunnelsEye Finance")
	conf.SetDefault("build", "dev")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("adminEmail", "finance@localhost")
	conf.SetDefault("frontendBaseUrl", "http://localhost:8080")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("serverDebugHost", "localhost:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseName", "backoffice")
	conf.SetDefault("databaseUser", "")
	conf.SetDefault("databasePassword", "")
	conf.SetDefault("databaseAdminUser", "")
	conf.SetDefault("databaseAdminPassword", "")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", 5432)
	conf.SetDefault("databaseDisableTLS", true)

	conf.SetDefault("gatewayBaseUrl", "http://localhost:9000")
	conf.SetDefault("gatewayApiKey", "")
	conf.SetDefault("gatewayTimeout", 30*time.Second)

	conf.SetDefault("settlementCurrency", "USD")
	conf.SetDefault("settlementPlatformFeeBps", 1000) // 10%
	conf.SetDefault("settlementMinimumFee", 0)
	conf.SetDefault("settlementTaxRateBps", 500) // 5%
	conf.SetDefault("settlementCommissionTableBps", map[string]string{
		"bronze":   "200",
		"silver":   "500",
		"gold":     "1000",
		"platinum": "1200",
		"diamond":  "1500",
	})
	conf.SetDefault("settlementMaxCommissionLevels", 3)
	conf.SetDefault("settlementCommissionCap", 5000000) // 50,000.00
	conf.SetDefault("settlementMinimumPayoutAmount", 10000)
	conf.SetDefault("settlementPayoutFrequency", "monthly")
	conf.SetDefault("settlementPayoutFanOut", 4)
	conf.SetDefault("settlementMaxSubmitAttempts", 3)
	conf.SetDefault("settlementRetryBackoffBase", 500*time.Millisecond)

	env := os.Getenv("ENV")
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         testMode,
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		AdminName:        conf.GetString("adminName"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		AdminEmail:       conf.GetString("adminEmail"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseUrl"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			Port:            conf.GetInt("serverPort"),
			DebugHost:       conf.GetString("serverDebugHost"),
			ShutdownTimeout: conf.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetInt("databasePort"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		Gateway: GatewayConfig{
			BaseURL: conf.GetString("gatewayBaseUrl"),
			ApiKey:  conf.GetString("gatewayApiKey"),
			Timeout: conf.GetDuration("gatewayTimeout"),
		},
		Settlement: SettlementConfig{
			Currency:            conf.GetString("settlementCurrency"),
			PlatformFeeBps:      int64(conf.GetInt("settlementPlatformFeeBps")),
			MinimumFee:          int64(conf.GetInt("settlementMinimumFee")),
			TaxRateBps:          int64(conf.GetInt("settlementTaxRateBps")),
			CommissionTableBps:  bpsTable(conf.GetStringMapString("settlementCommissionTableBps")),
			MaxCommissionLevels: conf.GetInt("settlementMaxCommissionLevels"),
			CommissionCap:       int64(conf.GetInt("settlementCommissionCap")),
			MinimumPayoutAmount: int64(conf.GetInt("settlementMinimumPayoutAmount")),
			PayoutFrequency:     conf.GetString("settlementPayoutFrequency"),
			PayoutFanOut:        conf.GetInt("settlementPayoutFanOut"),
			MaxSubmitAttempts:   conf.GetInt("settlementMaxSubmitAttempts"),
			RetryBackoffBase:    conf.GetDuration("settlementRetryBackoffBase"),
		},
	}
	c.WorkDir = Getwd()
	Conf = c
	return c
}

func bpsTable(raw map[string]string) map[string]int64 {
	table := make(map[string]int64, len(raw))
	for rank, val := range raw {
		bps, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			log.Fatalf("config.bpsTable(%s=%s): %v", rank, val, err)
		}
		table[strings.ToLower(rank)] = bps
	}
	return table
}
