package config

import (
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-pos-api/models"
)

var DB *gorm.DB

// JWTSecret used to sign tokens, replaced by Load when configured
var JWTSecret = []byte(getEnv("JWT_SECRET", "restaurant_pos_dev_secret"))

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite or postgres
	Path     string `yaml:"path"`   // sqlite file or ":memory:"
	DSN      string `yaml:"dsn"`    // postgres connection string
	LogLevel string `yaml:"log_level"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode"` // production or development
	Level      string `yaml:"level"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type PricingConfig struct {
	TaxRate string `yaml:"tax_rate"`
}

type PaymentConfig struct {
	Delay time.Duration `yaml:"delay"`
}

type EventsConfig struct {
	NatsURL string `yaml:"nats_url"`
}

type SystemConfig struct {
	Location      string `yaml:"location"`
	SeedDemo      bool   `yaml:"seed_demo"`
	HistoryDays   int    `yaml:"history_days"` // status history retention
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

type AppConfig struct {
	Server    ServerConfig   `yaml:"server"`
	Database  DatabaseConfig `yaml:"database"`
	Logger    LoggerConfig   `yaml:"logger"`
	Pricing   PricingConfig  `yaml:"pricing"`
	Payment   PaymentConfig  `yaml:"payment"`
	Events    EventsConfig   `yaml:"events"`
	System    SystemConfig   `yaml:"system"`
	JWTSecret string         `yaml:"jwt_secret"`
}

func Default() *AppConfig {
	return &AppConfig{
		Server:   ServerConfig{Port: "8080", Mode: "debug"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "restaurant_pos.db", LogLevel: "warn"},
		Logger:   LoggerConfig{Mode: "development", Level: "info", Filename: "logs/pos.log"},
		Pricing:  PricingConfig{TaxRate: "0.10"},
		Payment:  PaymentConfig{Delay: 1500 * time.Millisecond},
		System: SystemConfig{
			Location:      "Local",
			HistoryDays:   180,
			AdminEmail:    "admin@pos.local",
			AdminPassword: "admin123",
		},
	}
}

// Load reads the optional YAML file named by POS_CONFIG (default pos.yml) and
// applies environment overrides on top.
func Load() (*AppConfig, error) {
	cfg := Default()
	path := getEnv("POS_CONFIG", "pos.yml")
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "read %s", path)
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Mode = getEnv("GIN_MODE", cfg.Server.Mode)
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	cfg.Database.DSN = getEnv("DATABASE_URL", cfg.Database.DSN)
	cfg.Logger.Mode = getEnv("LOG_MODE", cfg.Logger.Mode)
	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	if f := os.Getenv("LOG_FILE"); f != "" {
		cfg.Logger.FileEnable = true
		cfg.Logger.Filename = f
	}
	cfg.Pricing.TaxRate = getEnv("TAX_RATE", cfg.Pricing.TaxRate)
	if d := os.Getenv("PAYMENT_DELAY"); d != "" {
		delay, err := cast.ToDurationE(d)
		if err != nil {
			return nil, errors.Wrap(err, "PAYMENT_DELAY")
		}
		cfg.Payment.Delay = delay
	}
	cfg.Events.NatsURL = getEnv("NATS_URL", cfg.Events.NatsURL)
	cfg.System.Location = getEnv("TIMEZONE", cfg.System.Location)
	if s := os.Getenv("SEED_DEMO"); s != "" {
		cfg.System.SeedDemo = cast.ToBool(s)
	}
	if s := os.Getenv("HISTORY_DAYS"); s != "" {
		days, err := cast.ToIntE(s)
		if err != nil {
			return nil, errors.Wrap(err, "HISTORY_DAYS")
		}
		cfg.System.HistoryDays = days
	}
	cfg.System.AdminEmail = getEnv("ADMIN_EMAIL", cfg.System.AdminEmail)
	cfg.System.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.System.AdminPassword)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	if cfg.JWTSecret != "" {
		JWTSecret = []byte(cfg.JWTSecret)
	}

	if _, err := cfg.TaxRate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves the configured time zone, falling back to local time.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.System.Location)
	if err != nil {
		zap.L().Warn("unknown time zone, using local", zap.String("location", c.System.Location))
		return time.Local
	}
	return loc
}

// TaxRate parses the configured rate.
func (c *AppConfig) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Pricing.TaxRate)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid tax rate %q", c.Pricing.TaxRate)
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.Errorf("tax rate %s must not be negative", rate)
	}
	return rate, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenDB connects to the sqlite file (or ":memory:") and migrates every model.
func OpenDB(path string, level logger.LogLevel) (*gorm.DB, error) {
	return Open(DatabaseConfig{Driver: "sqlite", Path: path}, level)
}

// Open connects with the configured driver and migrates every model.
func Open(cfg DatabaseConfig, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		if cfg.DSN == "" {
			return nil, errors.New("postgres driver needs a dsn")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.Errorf("unknown database driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	if cfg.Path == ":memory:" && dialector.Name() == "sqlite" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "database handle")
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(models.Tables...); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	return db, nil
}

func InitDB(cfg *AppConfig) {
	db, err := Open(cfg.Database, gormLogLevel(cfg.Database.LogLevel))
	if err != nil {
		zap.L().Fatal("Failed to open database", zap.Error(err))
	}
	DB = db
	zap.L().Info("Database connected and migrated", zap.String("driver", db.Dialector.Name()))
}

func gormLogLevel(s string) logger.LogLevel {
	switch s {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
