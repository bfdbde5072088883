package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	coreConfig "github.com/lee-tech/hrportal/internal/core/config"
	"github.com/lee-tech/hrportal/internal/core/secret"
	"go.uber.org/zap"
)

// HRConfig extends the core configuration with portal settings
type HRConfig struct {
	*coreConfig.Config

	PortalName string `env:"PORTAL_NAME" envDefault:"RDMC Portal"`

	// Session tokens
	TokenExpiration   time.Duration `env:"TOKEN_EXPIRATION" envDefault:"15m"`
	RefreshExpiration time.Duration `env:"REFRESH_EXPIRATION" envDefault:"168h"`
	MaxLoginAttempts  int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LockoutDuration   time.Duration `env:"LOCKOUT_DURATION" envDefault:"15m"`
	BCryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`

	// One-time verification codes
	CodeTTL        time.Duration `env:"CODE_TTL" envDefault:"10m"`
	CodeSendLimit  int           `env:"CODE_SEND_LIMIT" envDefault:"5"`
	CodeSendWindow time.Duration `env:"CODE_SEND_WINDOW" envDefault:"15m"`

	// Email delivery
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	SMTPUsername string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`

	// SMS gateway
	SMSGatewayURL     string        `env:"SMS_GATEWAY_URL"`
	SMSGatewayTimeout time.Duration `env:"SMS_GATEWAY_TIMEOUT" envDefault:"10s"`

	// Google sign-in (optional)
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	GoogleSuccessURL   string `env:"GOOGLE_SUCCESS_URL"`

	// HR navigation gate
	HRDepartmentIDs []uint64 `env:"HR_DEPARTMENT_IDS" envSeparator:","`
	HRUnitIDs       []uint64 `env:"HR_UNIT_IDS" envSeparator:","`

	// Org chart
	OrgChartMinGrade int `env:"ORGCHART_MIN_GRADE" envDefault:"3"`
	OrgChartLimit    int `env:"ORGCHART_LIMIT" envDefault:"999"`

	// Spreadsheet import
	ImportBatchSize          int    `env:"IMPORT_BATCH_SIZE" envDefault:"50"`
	ImportDefaultEmailDomain string `env:"IMPORT_DEFAULT_EMAIL_DOMAIN" envDefault:"mobilitycairo.com"`
	ImportHeaderAliasFile    string `env:"IMPORT_HEADER_ALIAS_FILE"`
	ImportArchiveBucket      string `env:"IMPORT_ARCHIVE_BUCKET"`
	S3Endpoint               string `env:"S3_ENDPOINT"`
	S3Region                 string `env:"S3_REGION" envDefault:"us-east-1"`

	// Employee change events
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"hr.employees"`

	// Bootstrap settings
	BootstrapOrganizationName   string
	BootstrapOrganizationDomain string
	BootstrapAdminEmail         string
	BootstrapAdminCode          string
	BootstrapAdminFirstName     string
	BootstrapAdminLastName      string
}

// Load loads the configuration from environment variables
func Load() (*HRConfig, error) {
	base, err := coreConfig.Load()
	if err != nil {
		return nil, err
	}

	hrConfig := &HRConfig{Config: base}
	if err := env.Parse(hrConfig); err != nil {
		return nil, fmt.Errorf("parse portal settings: %w", err)
	}

	// Load secrets from Vault if configured
	if base.VaultAddr != "" && base.VaultToken != "" {
		overlayVaultSecrets(hrConfig)
	}

	if strings.TrimSpace(hrConfig.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if hrConfig.ImportBatchSize <= 0 {
		hrConfig.ImportBatchSize = 50
	}

	applyBootstrapDefaults(hrConfig)

	return hrConfig, nil
}

// NewWatcher creates a configuration watcher for the portal
func NewWatcher(cfg *coreConfig.Config) (*coreConfig.Watcher, error) {
	return coreConfig.NewWatcher(cfg)
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *HRConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// IsHRMember applies the HR navigation gate to a department and unit.
func (c *HRConfig) IsHRMember(departmentID, unitID *uint64) bool {
	if departmentID != nil {
		for _, id := range c.HRDepartmentIDs {
			if id == *departmentID {
				return true
			}
		}
	}
	if unitID != nil {
		for _, id := range c.HRUnitIDs {
			if id == *unitID {
				return true
			}
		}
	}
	return false
}

func overlayVaultSecrets(cfg *HRConfig) {
	provider, err := secret.NewVaultProvider(cfg.VaultAddr, cfg.VaultToken, cfg.VaultMountPath, cfg.VaultSecretPath)
	if err != nil {
		zap.L().Warn("vault unavailable, using environment secrets", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	secrets, err := provider.GetSecrets(ctx, []string{
		"JWT_SECRET",
		"SMTP_PASS",
		"GOOGLE_CLIENT_SECRET",
	})
	if err != nil {
		zap.L().Warn("failed to read vault secrets", zap.Error(err))
		return
	}
	if jwtSecret, ok := secrets["JWT_SECRET"]; ok {
		cfg.JWTSecret = jwtSecret
	}
	if smtpPass, ok := secrets["SMTP_PASS"]; ok {
		cfg.SMTPPassword = smtpPass
	}
	if googleSecret, ok := secrets["GOOGLE_CLIENT_SECRET"]; ok {
		cfg.GoogleClientSecret = googleSecret
	}
}

func applyBootstrapDefaults(cfg *HRConfig) {
	if cfg == nil {
		return
	}

	cfg.BootstrapOrganizationName = getEnvDefault("BOOTSTRAP_ORG_NAME", "Root Organization")
	cfg.BootstrapOrganizationDomain = getEnvDefault("BOOTSTRAP_ORG_DOMAIN", "root.local")
	cfg.BootstrapAdminEmail = getEnvDefault("BOOTSTRAP_ADMIN_EMAIL", "admin@root.local")
	cfg.BootstrapAdminCode = getEnvDefault("BOOTSTRAP_ADMIN_CODE", "ADMIN")
	cfg.BootstrapAdminFirstName = getEnvDefault("BOOTSTRAP_ADMIN_FIRST_NAME", "System")
	cfg.BootstrapAdminLastName = getEnvDefault("BOOTSTRAP_ADMIN_LAST_NAME", "Administrator")
}

func getEnvDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
