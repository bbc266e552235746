package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all Bedrock monitoring configuration. The same file is shared
// with the provisioning tooling, so sections for resources this binary never
// creates (IAM role, S3 bucket, SNS topic) are still loaded here.
type Config struct {
	IAM       IAMConfig       `mapstructure:"iam"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// IAMConfig defines the logging role identity.
type IAMConfig struct {
	RoleName  string `mapstructure:"role_name"`
	AccountID string `mapstructure:"account_id"`
}

// StorageConfig defines log and history storage settings.
type StorageConfig struct {
	S3BucketPrefix     string `mapstructure:"s3_bucket_prefix"`
	CloudWatchLogGroup string `mapstructure:"cloudwatch_log_group"`
	RetentionDays      int    `mapstructure:"retention_days"`
	LifecycleDays      int    `mapstructure:"lifecycle_days"`
	HistoryPath        string `mapstructure:"history_path"`
}

// S3BucketName returns the account-specific bucket name.
func (c StorageConfig) S3BucketName(accountID string) string {
	return fmt.Sprintf("%s-%s", c.S3BucketPrefix, accountID)
}

// Thresholds define the alarm trigger levels.
type Thresholds struct {
	HighTokenUsage     int `mapstructure:"high_token_usage"`
	ErrorRate          int `mapstructure:"error_rate"`
	InvocationSpike    int `mapstructure:"invocation_spike"`
	HighLatencySeconds int `mapstructure:"high_latency_seconds"`
}

// AlertingConfig defines SNS alerting settings.
type AlertingConfig struct {
	SNSTopicName string     `mapstructure:"sns_topic_name"`
	Thresholds   Thresholds `mapstructure:"thresholds"`
}

// DashboardConfig defines the CloudWatch dashboard settings.
type DashboardConfig struct {
	Name   string `mapstructure:"name"`
	Region string `mapstructure:"region"`
}

// PricingConfig points to an optional pricing table override file.
type PricingConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".bedrockmon"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("iam.role_name", "BedrockCloudWatchLoggingRole")
	v.SetDefault("storage.s3_bucket_prefix", "bedrock-logs")
	v.SetDefault("storage.cloudwatch_log_group", "/aws/bedrock/modelinvocations")
	v.SetDefault("storage.retention_days", 30)
	v.SetDefault("storage.lifecycle_days", 90)
	v.SetDefault("storage.history_path", filepath.Join(home, ".bedrockmon", "history.db"))
	v.SetDefault("alerting.sns_topic_name", "bedrock-monitoring-alerts")
	v.SetDefault("alerting.thresholds.high_token_usage", 100000) // tokens per hour
	v.SetDefault("alerting.thresholds.error_rate", 10)           // errors per 5 minutes
	v.SetDefault("alerting.thresholds.invocation_spike", 1000)   // invocations per hour
	v.SetDefault("alerting.thresholds.high_latency_seconds", 10)
	v.SetDefault("dashboard.name", "BedrockUsageMonitoring")
	v.SetDefault("dashboard.region", "us-east-1")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("BEDROCKMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The shared AWS tooling environment uses its own variable names.
	_ = v.BindEnv("iam.account_id", "BEDROCKMON_IAM_ACCOUNT_ID", "AWS_ACCOUNT_ID")
	_ = v.BindEnv("iam.role_name", "BEDROCKMON_IAM_ROLE_NAME", "BEDROCK_IAM_ROLE_NAME")
	_ = v.BindEnv("dashboard.region", "BEDROCKMON_DASHBOARD_REGION", "AWS_DEFAULT_REGION")
	_ = v.BindEnv("storage.s3_bucket_prefix", "BEDROCKMON_STORAGE_S3_BUCKET_PREFIX", "BEDROCK_S3_BUCKET_PREFIX")
	_ = v.BindEnv("alerting.sns_topic_name", "BEDROCKMON_ALERTING_SNS_TOPIC_NAME", "BEDROCK_SNS_TOPIC_NAME")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
