package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	AWS      AWSConfig      `yaml:"aws"`
	Tables   TablesConfig   `yaml:"tables"`
	Queues   QueuesConfig   `yaml:"queues"`
	SMS      SMSConfig      `yaml:"sms"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Redis    RedisConfig    `yaml:"redis"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AWSConfig holds shared AWS client settings
type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// TablesConfig names the DynamoDB tables backing the contact store
type TablesConfig struct {
	Customers   string `yaml:"customers"`
	Campaigns   string `yaml:"campaigns"`
	Enrollments string `yaml:"enrollments"`
	ChatHistory string `yaml:"chat_history"`
}

// QueuesConfig holds SQS queue URLs
type QueuesConfig struct {
	OutboundSMS string `yaml:"outbound_sms"`
	InboundSMS  string `yaml:"inbound_sms"`
}

// SMSConfig holds outbound SMS gateway settings
type SMSConfig struct {
	OriginationIdentity string `yaml:"origination_identity"`
	MessageType         string `yaml:"message_type"`
}

// DispatchConfig holds the orchestrator's batching knobs. SendBatchSize is
// capped at 10 by the SQS SendMessageBatch limit.
type DispatchConfig struct {
	SendBatchSize      int `yaml:"send_batch_size"`
	LookupChunkSize    int `yaml:"lookup_chunk_size"`
	InterBatchDelayMS  int `yaml:"inter_batch_delay_ms"`
	MaxDeliveryRetries int `yaml:"max_delivery_retries"`
}

// InterBatchDelay returns the pause inserted between send batches.
func (d DispatchConfig) InterBatchDelay() time.Duration {
	return time.Duration(d.InterBatchDelayMS) * time.Millisecond
}

// RedisConfig holds optional redis settings used for response deduplication
type RedisConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DedupTTLHours int    `yaml:"dedup_ttl_hours"`
}

// DedupTTL returns how long applied response event ids are remembered.
func (r RedisConfig) DedupTTL() time.Duration {
	return time.Duration(r.DedupTTLHours) * time.Hour
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML config (when path is non-empty and present) and
// then applies environment overrides. A .env file is honored if it exists.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := Load(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWS.Region = region
	}
	if profile := os.Getenv("AWS_PROFILE_OVERRIDE"); profile != "" {
		cfg.AWS.Profile = profile
	}
	if table := os.Getenv("CUSTOMERS_TABLE"); table != "" {
		cfg.Tables.Customers = table
	}
	if table := os.Getenv("CAMPAIGNS_TABLE"); table != "" {
		cfg.Tables.Campaigns = table
	}
	if table := os.Getenv("CAMPAIGN_CUSTOMERS_TABLE"); table != "" {
		cfg.Tables.Enrollments = table
	}
	if table := os.Getenv("CHAT_HISTORY_TABLE"); table != "" {
		cfg.Tables.ChatHistory = table
	}
	if url := os.Getenv("OUTBOUND_SMS_QUEUE_URL"); url != "" {
		cfg.Queues.OutboundSMS = url
	}
	if url := os.Getenv("INBOUND_SMS_QUEUE_URL"); url != "" {
		cfg.Queues.InboundSMS = url
	}
	if origin := os.Getenv("ORIGINATION_IDENTITY"); origin != "" {
		cfg.SMS.OriginationIdentity = origin
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = addr
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.AWS.Region == "" {
		c.AWS.Region = "us-east-1"
	}
	if c.Tables.Customers == "" {
		c.Tables.Customers = "customers"
	}
	if c.Tables.Campaigns == "" {
		c.Tables.Campaigns = "campaigns"
	}
	if c.Tables.Enrollments == "" {
		c.Tables.Enrollments = "campaign-customers"
	}
	if c.Tables.ChatHistory == "" {
		c.Tables.ChatHistory = "chat-history"
	}
	if c.SMS.MessageType == "" {
		c.SMS.MessageType = "PROMOTIONAL"
	}
	if c.Dispatch.SendBatchSize <= 0 || c.Dispatch.SendBatchSize > 10 {
		c.Dispatch.SendBatchSize = 10
	}
	if c.Dispatch.LookupChunkSize <= 0 {
		c.Dispatch.LookupChunkSize = 1000
	}
	if c.Dispatch.InterBatchDelayMS <= 0 {
		c.Dispatch.InterBatchDelayMS = 50
	}
	if c.Dispatch.MaxDeliveryRetries <= 0 {
		c.Dispatch.MaxDeliveryRetries = 3
	}
	if c.Redis.DedupTTLHours <= 0 {
		c.Redis.DedupTTLHours = 24
	}
}

// Validate checks that settings required at runtime are present.
func (c *Config) Validate() error {
	if c.Queues.OutboundSMS == "" {
		return fmt.Errorf("outbound SMS queue URL not configured")
	}
	if c.SMS.OriginationIdentity == "" {
		return fmt.Errorf("SMS origination identity not configured")
	}
	return nil
}
