package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Risk      RiskConfig
	Zones     ZonesConfig
	Monitor   MonitorConfig
	Dispatch  DispatchConfig
	Providers ProvidersConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

// RiskConfig holds the three ascending alerting thresholds on the 0-10
// risk score scale.
type RiskConfig struct {
	HighThreshold      float64
	CriticalThreshold  float64
	EmergencyThreshold float64
}

type ZonesConfig struct {
	// Adjacency is the raw ZONE_ADJACENCY value, e.g. "Z1:Z2,Z3;Z2:Z1".
	Adjacency string
}

type MonitorConfig struct {
	FeedEnabled  bool
	FeedURL      string
	PollInterval time.Duration
}

type DispatchConfig struct {
	Concurrency int
	SendTimeout time.Duration
}

type ProvidersConfig struct {
	PushGatewayURL string
	PushGatewayKey string
	SMSGatewayURL  string
	SMSGatewayKey  string
	SMSSender      string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Risk: RiskConfig{
			HighThreshold:      getEnvFloat("RISK_HIGH_THRESHOLD", 7.5),
			CriticalThreshold:  getEnvFloat("RISK_CRITICAL_THRESHOLD", 8.5),
			EmergencyThreshold: getEnvFloat("RISK_EMERGENCY_THRESHOLD", 9.0),
		},
		Zones: ZonesConfig{
			Adjacency: getEnv("ZONE_ADJACENCY", ""),
		},
		Monitor: MonitorConfig{
			FeedEnabled:  getEnvBool("SENSOR_FEED_ENABLED", false),
			FeedURL:      getEnv("SENSOR_FEED_URL", ""),
			PollInterval: getEnvDuration("SENSOR_POLL_INTERVAL", time.Minute),
		},
		Dispatch: DispatchConfig{
			Concurrency: getEnvInt("DISPATCH_CONCURRENCY", 8),
			SendTimeout: getEnvDuration("SEND_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			PushGatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
			PushGatewayKey: getEnv("PUSH_GATEWAY_KEY", ""),
			SMSGatewayURL:  getEnv("SMS_GATEWAY_URL", ""),
			SMSGatewayKey:  getEnv("SMS_GATEWAY_KEY", ""),
			SMSSender:      getEnv("SMS_SENDER", "MINEWATCH"),
			SMTPHost:       getEnv("SMTP_HOST", ""),
			SMTPPort:       getEnvInt("SMTP_PORT", 587),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:       getEnv("SMTP_FROM", ""),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/mine-alerts.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	r := c.Risk
	if !(r.HighThreshold < r.CriticalThreshold && r.CriticalThreshold < r.EmergencyThreshold) {
		return fmt.Errorf("risk thresholds must be ascending: high=%.1f critical=%.1f emergency=%.1f",
			r.HighThreshold, r.CriticalThreshold, r.EmergencyThreshold)
	}
	if r.HighThreshold < 0 || r.EmergencyThreshold > 10 {
		return fmt.Errorf("risk thresholds must stay within the 0-10 score scale")
	}

	if c.Monitor.FeedEnabled {
		if c.Monitor.FeedURL == "" {
			return fmt.Errorf("SENSOR_FEED_URL is required when the sensor feed is enabled")
		}
		if c.Monitor.PollInterval < 10*time.Second {
			return fmt.Errorf("sensor poll interval must be at least 10 seconds")
		}
	}

	if c.Dispatch.Concurrency < 1 {
		return fmt.Errorf("dispatch concurrency must be at least 1")
	}

	if _, err := ParseAdjacency(c.Zones.Adjacency); err != nil {
		return err
	}

	return nil
}

// ParseAdjacency parses a ZONE_ADJACENCY value of the form
// "Z1:Z2,Z3;Z2:Z1,Z3" into a zone -> neighbors lookup. The mapping is
// deployment data, not code; an empty value means no adjacency escalation.
func ParseAdjacency(raw string) (map[string][]string, error) {
	adjacency := make(map[string][]string)
	if strings.TrimSpace(raw) == "" {
		return adjacency, nil
	}

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		zone, neighbors, ok := strings.Cut(entry, ":")
		zone = strings.TrimSpace(zone)
		if !ok || zone == "" {
			return nil, fmt.Errorf("invalid zone adjacency entry: %q", entry)
		}
		for _, n := range strings.Split(neighbors, ",") {
			n = strings.TrimSpace(n)
			if n != "" && n != zone {
				adjacency[zone] = append(adjacency[zone], n)
			}
		}
	}

	return adjacency, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
