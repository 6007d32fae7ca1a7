// Package speechgate wires configuration, providers, sinks and metrics into a
// recognition session and a synthesis requester.
package speechgate

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Language    string            `mapstructure:"language"`
	Voice       string            `mapstructure:"voice"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Access      AccessConfig      `mapstructure:"access"`
	Capture     CaptureConfig     `mapstructure:"capture"`
	Vendors     VendorsConfig     `mapstructure:"vendors"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Synthesis   SynthesisConfig   `mapstructure:"synthesis"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
	Privacy     PrivacyConfig     `mapstructure:"privacy"`
}

type CredentialsConfig struct {
	SubscriptionKey string `mapstructure:"subscription_key"`
	Region          string `mapstructure:"region"`
}

type AccessConfig struct {
	EnvKey   string   `mapstructure:"env_key"`
	EnvFiles []string `mapstructure:"env_files"`
}

type CaptureConfig struct {
	Permission         string   `mapstructure:"permission"`
	SupportedEncodings []string `mapstructure:"supported_encodings"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT VendorConfig `mapstructure:"stt"`
	TTS VendorConfig `mapstructure:"tts"`
}

type NotifyConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type MetricsConfig struct {
	PrometheusAddr string `mapstructure:"prometheus_addr"`
	Buffer         int    `mapstructure:"buffer"`
}

type SynthesisConfig struct {
	CircuitThreshold  int `mapstructure:"circuit_threshold"`
	CircuitCooldownMS int `mapstructure:"circuit_cooldown_ms"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", "en-US")
	v.SetDefault("access.env_key", "ACCESS_CODE")
	v.SetDefault("access.env_files", []string{".env"})
	v.SetDefault("capture.permission", "granted")
	v.SetDefault("capture.supported_encodings", []string{"audio/webm", "audio/ogg", "audio/mpeg", "audio/mp4"})
	v.SetDefault("vendors.stt.provider", "azure")
	v.SetDefault("vendors.tts.provider", "azure")
	v.SetDefault("notify.provider", "log")
	v.SetDefault("metrics.buffer", 256)
	v.SetDefault("synthesis.circuit_threshold", 0)
	v.SetDefault("synthesis.circuit_cooldown_ms", 30000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("privacy.redact_pii", true)
}

// DefaultConfig returns the defaults LoadConfig starts from.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// LoadConfig reads path with viper, expands ${ENV} references and validates the result.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.STT.Provider) == "" {
		return fmt.Errorf("vendors.stt.provider is required")
	}
	if strings.TrimSpace(c.Vendors.TTS.Provider) == "" {
		return fmt.Errorf("vendors.tts.provider is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Capture.Permission)) {
	case "granted", "denied":
	default:
		return fmt.Errorf("capture.permission must be one of [granted, denied], got %s", c.Capture.Permission)
	}
	switch strings.ToLower(strings.TrimSpace(c.Notify.Provider)) {
	case "log", "redis", "none":
	default:
		return fmt.Errorf("notify.provider must be one of [log, redis, none], got %s", c.Notify.Provider)
	}
	if c.Synthesis.CircuitThreshold < 0 {
		return fmt.Errorf("synthesis.circuit_threshold must not be negative")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)
	cfg.Notify.Settings = expandSettings(cfg.Notify.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	}
}
