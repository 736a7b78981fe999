// Package config loads the server configuration from defaults, an optional
// YAML file, a .env file, environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration. It is loaded once at startup and not
// modified afterwards.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Speech      SpeechConfig      `mapstructure:"speech"`
	Translation TranslationConfig `mapstructure:"translation"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Reasoning   ReasoningConfig   `mapstructure:"reasoning"`
	Devices     DevicesConfig     `mapstructure:"devices"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds the HTTP and streaming transport settings.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ServiceName       string        `mapstructure:"service_name"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
	MaxUtteranceBytes int           `mapstructure:"max_utterance_bytes"`
}

// PipelineConfig holds the language pair and input rules.
type PipelineConfig struct {
	SourceLanguage    string   `mapstructure:"source_language"`
	TargetLanguage    string   `mapstructure:"target_language"`
	SampleRate        int      `mapstructure:"sample_rate"`
	ResolveCommands   bool     `mapstructure:"resolve_commands"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// SpeechConfig selects the transcription engine.
type SpeechConfig struct {
	Backend        string `mapstructure:"backend"` // "google" or "mock"
	MockTranscript string `mapstructure:"mock_transcript"`
}

// TranslationConfig selects the translation engine.
type TranslationConfig struct {
	Backend string `mapstructure:"backend"` // "google" or "mock"
}

// CredentialsConfig says where the cloud credential bundle comes from.
type CredentialsConfig struct {
	EnvVar string `mapstructure:"env_var"`
	Dir    string `mapstructure:"dir"`
}

// ReasoningConfig selects and configures the reasoning engine.
type ReasoningConfig struct {
	Backend      string `mapstructure:"backend"` // "openai", "gemini" or "mock"
	Model        string `mapstructure:"model"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	SystemPrompt string `mapstructure:"system_prompt"`
	Proxy        string `mapstructure:"proxy"` // SOCKS5 host:port, empty for direct
}

// DevicesConfig selects the appliance controller.
type DevicesConfig struct {
	Backend string     `mapstructure:"backend"` // "unimplemented", "memory" or "mqtt"
	MQTT    MQTTConfig `mapstructure:"mqtt"`
}

// MQTTConfig configures the MQTT device controller.
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Topic          string        `mapstructure:"topic"`
	QoS            int           `mapstructure:"qos"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// AuthConfig configures device token auth. An empty secret disables it.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level       string `mapstructure:"level"` // debug, info, warn, error
	Development bool   `mapstructure:"development"`
}

// Enabled reports whether bearer token auth is switched on.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// RegisterFlags adds the server flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Config file path")
	fs.StringP("env", "e", ".env", "Env file path")
	fs.IntP("port", "p", 8080, "HTTP listen port")
	fs.StringP("log-level", "l", "info", "Log level")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.service_name", "voicecmd")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.max_utterance_bytes", 2<<20)
	v.SetDefault("pipeline.source_language", "ml-IN")
	v.SetDefault("pipeline.target_language", "en")
	v.SetDefault("pipeline.sample_rate", 16000)
	v.SetDefault("pipeline.resolve_commands", true)
	v.SetDefault("pipeline.allowed_extensions", []string{"wav", "mp3", "m4a"})
	v.SetDefault("speech.backend", "google")
	v.SetDefault("speech.mock_transcript", "ടിവി ഓൺ ചെയ്യൂ")
	v.SetDefault("translation.backend", "google")
	v.SetDefault("credentials.env_var", "GOOGLE_CREDENTIALS_JSON")
	v.SetDefault("credentials.dir", os.TempDir())
	v.SetDefault("reasoning.backend", "openai")
	v.SetDefault("reasoning.api_key", "${GROQ_API_KEY}")
	v.SetDefault("reasoning.max_tokens", 4096)
	v.SetDefault("devices.backend", "unimplemented")
	v.SetDefault("devices.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("devices.mqtt.client_id", "voicecmd")
	v.SetDefault("devices.mqtt.topic", "appliance/{device}/command")
	v.SetDefault("devices.mqtt.qos", 1)
	v.SetDefault("devices.mqtt.publish_timeout", 5*time.Second)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads the configuration. fs must have been populated by RegisterFlags
// and parsed; it may be nil, in which case only the file, the environment
// and the defaults are consulted.
//
// Search order for the config file when --config is empty:
// ./voicecmd.yaml, ./configs/voicecmd.yaml, /etc/voicecmd/voicecmd.yaml.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var configFile string
	envFile := ".env"
	if fs != nil {
		configFile, _ = fs.GetString("config")
		if f, err := fs.GetString("env"); err == nil {
			envFile = f
		}
	}

	// Missing .env is normal outside development.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voicecmd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voicecmd")
	}

	// Environment variables: VOICECMD_SERVER_PORT, VOICECMD_REASONING_BACKEND, etc.
	v.SetEnvPrefix("VOICECMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "VOICECMD_SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := v.BindPFlag("server.port", fs.Lookup("port")); err != nil {
			return nil, err
		}
		if err := v.BindPFlag("logging.level", fs.Lookup("log-level")); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GROQ_API_KEY}")
	cfg.Reasoning.APIKey = resolveEnvRef(cfg.Reasoning.APIKey)
	cfg.Auth.JWTSecret = resolveEnvRef(cfg.Auth.JWTSecret)
	cfg.Devices.MQTT.Password = resolveEnvRef(cfg.Devices.MQTT.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values a running server depends on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if c.Server.MaxUtteranceBytes <= 0 {
		return errors.New("server.max_utterance_bytes must be positive")
	}
	if c.Pipeline.SampleRate <= 0 {
		return errors.New("pipeline.sample_rate must be positive")
	}
	if c.Pipeline.SourceLanguage == "" || c.Pipeline.TargetLanguage == "" {
		return errors.New("pipeline languages are required")
	}
	if len(c.Pipeline.AllowedExtensions) == 0 {
		return errors.New("pipeline.allowed_extensions must not be empty")
	}

	if err := oneOf("speech.backend", c.Speech.Backend, "google", "mock"); err != nil {
		return err
	}
	if err := oneOf("translation.backend", c.Translation.Backend, "google", "mock"); err != nil {
		return err
	}
	if err := oneOf("reasoning.backend", c.Reasoning.Backend, "openai", "gemini", "mock"); err != nil {
		return err
	}
	if err := oneOf("devices.backend", c.Devices.Backend, "unimplemented", "memory", "mqtt"); err != nil {
		return err
	}
	if c.Devices.MQTT.QoS < 0 || c.Devices.MQTT.QoS > 2 {
		return fmt.Errorf("devices.mqtt.qos %d must be 0, 1 or 2", c.Devices.MQTT.QoS)
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s %q must be one of %s", key, value, strings.Join(allowed, ", "))
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}
