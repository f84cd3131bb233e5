// Package config loads runtime configuration from defaults, an optional YAML
// file, a .env file and IDCARD_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Recognition engines
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
)

// DefaultWhitelist is the character set the recognizer is restricted to.
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789/:,.- ()"

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Extract    ExtractConfig    `mapstructure:"extract"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment" validate:"oneof=development staging production"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" validate:"min=1024"`
}

// Addr returns host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OCRConfig selects and tunes the text recognition engine
type OCRConfig struct {
	Engine                string `mapstructure:"engine" validate:"oneof=tesseract vision"`
	Language              string `mapstructure:"language" validate:"required"`
	TessdataPrefix        string `mapstructure:"tessdata_prefix"`
	Whitelist             string `mapstructure:"whitelist"`
	MinTextLength         int    `mapstructure:"min_text_length" validate:"min=1"`
	VisionCredentialsFile string `mapstructure:"vision_credentials_file"`
}

// PreprocessConfig tunes the image enhancement chain
type PreprocessConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	TargetWidth    int     `mapstructure:"target_width" validate:"min=1"`
	MarginX        float64 `mapstructure:"margin_x" validate:"min=0,lt=0.5"`
	MarginY        float64 `mapstructure:"margin_y" validate:"min=0,lt=0.5"`
	ContrastGain   float64 `mapstructure:"contrast_gain" validate:"gt=0"`
	ContrastOffset float64 `mapstructure:"contrast_offset"`
	SharpenSigma   float64 `mapstructure:"sharpen_sigma" validate:"min=0"`
	Threshold      int     `mapstructure:"threshold" validate:"min=0,max=255"`
}

// ExtractConfig tunes the field extractor
type ExtractConfig struct {
	RegionAnchor string `mapstructure:"region_anchor" validate:"required"`
}

var validate = validator.New()

// Load reads configuration for serviceName. A missing config file or .env
// file is not an error.
func Load(serviceName string) (*Config, error) {
	// .env values never override variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("IDCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/" + serviceName)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and environment-specific rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Server.Environment == EnvProduction || c.Server.Environment == EnvStaging {
		for _, o := range c.Server.AllowedOrigins {
			if o == "*" {
				return errors.New("IDCARD_SERVER_ALLOWED_ORIGINS must not contain * in " + c.Server.Environment)
			}
		}
	}
	return nil
}

// Default returns the configuration produced when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.environment", EnvDevelopment)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.max_upload_bytes", int64(10<<20))

	v.SetDefault("log.level", "info")

	v.SetDefault("ocr.engine", EngineTesseract)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.tessdata_prefix", "")
	v.SetDefault("ocr.whitelist", DefaultWhitelist)
	v.SetDefault("ocr.min_text_length", 10)
	v.SetDefault("ocr.vision_credentials_file", "")

	v.SetDefault("preprocess.enabled", true)
	v.SetDefault("preprocess.target_width", 2000)
	v.SetDefault("preprocess.margin_x", 0.03)
	v.SetDefault("preprocess.margin_y", 0.05)
	v.SetDefault("preprocess.contrast_gain", 1.2)
	v.SetDefault("preprocess.contrast_offset", -20.0)
	v.SetDefault("preprocess.sharpen_sigma", 1.0)
	v.SetDefault("preprocess.threshold", 128)

	v.SetDefault("extract.region_anchor", "Kerala")
}
