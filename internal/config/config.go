package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPHost    string        `envconfig:"HTTP_HOST" default:"localhost"`
	HTTPPort    string        `envconfig:"HTTP_PORT" default:"3000"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"5m"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`

	UploadsDir   string `envconfig:"UPLOADS_DIR" default:"./uploads"`
	PublicPrefix string `envconfig:"PUBLIC_PREFIX" default:"/uploads/"`

	EncoderPath     string        `envconfig:"WATERMARK_ENCODER" default:"python3"`
	EncoderArgs     []string      `envconfig:"WATERMARK_ENCODER_ARGS" default:"scripts/encode_watermark.py"`
	DecoderPath     string        `envconfig:"WATERMARK_DECODER" default:"python3"`
	DecoderArgs     []string      `envconfig:"WATERMARK_DECODER_ARGS" default:"scripts/decode_watermark.py"`
	WatermarkSecret string        `envconfig:"WATERMARK_SECRET" default:"secret"`
	WatermarkSuffix string        `envconfig:"WATERMARK_DIR_SUFFIX" default:"_watermarked"`
	VerifyWatermark bool          `envconfig:"WATERMARK_VERIFY" default:"true"`
	CodecTimeout    time.Duration `envconfig:"CODEC_TIMEOUT" default:"0s"`

	CleanupOnFailure bool          `envconfig:"CLEANUP_ON_FAILURE" default:"false"`
	MaxRunsInProcess int           `envconfig:"MAX_RUNS_IN_PROCESS" default:"16"`
	RunTTL           time.Duration `envconfig:"RUN_TTL" default:"1h"`

	MaxImageFiles int   `envconfig:"MAX_IMAGE_FILES" default:"10"`
	MaxImageSize  int64 `envconfig:"MAX_IMAGE_SIZE" default:"5242880"`
	MaxFiles      int   `envconfig:"MAX_FILES" default:"10"`
	MaxFileSize   int64 `envconfig:"MAX_FILE_SIZE" default:"1073741824"`
}

var ErrInvalidConfig = errors.New("некорректная конфигурация")

// Load читает необязательный .env и переменные окружения.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// .env не обязателен
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.EncoderPath) == "":
		return fmt.Errorf("%w: не задан WATERMARK_ENCODER", ErrInvalidConfig)
	case strings.TrimSpace(c.DecoderPath) == "":
		return fmt.Errorf("%w: не задан WATERMARK_DECODER", ErrInvalidConfig)
	case c.WatermarkSecret == "":
		return fmt.Errorf("%w: пустой WATERMARK_SECRET", ErrInvalidConfig)
	case c.WatermarkSuffix == "":
		return fmt.Errorf("%w: пустой WATERMARK_DIR_SUFFIX", ErrInvalidConfig)
	case !strings.HasPrefix(c.PublicPrefix, "/") || !strings.HasSuffix(c.PublicPrefix, "/"):
		return fmt.Errorf("%w: PUBLIC_PREFIX должен начинаться и заканчиваться на /", ErrInvalidConfig)
	case strings.TrimSpace(c.UploadsDir) == "":
		return fmt.Errorf("%w: не задан UPLOADS_DIR", ErrInvalidConfig)
	case c.MaxRunsInProcess <= 0:
		return fmt.Errorf("%w: MAX_RUNS_IN_PROCESS должен быть больше 0", ErrInvalidConfig)
	case c.MaxImageFiles <= 0 || c.MaxFiles <= 0:
		return fmt.Errorf("%w: лимит файлов должен быть больше 0", ErrInvalidConfig)
	case c.MaxImageSize <= 0 || c.MaxFileSize <= 0:
		return fmt.Errorf("%w: лимит размера файла должен быть больше 0", ErrInvalidConfig)
	case c.CodecTimeout < 0:
		return fmt.Errorf("%w: CODEC_TIMEOUT не может быть отрицательным", ErrInvalidConfig)
	}
	return nil
}
