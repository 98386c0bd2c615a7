package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	LedgerBackendFile  = "file"
	LedgerBackendRedis = "redis"
)

type TelegramConfig struct {
	Token          string
	AdminID        int64
	PollTimeout    time.Duration
	RetryBackoff   time.Duration
	HTTPTimeout    time.Duration
	SupportContact string
}

type LedgerConfig struct {
	Backend     string
	Path        string
	RedisKey    string
	DefaultDays int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MediaConfig struct {
	FFmpegPath       string
	FFprobePath      string
	ScratchRoot      string
	MaxVideoBytes    int64
	MaxVideoDuration time.Duration
	MinOutputBytes   int64
	JPEGQuality      int
}

type JobsConfig struct {
	MaxConcurrent int64
	SweepSchedule string
	ScratchMaxAge time.Duration
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type HTTPConfig struct {
	Enabled      bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment string
	Telegram    TelegramConfig
	Ledger      LedgerConfig
	Redis       RedisConfig
	Media       MediaConfig
	Jobs        JobsConfig
	Archive     ArchiveConfig
	HTTP        HTTPConfig
	Logging     LoggingConfig
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("repurposer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("REPURPOSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that would make the bot unusable.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	switch c.Ledger.Backend {
	case LedgerBackendFile:
		if c.Ledger.Path == "" {
			return errors.New("ledger.path is required for the file backend")
		}
	case LedgerBackendRedis:
		if c.Ledger.RedisKey == "" {
			return errors.New("ledger.rediskey is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Ledger.DefaultDays <= 0 {
		return errors.New("ledger.defaultdays must be positive")
	}
	if c.Media.MaxVideoBytes <= 0 || c.Media.MaxVideoDuration <= 0 {
		return errors.New("media limits must be positive")
	}
	if c.Media.JPEGQuality < 1 || c.Media.JPEGQuality > 100 {
		return fmt.Errorf("media.jpegquality %d out of range", c.Media.JPEGQuality)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("archive.bucket is required when the archive is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.adminid", 0)
	v.SetDefault("telegram.polltimeout", "60s")
	v.SetDefault("telegram.retrybackoff", "10s")
	v.SetDefault("telegram.httptimeout", "120s")
	v.SetDefault("telegram.supportcontact", "@support")

	v.SetDefault("ledger.backend", LedgerBackendFile)
	v.SetDefault("ledger.path", "access_tokens.json")
	v.SetDefault("ledger.rediskey", "repurposer:tokens")
	v.SetDefault("ledger.defaultdays", 30)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("media.ffmpegpath", "ffmpeg")
	v.SetDefault("media.ffprobepath", "ffprobe")
	v.SetDefault("media.scratchroot", "")
	v.SetDefault("media.maxvideobytes", 50*1024*1024)
	v.SetDefault("media.maxvideoduration", "60s")
	v.SetDefault("media.minoutputbytes", 1000)
	v.SetDefault("media.jpegquality", 95)

	v.SetDefault("jobs.maxconcurrent", 16)
	v.SetDefault("jobs.sweepschedule", "0 */15 * * * *")
	v.SetDefault("jobs.scratchmaxage", "6h")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.accesskey", "")
	v.SetDefault("archive.secretkey", "")
	v.SetDefault("archive.bucket", "repurposer-outputs")
	v.SetDefault("archive.usessl", false)
	v.SetDefault("archive.region", "us-east-1")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("logging.level", "info")
}
