package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP            HTTP
		Log             Log
		PG              PG
		S3              S3
		Kafka           Kafka
		KafkaController KafkaController
		Lifecycle       Lifecycle
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT,required"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT,required"`
		AccessKey      string        `env:"S3_ACCESS_KEY,required"`
		SecretKey      string        `env:"S3_SECRET_KEY,required"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS,required"`
		GroupID string   `env:"KAFKA_GROUP_ID,required"`
		Topic   string   `env:"KAFKA_TOPIC" envDefault:"image.uploaded"`
	}

	KafkaController struct {
		CommitTimeout   time.Duration `env:"KAFKA_CONTROLLER_COMMIT_TIMEOUT" envDefault:"2s"`
		ProcessTimeout  time.Duration `env:"KAFKA_CONTROLLER_PROCESS_TIMEOUT" envDefault:"30s"`
		ShutdownTimeout time.Duration `env:"KAFKA_CONTROLLER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	}

	Lifecycle struct {
		AllowedContentTypes []string      `env:"LIFECYCLE_ALLOWED_CONTENT_TYPES" envDefault:"image/jpeg,image/png,image/gif,image/webp,image/bmp"`
		ImageTTL            time.Duration `env:"LIFECYCLE_IMAGE_TTL" envDefault:"24h"`
		SweepInterval       time.Duration `env:"LIFECYCLE_SWEEP_INTERVAL" envDefault:"5m"`
		ReaperShutdown      time.Duration `env:"LIFECYCLE_REAPER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		PreviewSizes        []int         `env:"LIFECYCLE_PREVIEW_SIZES" envDefault:"256,512,1024"`
		ImagesBucket        string        `env:"LIFECYCLE_IMAGES_BUCKET" envDefault:"images"`
		PreviewBucket       string        `env:"LIFECYCLE_PREVIEW_BUCKET" envDefault:"preview"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
