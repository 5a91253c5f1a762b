package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imgvault/imgvault/config"
	kafkactrl "github.com/imgvault/imgvault/internal/controller/kafka"
	"github.com/imgvault/imgvault/internal/controller/restapi"
	"github.com/imgvault/imgvault/internal/controller/worker/reaper"
	infrakafka "github.com/imgvault/imgvault/internal/infrastructure/kafka"
	"github.com/imgvault/imgvault/internal/infrastructure/processor"
	"github.com/imgvault/imgvault/internal/repo/persistent"
	"github.com/imgvault/imgvault/internal/usecase/image"
	"github.com/imgvault/imgvault/internal/usecase/preview"
	"github.com/imgvault/imgvault/pkg/httpserver"
	"github.com/imgvault/imgvault/pkg/kafka/consumer"
	"github.com/imgvault/imgvault/pkg/kafka/producer"
	"github.com/imgvault/imgvault/pkg/logger"
	"github.com/imgvault/imgvault/pkg/postgres"
	"github.com/imgvault/imgvault/pkg/s3client"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Repository

	// s3
	s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
	defer s3Cancel()
	s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - s3client.New: %w", err))
	}

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	blobRepo := persistent.NewBlobRepo(s3c)
	metadataRepo := persistent.NewImageMetadataRepo(pg)

	// Kafka Producer
	kafkaProducer, err := producer.New(ctx, cfg.Kafka.Brokers)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
	}
	eventPublisher := infrakafka.NewEventPublisher(kafkaProducer, cfg.Kafka.Topic)

	// Use-Case

	// image lifecycle use-case
	imageUseCase := image.New(
		blobRepo,
		metadataRepo,
		pg,
		eventPublisher,
		cfg.Lifecycle.ImagesBucket,
		cfg.Lifecycle.PreviewBucket,
		cfg.Lifecycle.ImageTTL,
		cfg.Lifecycle.AllowedContentTypes,
		l,
	)

	// preview generation use-case
	previewUseCase := preview.New(
		blobRepo,
		metadataRepo,
		processor.New(),
		cfg.Lifecycle.ImagesBucket,
		cfg.Lifecycle.PreviewBucket,
		cfg.Lifecycle.PreviewSizes,
		l,
	)

	// Kafka Consumer
	kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - consumer.New: %w", err))
	}

	// Kafka as Controller
	kafkaController := kafkactrl.New(
		previewUseCase,
		infrakafka.NewEventConsumer(kafkaConsumer),
		l,
		cfg.KafkaController.CommitTimeout,
		cfg.KafkaController.ProcessTimeout,
	)

	// Expiry Reaper
	reaperWorker := reaper.New(imageUseCase, l, cfg.Lifecycle.SweepInterval)

	// HTTP Server
	httpServer := httpserver.New(l, httpserver.Port(cfg.HTTP.Port), httpserver.Prefork(cfg.HTTP.UsePreforkMode))
	restapi.NewRouter(httpServer.App, imageUseCase, l)

	// Start Components
	err = kafkaController.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - kafkaController.Start: %w", err))
	}
	err = reaperWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - reaperWorker.Start: %w", err))
	}
	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	rpShutdownCtx, rpShutdownCancel := context.WithTimeout(ctx, cfg.Lifecycle.ReaperShutdown)
	defer rpShutdownCancel()
	err = reaperWorker.Shutdown(rpShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - reaperWorker.Shutdown: %w", err))
	}

	kcShutdownCtx, kcShutdownCancel := context.WithTimeout(ctx, cfg.KafkaController.ShutdownTimeout)
	defer kcShutdownCancel()
	err = kafkaController.Shutdown(kcShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - kafkaController.Shutdown: %w", err))
	}

	err = eventPublisher.Close()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - eventPublisher.Close: %w", err))
	}
}
