// Command cleanup-handler removes the links of entities deleted by other
// notebook services. Inside Lambda it consumes EventBridge events; elsewhere
// it consumes entity.deleted messages from RabbitMQ.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/di"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/messaging/rabbitmq"
	"github.com/ariellewolter/research-notebook-ver4-sub004/interfaces/consumers"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

const cleanupQueue = "eln.links.cleanup"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()

	handler := consumers.NewEntityDeletedHandler(container.LinkService, container.Logger.Named("cleanup"))

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(func(ctx context.Context, event awsevents.CloudWatchEvent) error {
			err := handler.HandleCloudWatchEvent(ctx, event)
			if container.Exporter != nil {
				if flushErr := container.Exporter.Flush(ctx); flushErr != nil {
					container.Logger.Warn("Failed to flush metrics", zap.Error(flushErr))
				}
			}
			return err
		})
		return
	}

	if err := runRabbitMQ(ctx, cfg, handler, container.Logger); err != nil {
		container.Logger.Fatal("Cleanup consumer stopped", zap.Error(err))
	}
}

func runRabbitMQ(ctx context.Context, cfg *config.Config, handler *consumers.EntityDeletedHandler, logger *zap.Logger) error {
	conn, ch, err := rabbitmq.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	consumer := rabbitmq.NewConsumer(ch, cfg.RabbitMQExchange, cleanupQueue, handler.Handle, logger.Named("rabbitmq"))
	if err := consumer.Setup(); err != nil {
		return err
	}

	logger.Info("Consuming entity deletions",
		zap.String("exchange", cfg.RabbitMQExchange),
		zap.String("queue", cleanupQueue),
	)
	return consumer.Run(ctx)
}
