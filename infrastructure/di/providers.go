package di

import (
	"context"
	"fmt"

	"canvas-backend/application/ports"
	"canvas-backend/application/services"
	"canvas-backend/domain/canvas"
	"canvas-backend/infrastructure/chat"
	"canvas-backend/infrastructure/config"
	"canvas-backend/infrastructure/messaging/eventbridge"
	"canvas-backend/infrastructure/persistence/dynamodb"
	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideProjectRepository creates a project repository
func ProvideProjectRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ProjectRepository {
	return dynamodb.NewProjectRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
}

// ProvideSnapshotRepository creates a snapshot repository
func ProvideSnapshotRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SnapshotRepository {
	return dynamodb.NewSnapshotRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher creates the EventBridge event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates metrics instance. Returns a nil emitter (a
// valid no-op) when metrics are disabled.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	namespace := fmt.Sprintf("Canvas/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client)
}

// ProvideTracer creates the tracer, or nil when tracing is disabled.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("canvas-backend")
}

// ProvideChatClient creates the chat-service client. It doubles as the
// conversation cleaner for the delete cascade.
func ProvideChatClient(cfg *config.Config, logger *zap.Logger) *chat.Client {
	return chat.NewClient(cfg.ChatServiceURL, nil, logger.Named("chat"))
}

// ProvideConversationCleaner exposes the chat client as the cleaner
// dependency injected into canvas stores.
func ProvideConversationCleaner(client *chat.Client) canvas.ConversationCleaner {
	return client
}

// ProvideCanvasService creates the persistence bridge
func ProvideCanvasService(
	projects ports.ProjectRepository,
	snapshots ports.SnapshotRepository,
	publisher ports.EventPublisher,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.CanvasService {
	return services.NewCanvasService(projects, snapshots, publisher, tracer, logger.Named("canvas"))
}

// ProvideProjectService creates the project registry service
func ProvideProjectService(
	projects ports.ProjectRepository,
	snapshots ports.SnapshotRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.ProjectService {
	return services.NewProjectService(projects, snapshots, publisher, logger.Named("projects"))
}

// ProvideCanvasManager creates the canvas session manager
func ProvideCanvasManager(
	svc *services.CanvasService,
	cleaner canvas.ConversationCleaner,
	publisher ports.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *services.CanvasManager {
	return services.NewCanvasManager(svc, cleaner, publisher, cfg.AutosaveQuietPeriod, logger.Named("sessions"))
}

// ProvideJWTValidator creates the bearer-token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}
