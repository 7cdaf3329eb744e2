package di

import (
	"context"
	"fmt"
	"log"

	domainservices "github.com/takutakahashi/pushnotify/internal/domain/services"
	"github.com/takutakahashi/pushnotify/internal/infrastructure/repositories"
	"github.com/takutakahashi/pushnotify/internal/infrastructure/services"
	"github.com/takutakahashi/pushnotify/internal/interfaces/controllers"
	"github.com/takutakahashi/pushnotify/internal/usecases/analytics"
	"github.com/takutakahashi/pushnotify/internal/usecases/automation"
	"github.com/takutakahashi/pushnotify/internal/usecases/event"
	"github.com/takutakahashi/pushnotify/internal/usecases/notification"
	portrepos "github.com/takutakahashi/pushnotify/internal/usecases/ports/repositories"
	portservices "github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
	"github.com/takutakahashi/pushnotify/internal/usecases/project"
	"github.com/takutakahashi/pushnotify/internal/usecases/recurring"
	"github.com/takutakahashi/pushnotify/internal/usecases/subscriber"
	"github.com/takutakahashi/pushnotify/internal/usecases/targeting"
	"github.com/takutakahashi/pushnotify/pkg/auth"
	"github.com/takutakahashi/pushnotify/pkg/config"
	"github.com/takutakahashi/pushnotify/pkg/logger"
	pushpkg "github.com/takutakahashi/pushnotify/pkg/notification"
)

// auditHistory is how many dispatches the audit log keeps per notification
const auditHistory = 50

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config

	// Repositories
	ProjectRepo      portrepos.ProjectRepository
	SubscriberRepo   portrepos.SubscriberRepository
	NotificationRepo portrepos.NotificationRepository
	AutomationRepo   portrepos.AutomationRepository
	EventRepo        portrepos.EventRepository

	// Services
	Encryption   domainservices.EncryptionService
	KeyGenerator portservices.VAPIDKeyGenerator
	Transports   portservices.PushTransportFactory
	Locker       portservices.DispatchLocker
	Publisher    portservices.EventPublisher
	Recorder     portservices.DispatchRecorder
	Tokens       *auth.TokenService

	// Use Cases
	CreateProjectUC      *project.CreateProjectUseCase
	ManageProjectUC      *project.ManageProjectUseCase
	SubscribeUC          *subscriber.SubscribeUseCase
	UnsubscribeUC        *subscriber.UnsubscribeUseCase
	ManageSubscribersUC  *subscriber.ManageSubscribersUseCase
	ResolveAudienceUC    *targeting.ResolveAudienceUseCase
	SendNotificationUC   *notification.SendNotificationUseCase
	CreateNotificationUC *notification.CreateNotificationUseCase
	ManageNotificationUC *notification.ManageNotificationUseCase
	TickUC               *recurring.TickUseCase
	ManageAutomationUC   *automation.ManageAutomationUseCase
	MatchEventUC         *automation.MatchEventUseCase
	TrackEventUC         *event.TrackEventUseCase
	ListEventsUC         *event.ListEventsUseCase
	ProjectReportUC      *analytics.ProjectReportUseCase

	// Controllers
	MainController *controllers.MainController

	closers []func()
}

// NewContainer creates and configures a new dependency injection container.
// Call Close to release connections once the container is no longer used.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	// Initialize repositories
	if err := container.initRepositories(ctx); err != nil {
		container.Close()
		return nil, err
	}

	// Initialize services
	if err := container.initServices(ctx); err != nil {
		container.Close()
		return nil, err
	}

	// Initialize use cases
	container.initUseCases()

	// Initialize controllers
	container.initControllers()

	return container, nil
}

// Close releases database, Redis and Kafka connections in reverse order of creation
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// initRepositories initializes all repository dependencies
func (c *Container) initRepositories(ctx context.Context) error {
	switch c.Config.Storage.Type {
	case "postgres":
		pool, err := repositories.NewPostgresPool(ctx, c.Config.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, pool.Close)
		if err := repositories.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		c.ProjectRepo = repositories.NewPostgresProjectRepository(pool)
		c.SubscriberRepo = repositories.NewPostgresSubscriberRepository(pool)
		c.NotificationRepo = repositories.NewPostgresNotificationRepository(pool)
		c.AutomationRepo = repositories.NewPostgresAutomationRepository(pool)
		c.EventRepo = repositories.NewPostgresEventRepository(pool)
		log.Printf("[DI] Using postgres storage")
	default:
		c.ProjectRepo = repositories.NewMemoryProjectRepository()
		c.SubscriberRepo = repositories.NewMemorySubscriberRepository()
		c.NotificationRepo = repositories.NewMemoryNotificationRepository()
		c.AutomationRepo = repositories.NewMemoryAutomationRepository()
		c.EventRepo = repositories.NewMemoryEventRepository()
		log.Printf("[DI] Using in-memory storage")
	}
	return nil
}

// initServices initializes all service dependencies
func (c *Container) initServices(ctx context.Context) error {
	cfg := c.Config

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	c.Tokens = tokens

	c.Encryption = services.NewEncryptionServiceFactory(services.EncryptionSettings{
		KMSKeyID:  cfg.Encryption.KMSKeyID,
		KMSRegion: cfg.Encryption.KMSRegion,
		KeyFile:   cfg.Encryption.KeyFile,
		Key:       cfg.Encryption.Key,
	}).Create(ctx)
	c.KeyGenerator = services.NewVAPIDKeyGenerator()
	c.Transports = services.NewWebPushTransportFactory(c.Encryption, pushpkg.TransportOptions{
		TTL:     cfg.Dispatch.TTL,
		Urgency: cfg.Dispatch.Urgency,
	})

	if cfg.Redis.Addr != "" {
		client, err := services.NewRedisClient(ctx, services.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return err
		}
		c.closers = append(c.closers, func() { _ = client.Close() })
		c.Locker = services.NewRedisDispatchLocker(client, cfg.Redis.KeyPrefix)
		log.Printf("[DI] Using Redis dispatch lock at %s", cfg.Redis.Addr)
	} else {
		c.Locker = services.NewMemoryDispatchLocker()
	}

	if len(cfg.Events.Brokers) > 0 {
		producer, err := services.NewSaramaProducer(services.KafkaSettings{
			Brokers:  cfg.Events.Brokers,
			Topic:    cfg.Events.Topic,
			ClientID: cfg.Events.ClientID,
		})
		if err != nil {
			return err
		}
		publisher, err := services.NewKafkaEventPublisher(producer, cfg.Events.Topic)
		if err != nil {
			_ = producer.Close()
			return err
		}
		c.closers = append(c.closers, publisher.Close)
		c.Publisher = publisher
		log.Printf("[DI] Publishing events to Kafka topic %s", cfg.Events.Topic)
	} else {
		c.Publisher = services.NoopEventPublisher{}
	}

	if cfg.LogDir != "" {
		c.Recorder = services.NewAuditDispatchRecorder(logger.NewLogger(cfg.LogDir, auditHistory))
	}
	return nil
}

// initUseCases initializes all use case dependencies
func (c *Container) initUseCases() {
	cfg := c.Config

	// Project use cases
	c.CreateProjectUC = project.NewCreateProjectUseCase(c.ProjectRepo, c.KeyGenerator, c.Encryption, cfg.Dispatch.VAPIDSubject)
	c.ManageProjectUC = project.NewManageProjectUseCase(c.ProjectRepo)

	// Subscriber use cases
	c.SubscribeUC = subscriber.NewSubscribeUseCase(c.ProjectRepo, c.SubscriberRepo)
	c.UnsubscribeUC = subscriber.NewUnsubscribeUseCase(c.SubscriberRepo)
	c.ManageSubscribersUC = subscriber.NewManageSubscribersUseCase(c.ProjectRepo, c.SubscriberRepo)

	// Notification use cases
	c.ResolveAudienceUC = targeting.NewResolveAudienceUseCase(c.SubscriberRepo)
	c.SendNotificationUC = notification.NewSendNotificationUseCase(
		c.NotificationRepo,
		c.ProjectRepo,
		c.SubscriberRepo,
		c.ResolveAudienceUC,
		c.Transports,
		c.Locker,
		c.Recorder,
		notification.NewDispatcher(notification.DispatcherConfig{
			Concurrency: cfg.Dispatch.Concurrency,
			SendTimeout: cfg.Dispatch.SendTimeout,
		}),
	)
	c.SendNotificationUC.SetLockTTL(cfg.Dispatch.LockTTL)
	c.CreateNotificationUC = notification.NewCreateNotificationUseCase(c.ProjectRepo, c.NotificationRepo, c.SendNotificationUC)
	c.ManageNotificationUC = notification.NewManageNotificationUseCase(c.ProjectRepo, c.NotificationRepo, c.SendNotificationUC)
	c.TickUC = recurring.NewTickUseCase(c.NotificationRepo, c.SendNotificationUC)

	// Automation and event use cases
	c.ManageAutomationUC = automation.NewManageAutomationUseCase(c.ProjectRepo, c.AutomationRepo, c.NotificationRepo)
	c.MatchEventUC = automation.NewMatchEventUseCase(c.AutomationRepo, c.NotificationRepo, c.SendNotificationUC)
	c.TrackEventUC = event.NewTrackEventUseCase(c.ManageProjectUC, c.EventRepo, c.Publisher, c.MatchEventUC)
	c.ListEventsUC = event.NewListEventsUseCase(c.ProjectRepo, c.EventRepo)

	c.ProjectReportUC = analytics.NewProjectReportUseCase(c.ProjectRepo, c.NotificationRepo, c.SubscriberRepo)
}

// initControllers initializes all controller dependencies
func (c *Container) initControllers() {
	c.MainController = controllers.NewMainController(
		controllers.NewHealthController(),
		c.Tokens,
		controllers.RateLimit{Requests: c.Config.Server.RateLimit, Window: c.Config.Server.RateWindow},
		controllers.NewProjectController(c.CreateProjectUC, c.ManageProjectUC),
		controllers.NewSubscriberController(c.SubscribeUC, c.UnsubscribeUC, c.ManageSubscribersUC),
		controllers.NewNotificationController(c.CreateNotificationUC, c.ManageNotificationUC),
		controllers.NewAutomationController(c.ManageAutomationUC),
		controllers.NewEventController(c.TrackEventUC, c.ListEventsUC),
		controllers.NewWebhookController(c.ManageNotificationUC),
		controllers.NewAnalyticsController(c.ProjectReportUC),
	)
}
