package service

import (
	"context"
	"database/sql"
	"fmt"

	"audit-remediation/common/database"
	"audit-remediation/common/mqtt"
	rediscommon "audit-remediation/common/redis"
	"audit-remediation/internal/actionplan"
	"audit-remediation/internal/assignment"
	"audit-remediation/internal/config"
	"audit-remediation/internal/consumer"
	"audit-remediation/internal/deviation"
	"audit-remediation/internal/escalation"
	"audit-remediation/internal/lock"
	"audit-remediation/internal/metrics"
	"audit-remediation/internal/models"
	"audit-remediation/internal/notify"
	"audit-remediation/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RemediationService owns the connections and background loops around Engine
type RemediationService struct {
	*Engine

	config      *config.Config
	db          *sql.DB
	redisClient *rediscommon.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger
	caps        models.Capabilities

	scheduler *escalation.Scheduler
	consumer  *consumer.InspectionConsumer
}

// NewRemediationService connects to storage and wires the engine.
func NewRemediationService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RemediationService, error) {
	// 1. database
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &RemediationService{config: cfg, db: db, logger: logger}

	// 2. redis (optional)
	if cfg.RedisEnabled {
		s.redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, s.redisClient); err != nil {
			s.Stop()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
	}

	// 3. optional schema features
	caps, err := repository.NewSchemaProbe(db, logger).Probe(ctx)
	if err != nil {
		logger.Warn("Schema probe failed, assuming full schema", zap.Error(err))
		caps = models.Capabilities{HasEscalatedTo: true, HasCommentsTable: true}
	}
	s.caps = caps

	// 4. notifier
	notifier, err := s.buildNotifier()
	if err != nil {
		s.Stop()
		return nil, err
	}

	// 5. locker
	var locker lock.Locker = lock.NopLocker{}
	if s.redisClient != nil {
		locker = lock.NewRedisLocker(s.redisClient, "remediation:lock:", logger)
	}

	s.Engine = NewEngine(db, cfg, caps, notifier, locker, logger)
	s.scheduler = escalation.NewScheduler(s.Engine, cfg.Escalation.Interval, logger)
	if s.redisClient != nil {
		s.consumer = consumer.NewInspectionConsumer(s.redisClient, s.Engine, consumer.Options{
			Stream:    cfg.Streams.Inspection,
			Group:     cfg.Streams.ConsumerGroup,
			Consumer:  cfg.Streams.ConsumerName,
			BatchSize: cfg.Streams.BatchSize,

			ReplayIdle:    cfg.Streams.ReplayIdle,
			MaxDeliveries: cfg.Streams.MaxDeliveries,
		}, logger)
	}

	return s, nil
}

// NewEngine builds the engine over a database handle.
func NewEngine(db *sql.DB, cfg *config.Config, caps models.Capabilities, notifier escalation.Notifier, locker lock.Locker, logger *zap.Logger) *Engine {
	responsesRepo := repository.NewResponsesRepository(db, logger)
	inspectionsRepo := repository.NewInspectionsRepository(db, logger)
	entriesRepo := repository.NewRemediationEntriesRepository(db, logger)
	usersRepo := repository.NewUsersRepository(db, logger)
	rulesRepo := repository.NewAssignmentRulesRepository(db, logger)
	actionItemsRepo := repository.NewActionItemsRepository(db, logger, caps)

	return &Engine{
		Config:            cfg.Engine,
		Scanner:           deviation.NewScanner(responsesRepo, cfg.Engine, logger),
		Writer:            actionplan.NewWriter(entriesRepo, inspectionsRepo, cfg.Engine, logger),
		Resolver:          assignment.NewDefaultResolver(rulesRepo, usersRepo, logger),
		Workflow:          escalation.NewWorkflow(actionItemsRepo, usersRepo, notifier, cfg.Engine.EscalationDays, logger),
		Entries:           entriesRepo,
		Locker:            locker,
		Metrics:           metrics.NewMetrics(),
		Logger:            logger,
		PlanLockTTL:       cfg.Plan.LockTTL,
		EscalationLockTTL: cfg.Escalation.LockTTL,
	}
}

// Capabilities reports the optional schema features detected at startup.
func (s *RemediationService) Capabilities() models.Capabilities {
	return s.caps
}

func (s *RemediationService) buildNotifier() (escalation.Notifier, error) {
	switch s.config.Notifier.Transport {
	case notify.TransportHTTP:
		return notify.NewHTTPNotifier(s.config.Notifier.HTTPURL, s.logger), nil
	case notify.TransportMQTT:
		client, err := mqtt.NewClient(&s.config.MQTT)
		if err != nil {
			return nil, err
		}
		s.mqttClient = client
		return notify.NewMQTTNotifier(client, s.config.MQTT.TopicPrefix, byte(s.config.MQTT.QoS), s.logger), nil
	case notify.TransportStream:
		if s.redisClient == nil {
			return nil, fmt.Errorf("notifier transport %q requires REDIS_ENABLED=true", notify.TransportStream)
		}
		return notify.NewStreamNotifier(s.redisClient, s.config.Notifier.Stream, s.logger), nil
	case notify.TransportLog, "":
		return notify.NewLogNotifier(s.logger), nil
	default:
		return nil, fmt.Errorf("unsupported notifier transport: %s", s.config.Notifier.Transport)
	}
}

// Start runs the escalation scheduler and, with Redis, the inspection
// consumer. It blocks until ctx is cancelled or a loop fails.
func (s *RemediationService) Start(ctx context.Context) error {
	s.logger.Info("Starting remediation service",
		zap.Bool("redis_enabled", s.redisClient != nil),
		zap.String("notifier", s.config.Notifier.Transport),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.scheduler.Start(gctx)
	})
	if s.consumer != nil {
		g.Go(func() error {
			return s.consumer.Start(gctx)
		})
	}
	return g.Wait()
}

// Stop closes connections.
func (s *RemediationService) Stop() error {
	s.logger.Info("Stopping remediation service")

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if err := rediscommon.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
	return nil
}
