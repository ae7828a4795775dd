// Command server runs warden: the gateway event loop that guards
// communities against unvetted automated participants, plus the ops HTTP
// API. Wiring only; behavior lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"warden/internal/allowlist"
	"warden/internal/approval/command"
	"warden/internal/approval/engine"
	apihandler "warden/internal/approval/handler"
	"warden/internal/approval/metrics"
	"warden/internal/approval/notifier"
	"warden/internal/approval/registry"
	"warden/internal/gateway"
	gatewaymemory "warden/internal/gateway/memory"
	httpapi "warden/internal/http"
	"warden/internal/platform/config"
	"warden/internal/platform/httpserver"
	"warden/internal/platform/kafka"
	"warden/internal/platform/logger"
	platformredis "warden/internal/platform/redis"
	"warden/internal/platform/token"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/audit/publisher"
	auditmemory "warden/pkg/platform/audit/store/memory"
	auditpostgres "warden/pkg/platform/audit/store/postgres"
	"warden/pkg/platform/audit/stream"
)

const (
	shutdownTimeout  = 10 * time.Second
	retentionPeriod  = 12 * time.Hour
	auditBufferSize  = 1024
	kafkaFlushWindow = 5 * time.Second
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("warden exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit trail: Postgres when configured, in-memory otherwise.
	var (
		auditStore audit.Store
		db         *sql.DB
		pgStore    *auditpostgres.Store
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		pgStore = auditpostgres.New(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("prepare audit schema: %w", err)
		}
		auditStore = pgStore
	} else {
		log.Warn("no database configured, audit trail will not survive restarts")
		auditStore = auditmemory.NewInMemoryStore()
	}

	pubOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(auditBufferSize),
	}

	// Optional Kafka fan-out of the audit trail.
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), kafkaFlushWindow)
			defer cancel()
			_ = producer.Flush(flushCtx)
			producer.Close()
		}()

		sink := stream.New(producer, cfg.Kafka.AuditTopic,
			stream.WithLogger(log),
			stream.WithMetrics(stream.NewMetrics()),
		)
		pubOpts = append(pubOpts, publisher.WithSink(sink))
		log.Info("audit stream enabled", "topic", cfg.Kafka.AuditTopic)
	}

	auditPublisher := publisher.NewPublisher(auditStore, pubOpts...)
	defer auditPublisher.Close()

	// Allowlist: Redis primary with in-memory failover when configured,
	// in-memory only otherwise.
	var allowStore allowlist.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		allowStore = allowlist.NewFailover(
			allowlist.NewRedis(redisClient.Client),
			allowlist.NewInMemory(),
			nil,
			log,
		)
	} else {
		log.Warn("no redis configured, allowlist will not survive restarts")
		allowStore = allowlist.NewInMemory()
	}

	// A concrete platform SDK adapter plugs in here; the in-memory gateway
	// serves local runs and tests.
	gw := gatewaymemory.New()
	defer gw.Close()

	notif, err := notifier.New(gw, gw,
		notifier.WithLogger(log),
		notifier.WithAuditPublisher(auditPublisher),
		notifier.WithAnnounceChannel(cfg.Approval.AnnounceChannelID),
		notifier.WithCommandPrefix(cfg.Approval.CommandPrefix),
	)
	if err != nil {
		return fmt.Errorf("build notifier: %w", err)
	}

	reg := registry.New()

	engineCfg := engine.DefaultConfig()
	engineCfg.Timeout = cfg.Approval.Timeout
	engineCfg.RemovalRetries = cfg.Approval.RemovalRetries
	engineCfg.RequiredCapabilities = cfg.Approval.RequiredCapabilities

	eng, err := engine.New(reg, allowStore, notif, gw, gw,
		engine.WithLogger(log),
		engine.WithConfig(engineCfg),
		engine.WithMetrics(metrics.New()),
		engine.WithAuditPublisher(auditPublisher),
		engine.WithAuditReader(auditPublisher),
	)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer eng.Close()

	disp, err := command.New(eng, reg, gw, gw,
		command.WithLogger(log),
		command.WithPrefix(cfg.Approval.CommandPrefix),
		command.WithAuditPublisher(auditPublisher),
		command.WithAuditReader(auditPublisher),
	)
	if err != nil {
		return fmt.Errorf("build command dispatcher: %w", err)
	}

	apiOpts := []apihandler.Option{
		apihandler.WithLogger(log),
		apihandler.WithAuditPublisher(auditPublisher),
		apihandler.WithOpsKeyHash(cfg.Auth.OpsKeyHash),
	}
	if cfg.Auth.JWTSecret != "" {
		tokens := token.New(cfg.Auth.JWTSecret, "warden", "warden-ops")
		apiOpts = append(apiOpts, apihandler.WithTokenValidator(token.NewMiddlewareAdapter(tokens)))
	} else {
		log.Warn("no JWT secret configured, guarded ops routes answer 503")
	}
	api, err := apihandler.New(eng, auditPublisher, apiOpts...)
	if err != nil {
		return fmt.Errorf("build ops API: %w", err)
	}

	var checks []httpapi.ReadyCheck
	if db != nil {
		checks = append(checks, httpapi.ReadyCheck{Name: "database", Probe: db.PingContext})
	}
	if redisClient != nil {
		checks = append(checks, httpapi.ReadyCheck{Name: "redis", Probe: redisClient.Health})
	}

	srv := httpserver.New(cfg.HTTP.Addr, httpapi.New(api, checks...))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("ops API listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		runEventLoop(gctx, log, gw, eng, disp)
		return nil
	})

	if pgStore != nil && cfg.Database.AuditRetentionDays > 0 {
		g.Go(func() error {
			runRetention(gctx, log, pgStore, cfg.Database.AuditRetentionDays)
			return nil
		})
	}

	log.Info("warden started",
		"approval_timeout", cfg.Approval.Timeout.String(),
		"command_prefix", cfg.Approval.CommandPrefix,
		"reviewer_role", cfg.Approval.ReviewerRoleID,
	)

	err = g.Wait()
	log.Info("warden shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runEventLoop consumes gateway events on one goroutine and dispatches
// each on its own, so a slow removal cannot delay event intake. It
// returns only after in-flight dispatches finish, keeping them ahead of
// the deferred audit teardown.
func runEventLoop(ctx context.Context, log *slog.Logger, source gateway.EventSource, eng *engine.Engine, disp *command.Dispatcher) {
	gate := &capabilityGate{engine: eng, passed: make(map[string]bool)}

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-source.Events():
			if !ok {
				return
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				dispatchEvent(ctx, log, gate, eng, disp, evt)
			}()
		}
	}
}

func dispatchEvent(ctx context.Context, log *slog.Logger, gate *capabilityGate, eng *engine.Engine, disp *command.Dispatcher, evt gateway.Event) {
	switch e := evt.(type) {
	case gateway.ParticipantJoined:
		if err := gate.ensure(ctx, e.CommunityID); err != nil {
			log.ErrorContext(ctx, "community not guarded",
				"community_id", e.CommunityID,
				"error", err,
			)
			return
		}
		if err := eng.OnParticipantDetected(ctx, e); err != nil {
			log.ErrorContext(ctx, "participant detection failed",
				"community_id", e.CommunityID,
				"participant_id", e.ParticipantID,
				"error", err,
			)
		}
	case gateway.ReactionAdded:
		if err := disp.OnReaction(ctx, e); err != nil {
			log.ErrorContext(ctx, "reaction handling failed",
				"message_id", e.MessageID,
				"error", err,
			)
		}
	case gateway.CommandInvoked:
		if err := disp.OnCommand(ctx, e); err != nil {
			log.ErrorContext(ctx, "command handling failed",
				"community_id", e.CommunityID,
				"error", err,
			)
		}
	default:
		log.WarnContext(ctx, "unhandled gateway event", "kind", evt.Kind())
	}
}

// capabilityGate validates a community's capabilities once, on its first
// join event. Failures are not cached: the community keeps being
// re-checked on later events, so a permission fix takes effect without a
// restart.
type capabilityGate struct {
	engine *engine.Engine
	mu     sync.Mutex
	passed map[string]bool
}

func (g *capabilityGate) ensure(ctx context.Context, communityID string) error {
	g.mu.Lock()
	ok := g.passed[communityID]
	g.mu.Unlock()
	if ok {
		return nil
	}

	if err := g.engine.ValidateCapabilities(ctx, communityID); err != nil {
		return err
	}

	g.mu.Lock()
	g.passed[communityID] = true
	g.mu.Unlock()
	return nil
}

// runRetention prunes operations and security audit events past the
// retention window. Compliance events are kept forever.
func runRetention(ctx context.Context, log *slog.Logger, store *auditpostgres.Store, days int) {
	ticker := time.NewTicker(retentionPeriod)
	defer ticker.Stop()

	categories := []audit.EventCategory{audit.CategoryOperations, audit.CategorySecurity}
	for {
		cutoff := time.Now().AddDate(0, 0, -days)
		deleted, err := store.Purge(ctx, cutoff, categories)
		if err != nil {
			log.WarnContext(ctx, "audit retention purge failed", "error", err)
		} else if deleted > 0 {
			log.InfoContext(ctx, "audit events pruned", "deleted", deleted, "cutoff", cutoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
