package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/vigil/internal/audit"
	"github.com/haasonsaas/vigil/internal/config"
	"github.com/haasonsaas/vigil/internal/executor"
	"github.com/haasonsaas/vigil/internal/intent"
	"github.com/haasonsaas/vigil/internal/llm"
	"github.com/haasonsaas/vigil/internal/memory"
	"github.com/haasonsaas/vigil/internal/observability"
	"github.com/haasonsaas/vigil/internal/observer"
	"github.com/haasonsaas/vigil/internal/planner"
	"github.com/haasonsaas/vigil/internal/reflector"
	"github.com/haasonsaas/vigil/internal/retriever"
	"github.com/haasonsaas/vigil/internal/sanitize"
	"github.com/haasonsaas/vigil/internal/skillgraph"
	"github.com/haasonsaas/vigil/internal/tools"
	"github.com/haasonsaas/vigil/internal/tools/guild"
	"github.com/haasonsaas/vigil/internal/tools/identitytool"
	"github.com/haasonsaas/vigil/internal/tools/memoryquery"
	"github.com/haasonsaas/vigil/internal/tools/message"
	"github.com/haasonsaas/vigil/internal/tools/reminders"
	"github.com/haasonsaas/vigil/internal/tools/system"
	"github.com/haasonsaas/vigil/pkg/models"
)

// runServe builds the runtime and feeds it observations from stdin, one
// JSON object per line.
func runServe(ctx context.Context, configPath, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, logger)
	}

	obs, skills := buildPipeline(cfg, logger, metrics)
	go skills.RunDecay(ctx)

	logger.Info(ctx, "vigil serving", "agent", cfg.Agent.Name, "llm", cfg.LLM.Provider, "mock", cfg.Agent.MockMode)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	encoder := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var observation models.Observation
		if err := json.Unmarshal(line, &observation); err != nil {
			logger.Warn(ctx, "skipping malformed observation", "error", err)
			continue
		}
		if observation.Timestamp.IsZero() {
			observation.Timestamp = time.Now()
		}
		if observation.Type == "" {
			observation.Type = models.ObservationMessage
		}

		outcome := obs.Handle(ctx, &observation)
		encoder.Encode(map[string]any{ //nolint:errcheck
			"observationId": observation.ID,
			"zone":          string(outcome.Zone),
			"planSource":    planSource(outcome.Plan),
			"steps":         planSteps(outcome.Plan),
			"success":       outcome.Result != nil && outcome.Result.Success,
		})
	}
	return scanner.Err()
}

// buildPipeline wires every stage. The dev harness uses an in-process
// message transport (stdout), timer-backed reminders, and a static demo
// guild.
func buildPipeline(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*observer.Observer, *skillgraph.Graph) {
	memClient := memory.NewClient(cfg.Memory.BaseURL, cfg.Memory.Timeout)

	transport := message.TransportFunc(func(_ context.Context, channelID, content string) (int, error) {
		fmt.Printf("[%s] %s\n", channelID, content)
		return 200, nil
	})

	registry := tools.NewRegistry(metrics, tools.DefaultCallTimeout)
	registry.Register(message.NewTool(transport))
	registry.Register(memoryquery.NewTool(memClient))
	registry.Register(identitytool.NewTool(memClient))
	registry.Register(reminders.NewTool(reminders.NewTimerScheduler(), transport, cfg.Location()))
	registry.Register(system.NewCapabilitiesTool(registry))

	guilds := &guild.StaticProvider{
		Guilds: map[string]*guild.Info{
			"demo": {ID: "demo", Name: "Demo Guild", MemberCount: 42, OwnerID: "owner-1"},
		},
		Stats: map[string]*guild.ModerationStats{
			"demo": {MessagesFlagged: 3, MembersWarned: 1},
		},
	}
	registry.Register(guild.NewInfoTool(guilds))
	registry.Register(guild.NewMemberCountTool(guilds))
	registry.Register(guild.NewModerationStatsTool(guilds))

	skills := skillgraph.New(memClient, cfg.Skills, logger, metrics)
	sanitizer := sanitize.New(logger, metrics)

	provider, err := llm.NewProvider(cfg.LLM, metrics)
	if err != nil {
		logger.Warn(context.Background(), "llm provider unavailable, planning will fall back", "error", err)
		provider = nil
	}

	plannerStage := planner.New(planner.Options{
		Provider:  provider,
		Registry:  registry,
		Sanitizer: sanitizer,
		AgentName: cfg.Agent.Name,
		MockMode:  cfg.Agent.MockMode,
		Logger:    logger,
		Metrics:   metrics,
	})

	obs := observer.New(observer.Options{
		Retriever: retriever.New(memClient, logger),
		Intents:   intent.NewEngine(skills, logger),
		Planner:   plannerStage,
		Sanitizer: sanitizer,
		Executor:  executor.New(registry, logger),
		Reflector: reflector.New(memClient, logger),
		Skills:    skills,
		AuditSink: audit.NewRingSink(1000),
		Logger:    logger,
		Metrics:   metrics,
	})
	return obs, skills
}

func serveMetrics(ctx context.Context, addr string, logger *observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(ctx, "metrics server failed", "error", err)
	}
}

func planSource(plan *models.Plan) string {
	if plan == nil {
		return ""
	}
	return string(plan.Source)
}

func planSteps(plan *models.Plan) int {
	if plan == nil {
		return 0
	}
	return len(plan.Steps)
}
