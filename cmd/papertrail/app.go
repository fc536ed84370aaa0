package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ghost-ng/Papertrail/internal/action"
	"github.com/ghost-ng/Papertrail/internal/config"
	"github.com/ghost-ng/Papertrail/internal/database"
	"github.com/ghost-ng/Papertrail/internal/engine"
	"github.com/ghost-ng/Papertrail/internal/events"
	"github.com/ghost-ng/Papertrail/internal/identity"
	"github.com/ghost-ng/Papertrail/internal/pki"
	"github.com/ghost-ng/Papertrail/internal/workflow"
)

// app wires the engine and its collaborators from configuration. Each CLI
// invocation builds one and closes it on exit.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB
	bus    *events.DefaultEventBus
	engine *engine.Engine
}

func newApp(ctx context.Context) (*app, error) {
	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = filepath.Join(config.DefaultConfig().Core.HomeDir, "config.yaml")
	}
	cfg, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	roots, err := pki.LoadTrustRoots(cfg.PKI.TrustRoots)
	if err != nil {
		db.Close()
		return nil, err
	}
	verifierOpts := []pki.VerifierOption{
		pki.WithCacheTTL(cfg.PKI.CacheTTL),
		pki.WithLogger(logger),
	}
	if cfg.PKI.OCSPURL != "" || cfg.PKI.KeyServerURL != "" {
		verifierOpts = append(verifierOpts,
			pki.WithRevocationChecker(pki.NewOCSPChecker(cfg.PKI.OCSPURL,
				pki.WithKeyServer(cfg.PKI.KeyServerURL))))
	}
	verifier := pki.NewVerifier(roots, verifierOpts...)

	identities, err := loadIdentities(identitiesPath(cfg))
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := events.NewEventBus()
	documents := pki.NewFileStore(filepath.Join(cfg.Core.DataDir, "documents"))

	eng := engine.New(db, documents, verifier, identities,
		engine.WithLogger(logger),
		engine.WithEventBus(bus),
		engine.WithDeadline(cfg.Engine.Deadline),
		engine.WithSweepConcurrency(cfg.Engine.SweepConcurrency),
	)

	sinks := []action.DeliverySink{
		action.NewNotifySink(bus),
		action.NewWebhookSink([]byte(cfg.Webhook.SigningKey),
			action.WithHTTPClient(&http.Client{Timeout: cfg.Webhook.Timeout})),
		action.NewReportSink(eng.Recorder(), cfg.Report.OutputDir),
	}
	dispatcher := action.NewDispatcher(bus, sinks,
		action.WithRetryPolicy(action.RetryPolicy{
			MaxRetries:      cfg.Retry.MaxRetries,
			BackoffStrategy: action.BackoffStrategy(cfg.Retry.BackoffStrategy),
			InitialDelay:    cfg.Retry.InitialDelay,
			MaxDelay:        cfg.Retry.MaxDelay,
			Multiplier:      cfg.Retry.Multiplier,
		}),
		action.WithActiveCheck(eng.InstanceActive),
		action.WithExhaustedCallback(eng.RecordDeliveryFailure),
		action.WithDispatchLogger(logger),
	)
	engine.WithDispatcher(dispatcher)(eng)

	return &app{cfg: cfg, logger: logger, db: db, bus: bus, engine: eng}, nil
}

func (a *app) close() {
	a.bus.Close()
	a.db.Close()
}

// registerDefinition loads a definition YAML and registers it with the
// engine, returning the published definition.
func (a *app) registerDefinition(ctx context.Context, path string) (*workflow.Definition, error) {
	def, err := workflow.LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	if err := a.engine.RegisterDefinition(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func identitiesPath(cfg *config.Config) string {
	if identitiesFile != "" {
		return identitiesFile
	}
	return filepath.Join(cfg.Core.HomeDir, "identities.yaml")
}

// identitiesFileFormat is the YAML shape of the identities file.
type identitiesFileFormat struct {
	Identities []identity.Identity `yaml:"identities"`
}

// loadIdentities reads the static identities file. A missing file yields
// an empty provider; the engine then rejects unknown actors.
func loadIdentities(path string) (*identity.StaticProvider, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return identity.NewStaticProvider(), nil
	}
	if err != nil {
		return nil, err
	}
	var file identitiesFileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return identity.NewStaticProvider(file.Identities...), nil
}
