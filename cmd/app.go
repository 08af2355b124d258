package cmd

import (
	"context"
	"time"

	"github.com/JA3G3R/reviewcrew/config"
	"github.com/JA3G3R/reviewcrew/crew"
	"github.com/JA3G3R/reviewcrew/eventlog"
	"github.com/JA3G3R/reviewcrew/llm"
	"github.com/JA3G3R/reviewcrew/logging"
	"github.com/JA3G3R/reviewcrew/research"
	"github.com/JA3G3R/reviewcrew/reviewer"
	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/JA3G3R/reviewcrew/store"
	"go.uber.org/zap"
)

// app holds what every command shares: config, logger, history store and
// the optional event log.
type app struct {
	cfg    config.Config
	log    *zap.SugaredLogger
	store  *store.SQLiteStore
	events *eventlog.EventLog
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	st, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	a.store = st

	if cfg.Telemetry {
		ev, err := eventlog.New(cfg.EventLogPath())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.events = ev
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.events.Close(); err != nil {
		a.log.Debugw("close event log", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Debugw("close store", "error", err)
	}
	_ = a.log.Sync()
}

func (a *app) sink() crew.EventSink {
	if a.events == nil {
		return nil
	}
	return a.events
}

func (a *app) generator(ctx context.Context, offline bool) (llm.Generator, error) {
	return llm.New(ctx, llm.Options{
		Model:   a.cfg.Model,
		APIKey:  a.cfg.GeminiAPIKey,
		Command: a.cfg.LLMCommand,
		Offline: offline,
		Log:     a.log,
	})
}

func (a *app) externalTool() *scanners.ExternalTool {
	return scanners.NewExternalTool(30*time.Second, a.log)
}

func (a *app) pipeline(gen llm.Generator) *reviewer.Pipeline {
	return &reviewer.Pipeline{
		Scanner:    reviewer.NewScanner(a.cfg.MaxContentBytes, a.cfg.MaxLineLength, a.cfg.Workers, a.externalTool(), a.log),
		Generator:  gen,
		Store:      a.store,
		Events:     a.sink(),
		OutputDir:  a.cfg.OutputDir,
		AgentsFile: a.cfg.AgentsFile,
		TasksFile:  a.cfg.TasksFile,
		Log:        a.log,
	}
}

func (a *app) researchRunner(gen llm.Generator) *research.Runner {
	return &research.Runner{
		Generator: gen,
		Store:     a.store,
		Events:    a.sink(),
		OutputDir: a.cfg.OutputDir,
		Log:       a.log,
	}
}
