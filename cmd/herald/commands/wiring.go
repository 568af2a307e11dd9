package commands

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heraldai/herald/agent"
	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/chime/dispatch"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/notify"
	"github.com/heraldai/herald/task"
)

// stores bundles the per-subsystem stores every daemon mode opens.
type stores struct {
	jobs   *schedule.Store
	runs   *schedule.RunStore
	notifs *notify.Store
	tasks  *task.Store
}

func newStores(database *sql.DB) *stores {
	return &stores{
		jobs:   schedule.NewStore(database),
		runs:   schedule.NewRunStore(database),
		notifs: notify.NewStore(database),
		tasks:  task.NewStore(database),
	}
}

// buildNotifyRegistry registers every sender the config enables. The
// in-app sender is passed in so the server mode can hand over its
// event-announcing wrapper instead of the bare store sender.
func buildNotifyRegistry(cfg *config.Config, inapp notify.Sender) *notify.Registry {
	notifyCfg := cfg.GetNotifyConfig()
	notifyLog := logger.AddNotifySymbol(logger.Logger)
	registry := notify.NewRegistry(notifyCfg.MaxPerMinute, notifyLog)
	registry.Register(inapp)

	if notifyCfg.WebhookURL != "" {
		registry.Register(notify.NewWebhookSender(notifyCfg.WebhookURL, notifyCfg.WebhookTimeout(), notifyLog))
	}
	if notifyCfg.Command != "" {
		registry.Register(notify.NewCommandSender(notifyCfg.Command, notifyLog))
	}

	return registry
}

// buildAgentRunner picks the runner implementation. An unset base URL
// means no runner service is deployed; agent tasks then land on the
// nop runner, which accepts and logs them so scheduled dispatches
// still succeed in development.
func buildAgentRunner(cfg *config.Config) agent.Runner {
	agentLog := logger.AddAgentSymbol(logger.Logger)
	if cfg.Runner.BaseURL == "" {
		return agent.NewNopRunner(agentLog)
	}
	runnerCfg := cfg.GetRunnerConfig()
	return agent.NewHTTPRunner(runnerCfg.BaseURL, runnerCfg.Token, runnerCfg.Timeout(), agentLog)
}

// buildDispatcher wires the full dispatch stack: notification senders,
// agent runner, action handlers, metrics, and the polling dispatcher
// itself. The sink may be nil for headless modes; a nil registerer
// registers metrics with the Prometheus default.
func buildDispatcher(cfg *config.Config, st *stores, inapp notify.Sender, sink chime.EventSink, reg prometheus.Registerer) *dispatch.Dispatcher {
	notifyCfg := cfg.GetNotifyConfig()
	registry := buildNotifyRegistry(cfg, inapp)

	handlers := dispatch.NewHandlerRegistry()
	handlers.Register(dispatch.NewNotifyHandler(registry, notifyCfg.DefaultChannel, logger.Logger))
	handlers.Register(dispatch.NewAgentTaskHandler(buildAgentRunner(cfg), logger.Logger))

	metrics := dispatch.InitMetrics(reg)

	return dispatch.NewDispatcher(st.jobs, st.runs, handlers, sink, metrics, cfg.GetChimeConfig(), logger.Logger)
}
