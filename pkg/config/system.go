package config

// SchedulerConfig holds resolved scheduler authentication configuration.
// The autoposter trigger endpoint is invoked by an external cron caller, not a
// logged-in user, so it authenticates via a shared header rather than a bearer token.
type SchedulerConfig struct {
	KeyEnv string // env var name containing the scheduler key (default: "SCHEDULER_KEY")
}
