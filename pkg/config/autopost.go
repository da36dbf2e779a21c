package config

import (
	"os"
	"strconv"
	"time"
)

// AutoPostConfig holds the scheduled autoposter's feature-flag and timing
// settings. Read directly from the environment rather than orchestrator.yaml
// so ops can flip them without a config redeploy.
type AutoPostConfig struct {
	// Enabled is the global kill switch; false short-circuits every run
	// regardless of any individual agent's auto_post_enabled flag.
	Enabled bool

	// InterAgentDelay is how long the walker pauses between agents within a
	// single run, to spread out LLM/image-generation load.
	InterAgentDelay time.Duration

	// ImageProviderURL is the external image-generation endpoint; pkg/autopost
	// POSTs a prompt and expects {"url": "..."} back. Image generation itself
	// is out of scope — this is only the contract's address.
	ImageProviderURL string

	// ImageProviderAPIKeyEnv names the env var holding the provider's API
	// key, sent as a header on the generation call.
	ImageProviderAPIKeyEnv string
}

// DefaultAutoPostDelay is used when AUTO_POST_DELAY_SECONDS is unset or
// unparseable.
const DefaultAutoPostDelay = 5 * time.Second

func resolveAutoPostConfig() *AutoPostConfig {
	cfg := &AutoPostConfig{
		Enabled:                os.Getenv("AUTO_POST_ENABLED") == "true",
		InterAgentDelay:        DefaultAutoPostDelay,
		ImageProviderURL:       os.Getenv("IMAGE_PROVIDER_URL"),
		ImageProviderAPIKeyEnv: "IMAGE_PROVIDER_API_KEY",
	}

	if v := os.Getenv("AUTO_POST_DELAY_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			cfg.InterAgentDelay = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}
