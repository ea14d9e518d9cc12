package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr             string `envconfig:"LISTEN_ADDR" default:":8080"`
	DatabasePath           string `envconfig:"DATABASE_PATH" default:"/app/data/ai-gateway.db"`
	UpstreamURL            string `envconfig:"UPSTREAM_URL" default:"https://api.deepseek.com/v1"`
	UpstreamAPIKey         string `envconfig:"UPSTREAM_API_KEY" default:""`
	RequestTimeoutSec      int    `envconfig:"REQUEST_TIMEOUT_SEC" default:"120"`
	DefaultPlan            string `envconfig:"DEFAULT_PLAN" default:"enterprise"`
	ReasoningFallbackLimit int    `envconfig:"REASONING_FALLBACK_LIMIT" default:"500"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("AI_GATEWAY", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
