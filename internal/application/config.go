package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultListenAddr    = ":8000"
	DefaultRiotRegion    = "americas"
	DefaultLLMProvider   = "openai"
	DefaultLLMModel      = "gpt-4-turbo-preview"
	DefaultCacheDBPath   = "./data/matches.db"
	DefaultChromaURL     = "http://localhost:8001"
	DefaultPlaybooksDir  = "./data/playbooks"
	DefaultProviderDelay = 1200 * time.Millisecond
)

// Settings is the service configuration, populated from environment
// variables with an optional YAML overlay, then validated. Collaborators
// receive the values they need at construction; nothing reads the
// environment after startup.
type Settings struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// RiotAPIKey authenticates against the match-data provider. May be
	// empty; ingestion endpoints then fail and the health probe reports
	// the credential as unconfigured.
	RiotAPIKey string `yaml:"riot_api_key"`

	// RiotRegion selects the regional routing host for match data.
	RiotRegion string `yaml:"riot_region" validate:"required,oneof=americas europe asia"`

	// ProviderDelay is the minimum spacing between successive provider
	// requests.
	ProviderDelay time.Duration `yaml:"provider_delay" validate:"min=0"`

	// LLMProvider selects the generative model backend.
	LLMProvider string `yaml:"llm_provider" validate:"required,oneof=openai anthropic google"`

	// LLMAPIKey authenticates against the generative model provider.
	LLMAPIKey string `yaml:"llm_api_key"`

	// LLMModel is the model identifier passed to the provider.
	LLMModel string `yaml:"llm_model" validate:"required"`

	// ChromaURL is the base URL of the retrieval store.
	ChromaURL string `yaml:"chroma_url" validate:"required,url"`

	// CacheDBPath is the SQLite file backing the match cache.
	CacheDBPath string `yaml:"cache_db_path" validate:"required"`

	// PlaybooksDir holds authored strategy guides loaded at startup.
	PlaybooksDir string `yaml:"playbooks_dir"`
}

// LoadSettings builds Settings from the environment, applying defaults,
// then overlaying the YAML file named by CONFIG_FILE when set, and
// finally validating the result.
func LoadSettings() (Settings, error) {
	s := Settings{
		ListenAddr:    envOr("LISTEN_ADDR", DefaultListenAddr),
		RiotAPIKey:    os.Getenv("RIOT_API_KEY"),
		RiotRegion:    envOr("RIOT_REGION", DefaultRiotRegion),
		ProviderDelay: DefaultProviderDelay,
		LLMProvider:   envOr("LLM_PROVIDER", DefaultLLMProvider),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMModel:      envOr("LLM_MODEL", DefaultLLMModel),
		ChromaURL:     envOr("CHROMA_URL", DefaultChromaURL),
		CacheDBPath:   envOr("CACHE_DB_PATH", DefaultCacheDBPath),
		PlaybooksDir:  envOr("PLAYBOOKS_DIR", DefaultPlaybooksDir),
	}

	if delay := os.Getenv("PROVIDER_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return Settings{}, fmt.Errorf("parsing PROVIDER_DELAY: %w", err)
		}
		s.ProviderDelay = d
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Settings{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := validator.New().Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
