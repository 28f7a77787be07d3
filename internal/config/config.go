// Package config loads nopea's runtime configuration from the
// environment, following the teacher's getenv/Validate pattern
// (telemetry/flow-ingest/cmd/server/main.go's loadConfig).
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every environment-tunable setting nopea's orchestrator,
// HTTP API, and RPC surface need at startup. Field names follow spec
// §6's enumerated option names (api_port, k8s_conn, k8s_module,
// cdevents_endpoint, cluster_enabled) translated to Go convention; see
// DESIGN.md for why k8s_conn/k8s_module surface as constructor
// parameters on Orchestrator rather than as string-typed env vars here.
type Config struct {
	Verbose bool

	APIPort  int
	RPCAddr  string

	MetricsAddr string

	KubeconfigPath string
	KubeContext    string

	// ClusterEnabled toggles registry/supervisor replication. nopea runs
	// single-node only; this flag is accepted and logged but has no
	// effect, matching spec §9's treatment of distribution as optional
	// and out of scope for the core implementation.
	ClusterEnabled bool

	CDEventsEndpoint string
	CDEventsPoolSize int

	DeployTimeoutMS int

	DataDir string
}

const (
	defaultAPIPort         = 4000
	defaultRPCAddr         = ":7777"
	defaultMetricsAddr     = ":9090"
	defaultCDEventsPool    = 4
	defaultDeployTimeoutMS = 120000
	defaultDataDir         = "."
)

// Load reads Config from the environment, applying defaults for every
// optional setting.
func Load() (Config, error) {
	cfg := Config{
		Verbose:          getenvBool("NOPEA_VERBOSE", false),
		RPCAddr:          getenv("NOPEA_RPC_ADDR", defaultRPCAddr),
		MetricsAddr:      getenv("NOPEA_METRICS_ADDR", defaultMetricsAddr),
		KubeconfigPath:   getenv("NOPEA_KUBECONFIG", ""),
		KubeContext:      getenv("NOPEA_KUBE_CONTEXT", ""),
		ClusterEnabled:   getenvBool("NOPEA_CLUSTER_ENABLED", false),
		CDEventsEndpoint: getenv("NOPEA_CDEVENTS_ENDPOINT", ""),
		DataDir:          getenv("NOPEA_DATA_DIR", defaultDataDir),
	}

	var err error
	cfg.APIPort, err = getenvInt("NOPEA_API_PORT", defaultAPIPort)
	if err != nil {
		return Config{}, err
	}
	cfg.CDEventsPoolSize, err = getenvInt("NOPEA_CDEVENTS_POOL_SIZE", defaultCDEventsPool)
	if err != nil {
		return Config{}, err
	}
	cfg.DeployTimeoutMS, err = getenvInt("NOPEA_DEPLOY_TIMEOUT_MS", defaultDeployTimeoutMS)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HTTPAddr formats APIPort as a net/http listen address.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.APIPort)
}

// Validate checks invariants that defaulting alone cannot satisfy.
func (c *Config) Validate() error {
	if c.APIPort <= 0 {
		return fmt.Errorf("api port must be > 0, got %d", c.APIPort)
	}
	if c.CDEventsPoolSize <= 0 {
		return fmt.Errorf("cdevents pool size must be > 0, got %d", c.CDEventsPoolSize)
	}
	if c.DeployTimeoutMS <= 0 {
		return fmt.Errorf("deploy timeout must be > 0, got %d", c.DeployTimeoutMS)
	}
	return nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return i, nil
}
