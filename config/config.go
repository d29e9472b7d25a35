// Package config loads ledgertx client settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"ledgertx.io/ledgertx/compliance"
	"ledgertx.io/ledgertx/storage/casconfig"
	"ledgertx.io/ledgertx/submit"
)

// Environment variable names
const (
	EnvNodeURL     = "LEDGERTX_NODE_URL"
	EnvDebug       = "LEDGERTX_DEBUG"
	EnvKeystoreDir = "LEDGERTX_KEYSTORE_DIR"
)

type NodeConfig struct {
	// URL is the node API root, e.g. http://localhost:9984/api/v1.
	URL               string        `json:"url" yaml:"url"`
	Mode              string        `json:"mode" yaml:"mode"`
	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int           `json:"burst" yaml:"burst"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
}

type KeystoreConfig struct {
	// Dir defaults to ~/.ledgertx/keys when empty.
	Dir string `json:"dir" yaml:"dir"`
}

type SigningConfig struct {
	// Parallelism bounds concurrent input signing. Zero means GOMAXPROCS.
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

type Config struct {
	Debug      bool              `json:"debug" yaml:"debug"`
	Compliance string            `json:"compliance" yaml:"compliance"`
	Node       NodeConfig        `json:"node" yaml:"node"`
	Keystore   KeystoreConfig    `json:"keystore" yaml:"keystore"`
	Signing    SigningConfig     `json:"signing" yaml:"signing"`
	Storage    *casconfig.Config `json:"storage,omitempty" yaml:"storage,omitempty"`
}

func Default() *Config {
	return &Config{
		Compliance: compliance.Permissive.String(),
		Node: NodeConfig{
			Mode:    string(submit.ModeAsync),
			Timeout: submit.DefaultTimeout,
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from the LEDGERTX_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvNodeURL); ok && v != "" {
		c.Node.URL = v
	}
	if v, ok := lookup(EnvKeystoreDir); ok && v != "" {
		c.Keystore.Dir = v
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		c.Debug = debug
	}
	return nil
}

func (c *Config) Validate() error {
	var allErrors field.ErrorList

	if _, err := compliance.ParseMode(c.Compliance); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("compliance"), c.Compliance, []string{"permissive", "strict"}))
	}

	node := field.NewPath("node")
	if c.Node.URL != "" {
		u, err := url.Parse(c.Node.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			allErrors = append(allErrors, field.Invalid(node.Child("url"), c.Node.URL, "must be an http(s) URL"))
		}
	}
	if _, err := submit.ParseMode(c.Node.Mode); err != nil {
		allErrors = append(allErrors, field.NotSupported(node.Child("mode"), c.Node.Mode, []string{"async", "sync", "commit"}))
	}
	if c.Node.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(node.Child("requestsPerSecond"), c.Node.RequestsPerSecond, "must not be negative"))
	}
	if c.Node.Burst < 0 {
		allErrors = append(allErrors, field.Invalid(node.Child("burst"), c.Node.Burst, "must not be negative"))
	}
	if c.Node.Timeout <= 0 {
		allErrors = append(allErrors, field.Invalid(node.Child("timeout"), c.Node.Timeout.String(), "must be positive"))
	}

	if c.Signing.Parallelism < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("signing", "parallelism"), c.Signing.Parallelism, "must not be negative"))
	}

	if c.Storage != nil {
		if err := c.Storage.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("storage"), "", err.Error()))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// ComplianceMode returns the parsed compliance setting.
func (c *Config) ComplianceMode() compliance.ComplianceMode {
	m, _ := compliance.ParseMode(c.Compliance)
	return m
}

// RequireNode reports an error when no node URL is configured.
func (c *Config) RequireNode() error {
	if c.Node.URL == "" {
		return field.Required(field.NewPath("node", "url"), fmt.Sprintf("set it in the config file or %s", EnvNodeURL))
	}
	return nil
}

// SubmitClientConfig maps the node settings onto a submit.ClientConfig.
func (c *Config) SubmitClientConfig() *submit.ClientConfig {
	return &submit.ClientConfig{
		BaseURL:           c.Node.URL,
		RequestsPerSecond: c.Node.RequestsPerSecond,
		Burst:             c.Node.Burst,
		HTTPClient:        &http.Client{Timeout: c.Node.Timeout},
	}
}
