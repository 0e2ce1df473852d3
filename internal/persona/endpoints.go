package persona

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loanintake/intake-engine/internal/model"
)

// Recognized tool server names.
const (
	ApplicationVerification = "application_verification"
	DocumentProcessing      = "document_processing"
	FinancialCalculations   = "financial_calculations"
)

const defaultToolTimeout = 30 * time.Second

// ToolEndpoint is a resolved tool-server address and call timeout.
type ToolEndpoint struct {
	Name    string
	URL     string
	Timeout time.Duration
}

// toolFileEntry is one server block of the toolservers.yaml fallback file.
type toolFileEntry struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ToolEndpoints resolves tool-server configuration, preferring environment
// variables over a YAML file loaded once at startup.
type ToolEndpoints struct {
	file map[string]toolFileEntry
}

// envVarNames maps a tool name to its URL and timeout environment variable
// names, following the fixed MCP_<NAME>_URL convention.
var envVarNames = map[string]struct{ url, timeout string }{
	ApplicationVerification: {"MCP_APPLICATION_VERIFICATION_URL", "MCP_APPLICATION_VERIFICATION_TIMEOUT_SECONDS"},
	DocumentProcessing:      {"MCP_DOCUMENT_PROCESSING_URL", "MCP_DOCUMENT_PROCESSING_TIMEOUT_SECONDS"},
	FinancialCalculations:   {"MCP_FINANCIAL_CALCULATIONS_URL", "MCP_FINANCIAL_CALCULATIONS_TIMEOUT_SECONDS"},
}

// LoadToolEndpoints reads the optional YAML fallback file at path. A missing
// file is not an error — it simply means no file-based fallback exists and
// every server must be configured by environment variable.
func LoadToolEndpoints(path string) (*ToolEndpoints, error) {
	t := &ToolEndpoints{file: make(map[string]toolFileEntry)}
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, err
	}
	var parsed map[string]toolFileEntry
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	t.file = parsed
	return t, nil
}

// Resolve returns the endpoint configuration for name, applying environment
// overrides on top of the YAML file. Missing any required URL is
// model.MissingToolConfig.
func (t *ToolEndpoints) Resolve(name string) (ToolEndpoint, error) {
	names, ok := envVarNames[name]
	if !ok {
		return ToolEndpoint{}, model.NewMissingToolConfig(name)
	}

	fileEntry := t.file[name]
	url := os.Getenv(names.url)
	if url == "" {
		url = fileEntry.URL
	}
	if url == "" {
		return ToolEndpoint{}, model.NewMissingToolConfig(name)
	}

	timeout := defaultToolTimeout
	if fileEntry.TimeoutSeconds > 0 {
		timeout = time.Duration(fileEntry.TimeoutSeconds) * time.Second
	}
	if raw := os.Getenv(names.timeout); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	return ToolEndpoint{Name: name, URL: url, Timeout: timeout}, nil
}

// ResolveAll resolves every endpoint an agent names in its tool-server list,
// stopping at the first missing configuration.
func (t *ToolEndpoints) ResolveAll(names []string) ([]ToolEndpoint, error) {
	out := make([]ToolEndpoint, 0, len(names))
	for _, n := range names {
		ep, err := t.Resolve(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, nil
}
