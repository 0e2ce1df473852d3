package persona

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestToolEndpointsEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolservers.yaml")
	yamlContent := "application_verification:\n  url: http://file.example/av\n  timeout_seconds: 15\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	te, err := LoadToolEndpoints(path)
	if err != nil {
		t.Fatalf("LoadToolEndpoints: %v", err)
	}

	ep, err := te.Resolve(ApplicationVerification)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ep.URL != "http://file.example/av" || ep.Timeout != 15*time.Second {
		t.Fatalf("expected file values, got %+v", ep)
	}

	t.Setenv("MCP_APPLICATION_VERIFICATION_URL", "http://env.example/av")
	t.Setenv("MCP_APPLICATION_VERIFICATION_TIMEOUT_SECONDS", "5")
	ep, err = te.Resolve(ApplicationVerification)
	if err != nil {
		t.Fatalf("Resolve with env: %v", err)
	}
	if ep.URL != "http://env.example/av" || ep.Timeout != 5*time.Second {
		t.Fatalf("expected env override, got %+v", ep)
	}
}

func TestToolEndpointsMissingIsFatal(t *testing.T) {
	te, err := LoadToolEndpoints("")
	if err != nil {
		t.Fatalf("LoadToolEndpoints: %v", err)
	}
	if _, err := te.Resolve(DocumentProcessing); err == nil {
		t.Fatal("expected MissingToolConfig for unconfigured server")
	}
}

func TestToolEndpointsDefaultTimeout(t *testing.T) {
	te, err := LoadToolEndpoints("")
	if err != nil {
		t.Fatalf("LoadToolEndpoints: %v", err)
	}
	t.Setenv("MCP_FINANCIAL_CALCULATIONS_URL", "http://example/fc")
	ep, err := te.Resolve(FinancialCalculations)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ep.Timeout != defaultToolTimeout {
		t.Fatalf("expected default timeout, got %v", ep.Timeout)
	}
}
