package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hvac-backoffice/internal/auth"
	"hvac-backoffice/internal/availability"
	"hvac-backoffice/internal/config"
	"hvac-backoffice/internal/reporting"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTemplateValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.yaml")
	body := `windows:
  - name: "7-10"
    label: "early, 7 to 10"
    capacity: 2
  - name: "1-4"
    label: "afternoon, 1 to 4"
    capacity: 5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := run(t, "template", "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "7-10") || !strings.Contains(out, "2 windows, 7 appointments per day") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTemplateValidate_RejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.yaml")
	body := "windows:\n  - name: a\n    capacity: 1\n  - name: a\n    capacity: 1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := run(t, "template", "validate", path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate window error, got %v", err)
	}
}

func TestTemplateDefault_RoundTripsThroughLoader(t *testing.T) {
	out, err := run(t, "template", "default", "--capacity", "4")
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	var f struct {
		Windows []availability.WindowTemplate `yaml:"windows"`
	}
	if err := yaml.Unmarshal([]byte(out), &f); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if err := availability.ValidateTemplate(f.Windows); err != nil {
		t.Fatalf("printed template invalid: %v", err)
	}
	if len(f.Windows) != 3 || f.Windows[0].Capacity != 4 {
		t.Fatalf("unexpected windows: %+v", f.Windows)
	}
}

func TestAvailabilityShow_RequiresCompany(t *testing.T) {
	companyID = ""
	if _, err := run(t, "availability", "show", "today"); err == nil || !strings.Contains(err.Error(), "--company") {
		t.Fatalf("expected company error, got %v", err)
	}
}

func TestPrintWindows(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	err := printWindows(cmd, "2024-03-01", []availability.WindowAvailability{
		{Name: "8-11", Label: "morning, 8 to 11", Capacity: 3, Booked: 3, Available: 0},
	})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out.String(), "2024-03-01") || !strings.Contains(out.String(), "morning, 8 to 11") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestPrintHoldbackSummary(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	err := printHoldbackSummary(cmd, reporting.HoldbackSummary{Currency: "USD", Payments: 2, WithheldMinor: 12345, ReleasedMinor: 5})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out.String(), "123.45 USD") || !strings.Contains(out.String(), "0.05 USD") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestIssueToken(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
	now := time.Unix(1700000000, 0).UTC()
	id := auth.Identity{UserID: "ops-1", CompanyID: "co_1", Role: "support"}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	if err := issueToken(cmd, cfg, now, id); err != nil {
		t.Fatalf("issue: %v", err)
	}

	var pair auth.TokenPair
	if err := json.Unmarshal(out.Bytes(), &pair); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	m, err := auth.NewManager(cfg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	claims, err := m.Verify(pair.AccessToken, auth.TokenAccess, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Identity() != id {
		t.Fatalf("unexpected identity %+v", claims.Identity())
	}

	if err := issueToken(cmd, cfg, now, auth.Identity{UserID: "u", CompanyID: "co_1", Role: "admin"}); err == nil {
		t.Fatalf("expected unknown role error")
	}
}
