package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/gatehouse/internal/config"
	"github.com/mattjoyce/gatehouse/internal/state"
	"github.com/mattjoyce/gatehouse/internal/storage"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func runCaptured(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	return captureOutputWithExitCode(t, func() int { return runCLI(args) })
}

func setVersionMetadataForTest(t *testing.T, v, commit, built string) {
	t.Helper()

	origVersion, origCommit, origBuildDate := version, gitCommit, buildDate
	version, gitCommit, buildDate = v, commit, built

	t.Cleanup(func() {
		version, gitCommit, buildDate = origVersion, origCommit, origBuildDate
	})
}

// writeTestConfig writes a config.yaml with a sqlite store inside dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	body := `
service:
  log_level: error
store:
  driver: sqlite
  path: ` + filepath.Join(dir, "gatehouse.db") + `
secrets:
  clerk_webhook_secret: whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw
  stripe_webhook_secret: whsec_stripe_test_secret
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunVersionJSON(t *testing.T) {
	setVersionMetadataForTest(t, "1.2.3", "0123456789abcdef0123", "2026-01-02T03:04:05Z")

	code, stdout, stderr := runCaptured(t, "version", "--json")
	if code != 0 {
		t.Fatalf("version code = %d, stderr: %s", code, stderr)
	}

	var info versionInfo
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if info.Version != "1.2.3" || info.Commit != "0123456789ab" || info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected version info: %+v", info)
	}
}

func TestRunVersionText(t *testing.T) {
	setVersionMetadataForTest(t, "", "abc", "not-a-time")

	code, stdout, _ := runCaptured(t, "version")
	if code != 0 {
		t.Fatalf("version code = %d", code)
	}
	for _, want := range []string{"gatehouse 0.0.0-dev", "commit: abc", "built_at: unknown"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q: %s", want, stdout)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCaptured(t, "frobnicate")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "Unknown command: frobnicate") {
		t.Fatalf("stderr missing unknown command: %s", stderr)
	}
}

func TestNounHelp(t *testing.T) {
	for _, noun := range []string{"system", "config", "customer"} {
		code, stdout, _ := runCaptured(t, noun, "help")
		if code != 0 {
			t.Errorf("%s help exit = %d", noun, code)
		}
		if !strings.Contains(stdout, "Usage: gatehouse "+noun) {
			t.Errorf("%s help output: %s", noun, stdout)
		}
	}

	if code, _, _ := runCaptured(t, "config"); code != 1 {
		t.Errorf("bare noun should exit 1, got %d", code)
	}
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	code, stdout, stderr := runCaptured(t, "config", "check", "--config", path)
	if code != 0 {
		t.Fatalf("config check code = %d, stdout: %s stderr: %s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("unexpected output: %s", stdout)
	}
}

func TestConfigCheckLoadFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: mysql\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := runCaptured(t, "config", "check", "--config", path, "--json")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stdout, `"valid": false`) || !strings.Contains(stdout, "store.driver") {
		t.Fatalf("unexpected JSON report: %s", stdout)
	}
}

func TestConfigCheckStrict(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	// An unused secret is only a warning.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("  github_webhook_secret: abc\n")
	_ = f.Close()

	if code, stdout, _ := runCaptured(t, "config", "check", "--config", path); code != 0 {
		t.Fatalf("non-strict check should pass with warnings, got %d: %s", code, stdout)
	}
	if code, _, _ := runCaptured(t, "config", "check", "--config", path, "--strict"); code != 1 {
		t.Fatalf("strict check should fail on warnings, got %d", code)
	}
}

func TestConfigLockThenTamper(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	code, stdout, stderr := runCaptured(t, "config", "lock", "--config", path, "--dry-run")
	if code != 0 || !strings.Contains(stdout, "DRY-RUN") {
		t.Fatalf("dry-run lock: code=%d stdout=%s stderr=%s", code, stdout, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, config.ChecksumFile)); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write checksums, stat err = %v", err)
	}

	code, stdout, stderr = runCaptured(t, "config", "lock", "--config", path)
	if code != 0 || !strings.Contains(stdout, "WROTE") {
		t.Fatalf("lock: code=%d stdout=%s stderr=%s", code, stdout, stderr)
	}

	if code, _, _ := runCaptured(t, "config", "check", "--config", path); code != 0 {
		t.Fatalf("check after lock should pass, got %d", code)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("# edited\n")
	_ = f.Close()

	code, stdout, _ = runCaptured(t, "config", "check", "--config", path)
	if code != 1 || !strings.Contains(stdout, "hash mismatch") {
		t.Fatalf("tampered config should fail integrity: code=%d stdout=%s", code, stdout)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	code, stdout, stderr := runCaptured(t, "config", "show", "--config", path)
	if code != 0 {
		t.Fatalf("config show code = %d, stderr: %s", code, stderr)
	}
	if strings.Contains(stdout, "whsec_") {
		t.Fatalf("secret leaked in config show: %s", stdout)
	}
	if !strings.Contains(stdout, "clerk_webhook_secret: '***'") && !strings.Contains(stdout, `clerk_webhook_secret: "***"`) {
		t.Fatalf("expected redacted secret, got: %s", stdout)
	}
}

func TestCustomerLink(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	code, stdout, stderr := runCaptured(t, "customer", "link", "cus_1", "usr_1", "--config", path)
	if code != 0 {
		t.Fatalf("customer link code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Linked cus_1 -> usr_1") {
		t.Fatalf("unexpected output: %s", stdout)
	}

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(dir, "gatehouse.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var linked string
	err = state.NewSQLiteStore(db).WithinTx(context.Background(), func(tx state.Tx) error {
		var err error
		linked, err = tx.CustomerLink(context.Background(), "cus_1")
		return err
	})
	if err != nil {
		t.Fatalf("CustomerLink: %v", err)
	}
	if linked != "usr_1" {
		t.Fatalf("linked = %q, want usr_1", linked)
	}
}

func TestCustomerLinkRequiresTwoArgs(t *testing.T) {
	code, _, _ := runCaptured(t, "customer", "link", "cus_1")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestSplitFlagsAndPositionals(t *testing.T) {
	flags, pos := splitFlagsAndPositionals(
		[]string{"cus_1", "--config", "/tmp/c.yaml", "usr_1", "--verbose", "--x=y"},
		map[string]bool{"config": true},
	)
	if strings.Join(flags, " ") != "--config /tmp/c.yaml --verbose --x=y" {
		t.Fatalf("flags = %v", flags)
	}
	if strings.Join(pos, " ") != "cus_1 usr_1" {
		t.Fatalf("positionals = %v", pos)
	}
}
