package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/gatehouse/internal/config"
	"github.com/mattjoyce/gatehouse/internal/doctor"
	"github.com/mattjoyce/gatehouse/internal/secrets"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage(os.Stderr)
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)
	case "customer":
		return runCustomerNoun(args)

	case "start":
		return runStart(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: gatehouse version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("gatehouse %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = readBuildSetting("vcs.revision")
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = readBuildSetting("vcs.time")
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return strings.TrimSpace(setting.Value)
		}
	}
	return ""
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `gatehouse - Webhook ingestion and verification gateway

Usage:
  gatehouse <noun> <action> [flags]

System Commands:
  system start              Serve the webhook endpoints in the foreground

Config Commands:
  config check              Validate configuration, secrets and integrity
  config lock               Authorize current state (write BLAKE3 checksums)
  config show               Print the resolved configuration (secrets redacted)

Customer Commands:
  customer link <cus> <uid> Record that a payment customer belongs to a user

General:
  version                   Show version information
  help                      Show this help message

Use 'gatehouse <noun> help' for action-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runCustomerNoun(args []string) int {
	if len(args) < 1 {
		printCustomerNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printCustomerNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "link":
		if hasHelpFlag(actionArgs) {
			printCustomerLinkHelp()
			return 0
		}
		return runCustomerLink(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown customer action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

// splitFlagsAndPositionals lets flags follow positional arguments, which the
// flag package alone does not allow.
func splitFlagsAndPositionals(args []string, takesValue map[string]bool) ([]string, []string) {
	var flags, positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}
		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if takesValue[name] && i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return flags, positionals
}

func printSystemNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: gatehouse system <action>")
	fmt.Fprintln(w, "Actions: start")
}

func printConfigNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: gatehouse config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock, show")
}

func printCustomerNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: gatehouse customer <action> [flags]")
	fmt.Fprintln(w, "Actions: link")
}

func printSystemStartHelp() {
	fmt.Println("Usage: gatehouse system start [--config PATH]")
	fmt.Println("Serve the webhook endpoints in the foreground until SIGINT or SIGTERM.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: gatehouse config check [--config PATH] [--json] [--strict]")
	fmt.Println("Validate configuration syntax, secrets, replay windows and integrity.")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  Valid (warnings allowed unless --strict)")
	fmt.Println("  1  One or more errors")
}

func printConfigLockHelp() {
	fmt.Println("Usage: gatehouse config lock [--config PATH] [--dry-run]")
	fmt.Println("Authorize the current configuration by writing its BLAKE3 hash to .checksums.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: gatehouse config show [--config PATH]")
	fmt.Println("Print the resolved configuration with secret values redacted.")
}

func printCustomerLinkHelp() {
	fmt.Println("Usage: gatehouse customer link <stripe_customer_id> <external_user_id> [--config PATH]")
	fmt.Println("Record the owner of a payment customer so its subscription events resolve.")
}

// --- CONFIG ACTIONS ---

func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.Discover(explicit)
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output the report as JSON")
	strict := fs.Bool("strict", false, "Treat warnings as errors")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		result := &doctor.Result{Valid: false, Errors: []doctor.Issue{{Category: "load", Message: err.Error()}}}
		printCheckResult(result, *jsonOut)
		return 1
	}

	result := doctor.New(cfg, secrets.NewStatic(cfg.Secrets)).Validate()
	printCheckResult(result, *jsonOut)

	if !result.Valid || (*strict && len(result.Warnings) > 0) {
		return 1
	}
	return 0
}

func printCheckResult(result *doctor.Result, jsonOut bool) {
	if jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return
		}
		fmt.Println(out)
		return
	}
	fmt.Print(doctor.FormatHuman(result))
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dryRun := fs.Bool("dry-run", false, "Compute the hash without writing .checksums")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := config.Discover(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}

	report, err := config.Lock(path, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lock failed: %v\n", err)
		return 1
	}

	fmt.Printf("HASH %s: %s\n", report.ConfigPath, report.Hash)
	if report.Written {
		fmt.Printf("WROTE %s\n", report.ChecksumPath)
	} else {
		fmt.Printf("DRY-RUN %s: not written\n", report.ChecksumPath)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		return 1
	}
	fmt.Printf("# %s\n", cfg.SourcePath)
	fmt.Print(string(data))
	return 0
}
