// Command plang compiles, runs and arbitrates policy bundles.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/plang/pkg/arbiter"
	"github.com/Mindburn-Labs/plang/pkg/audit"
	"github.com/Mindburn-Labs/plang/pkg/config"
	"github.com/Mindburn-Labs/plang/pkg/dag"
	"github.com/Mindburn-Labs/plang/pkg/executor"
	"github.com/Mindburn-Labs/plang/pkg/loader"
	"github.com/Mindburn-Labs/plang/pkg/store"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run dispatches subcommands; factored out of main for tests.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}
	switch args[1] {
	case "compile":
		return runCompileCmd(args[2:], stdout, stderr)
	case "run":
		return runRunCmd(args[2:], stdout, stderr)
	case "arbitrate":
		return runArbitrateCmd(args[2:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "plang engine %s\n", loader.EngineVersion)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: plang <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  compile    load a bundle and print its execution plan")
	fmt.Fprintln(w, "  run        execute a bundle against a decision context")
	fmt.Fprintln(w, "  arbitrate  resolve limit/action conflicts between policies")
	fmt.Fprintln(w, "  version    print the engine version")
}

func setupLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func runCompileCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bundleDir := fs.String("bundle", "", "bundle directory (default from PLANG_BUNDLE_DIR)")
	visualize := fs.Bool("visualize", false, "print the dependency graph instead of the plan")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	dir := *bundleDir
	if dir == "" {
		dir = cfg.BundleDir
	}

	bundle, err := loader.NewLoader().Load(dir)
	if err != nil {
		fmt.Fprintf(stderr, "compile: %v\n", err)
		return 1
	}

	d := dag.Build(bundle.Module)
	if *visualize {
		fmt.Fprint(stdout, d.Visualize())
		return 0
	}
	plan, err := d.Sort()
	if err != nil {
		fmt.Fprintf(stderr, "compile: %v\n", err)
		return 1
	}
	out := struct {
		Bundle      string    `json:"bundle"`
		Version     string    `json:"version"`
		ContentHash string    `json:"content_hash"`
		Plan        *dag.Plan `json:"plan"`
	}{bundle.Manifest.Name, bundle.Manifest.Version, bundle.ContentHash, plan}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
	return 0
}

func runRunCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bundleDir := fs.String("bundle", "", "bundle directory (default from PLANG_BUNDLE_DIR)")
	varsJSON := fs.String("vars", "{}", "decision context variables as JSON, or @file")
	maxSteps := fs.Int("max-steps", 0, "step budget (default from PLANG_MAX_STEPS)")
	auditPath := fs.String("audit", "", "append the audit record to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	logger := setupLogger(cfg.LogLevel, stderr)
	dir := *bundleDir
	if dir == "" {
		dir = cfg.BundleDir
	}
	if *maxSteps <= 0 {
		*maxSteps = cfg.MaxSteps
	}

	vars, err := readVars(*varsJSON)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 2
	}

	bundle, err := loader.NewLoader().Load(dir)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}

	opts := []executor.Option{executor.WithLogger(logger)}
	if cfg.LookupRate > 0 {
		opts = append(opts, executor.WithLookupRate(rate.Limit(cfg.LookupRate), cfg.LookupBurst))
	}
	exec, err := executor.New(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}

	ctx := context.Background()
	compiled := exec.Compile(bundle.Module)
	tr, execErr := exec.Execute(ctx, compiled, executor.NewContext(vars, *maxSteps))
	if tr == nil {
		fmt.Fprintf(stderr, "run: %v\n", execErr)
		return 1
	}

	if *auditPath != "" {
		f, err := os.OpenFile(*auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "run: open audit sink: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		if err := audit.NewLoggerWithWriter(f).Record(ctx, audit.TraceEvent(cfg.TenantID, tr)); err != nil {
			fmt.Fprintf(stderr, "run: record audit event: %v\n", err)
			return 1
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(tr)

	switch {
	case tr.Terminal == executor.TerminalBudgetExceeded:
		return 3
	case tr.Terminal == executor.TerminalDenied:
		return 2
	case execErr != nil:
		fmt.Fprintf(stderr, "run: %v\n", execErr)
		return 1
	}
	return 0
}

func runArbitrateCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arbitrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	tenant := fs.String("tenant", "", "tenant id (default from PLANG_TENANT_ID)")
	inputPath := fs.String("input", "", "arbitration input JSON file")
	policies := fs.String("policies", "", "comma-separated policy ids (default: all contributors)")
	keyFile := fs.String("sign-key", "", "hex-encoded 32-byte master seed; sign the result when set")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" {
		fmt.Fprintln(stderr, "arbitrate: -input is required")
		return 2
	}

	cfg := config.Load()
	logger := setupLogger(cfg.LogLevel, stderr)
	if *tenant == "" {
		*tenant = cfg.TenantID
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "arbitrate: %v\n", err)
		return 1
	}
	input, err := arbiter.ParseInput(raw)
	if err != nil {
		fmt.Fprintf(stderr, "arbitrate: %v\n", err)
		return 1
	}

	var ids []string
	if *policies != "" {
		for _, id := range strings.Split(*policies, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	} else {
		for _, c := range input.Contributions {
			ids = append(ids, c.PolicyID)
		}
	}

	ctx := context.Background()
	precedence, cleanup, err := openPrecedenceStore(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "arbitrate: %v\n", err)
		return 1
	}
	defer cleanup()

	res, err := arbiter.New(precedence, logger).Arbitrate(ctx, *tenant, ids, input)
	if err != nil {
		fmt.Fprintf(stderr, "arbitrate: %v\n", err)
		return 1
	}

	out := struct {
		*arbiter.Result
		Token string `json:"token,omitempty"`
	}{Result: res}

	if *keyFile != "" {
		token, err := signResult(*keyFile, *tenant, res)
		if err != nil {
			fmt.Fprintf(stderr, "arbitrate: %v\n", err)
			return 1
		}
		out.Token = token
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
	return 0
}

// openPrecedenceStore builds the configured backend, optionally wrapped
// in the Redis read-through cache.
func openPrecedenceStore(cfg *config.Config) (store.PrecedenceStore, func(), error) {
	cleanup := func() {}
	var backend store.PrecedenceStore
	switch cfg.StoreDriver {
	case "sqlite":
		s, err := store.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, cleanup, err
		}
		backend, cleanup = s, func() { _ = s.Close() }
	case "postgres":
		s, err := store.OpenPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, err
		}
		backend, cleanup = s, func() { _ = s.Close() }
	default:
		backend = store.NewMemoryStore()
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		backend = store.NewCachedStore(backend, client, cfg.RedisCacheTTL)
	}
	return backend, cleanup, nil
}

func signResult(keyFile, tenant string, res *arbiter.Result) (string, error) {
	hexSeed, err := os.ReadFile(keyFile)
	if err != nil {
		return "", fmt.Errorf("read sign key: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(hexSeed)))
	if err != nil {
		return "", fmt.Errorf("decode sign key: %w", err)
	}
	provider, err := arbiter.NewMemoryKeyProviderFromSeed(seed)
	if err != nil {
		return "", err
	}
	ring, err := arbiter.NewKeyring(provider).DeriveForTenant(tenant)
	if err != nil {
		return "", err
	}
	return ring.SignResult(res)
}

// readVars parses inline JSON or, with a leading @, a JSON file.
func readVars(spec string) (map[string]any, error) {
	raw := []byte(spec)
	if strings.HasPrefix(spec, "@") {
		var err error
		if raw, err = os.ReadFile(spec[1:]); err != nil {
			return nil, fmt.Errorf("read vars file: %w", err)
		}
	}
	var vars map[string]any
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("parse vars: %w", err)
	}
	return vars, nil
}
