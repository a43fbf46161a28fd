package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"usblicense/internal/config"
	apperrors "usblicense/internal/errors"
	"usblicense/internal/infrastructure"
	"usblicense/internal/license"
	"usblicense/internal/record"
)

const (
	cmdCheck     = "check"
	cmdCreate    = "create"
	cmdDecrement = "decrement"
	cmdDump      = "dump"
)

var commands = map[string]bool{
	cmdCheck:     true,
	cmdCreate:    true,
	cmdDecrement: true,
	cmdDump:      true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit status. Result
// lines go to stdout; logs and error lines go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("usblicense", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (defaults to $"+config.ConfigFileEnv+")")
	fs.Usage = func() { usage(fs.Output()) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return apperrors.ExitOK
		}
		return apperrors.ExitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitCode(err)
	}

	logger, err := infrastructure.BuildLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitFailure
	}
	defer infrastructure.CloseLogFile()
	slog.SetDefault(logger)

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	mgr, err := newManager(logger, providers)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitFailure
	}

	inv, err := parseInvocation(fs.Args(), cfg.Device.Path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		usage(stderr)
		return apperrors.ExitCode(err)
	}

	ctx = infrastructure.ContextWithTraceID(ctx)
	logger.DebugContext(ctx, "Running command",
		slog.String("command", inv.command),
		slog.Any("devices", inv.devices),
	)

	if err := execute(ctx, mgr, inv, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitCode(err)
	}
	return apperrors.ExitOK
}

func newManager(logger *slog.Logger, providers *infrastructure.OTelProviders) (*license.Manager, error) {
	opts := []license.Option{license.WithLogger(logger)}
	if providers.Tracer != nil {
		opts = append(opts, license.WithTracer(providers.Tracer))
	}
	if providers.Meter != nil {
		metrics, err := license.InitializeLicenseMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create license metrics: %w", err)
		}
		opts = append(opts, license.WithMetrics(metrics))
	}
	return license.NewManager(opts...)
}

type invocation struct {
	command string
	devices []string
	count   int
}

// parseInvocation reads "<device> [command] [args]". When the first
// argument names a command and a default device is configured, the
// default device is used.
func parseInvocation(args []string, defaultDevice string) (invocation, error) {
	if len(args) == 0 || (commands[args[0]] && defaultDevice != "") {
		if defaultDevice == "" {
			return invocation{}, apperrors.NewInvalidArgumentError("device path required")
		}
		args = append([]string{defaultDevice}, args...)
	}

	inv := invocation{command: cmdCheck, devices: []string{args[0]}}
	rest := args[1:]
	if len(rest) > 0 {
		inv.command = rest[0]
		rest = rest[1:]
	}

	switch inv.command {
	case cmdCheck:
		inv.devices = append(inv.devices, rest...)
		return inv, nil

	case cmdCreate:
		if len(rest) == 0 {
			return invocation{}, apperrors.NewInvalidArgumentError("license count required for create command")
		}
		if len(rest) > 1 {
			return invocation{}, unexpectedArgs(inv.command, rest[1:])
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return invocation{}, apperrors.NewInvalidArgumentError("license count must be a number").
				WithContext("count", rest[0])
		}
		if n <= 0 {
			return invocation{}, apperrors.NewInvalidArgumentError("license count must be positive").
				WithContext("count", n)
		}
		inv.count = n
		return inv, nil

	case cmdDecrement, cmdDump:
		if len(rest) > 0 {
			return invocation{}, unexpectedArgs(inv.command, rest)
		}
		return inv, nil

	default:
		return invocation{}, apperrors.NewInvalidArgumentError(
			fmt.Sprintf("unknown command %q (valid commands: check, create, decrement, dump)", inv.command))
	}
}

func unexpectedArgs(command string, extra []string) error {
	return apperrors.NewInvalidArgumentError(fmt.Sprintf("unexpected arguments for %s: %q", command, extra))
}

func execute(ctx context.Context, mgr *license.Manager, inv invocation, stdout, stderr io.Writer) error {
	device := inv.devices[0]

	switch inv.command {
	case cmdCheck:
		if len(inv.devices) > 1 {
			return checkAll(ctx, mgr, inv.devices, stdout, stderr)
		}
		count, err := mgr.Inspect(ctx, device)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Licenses remaining: %d\n", count)

	case cmdCreate:
		if err := mgr.Initialize(ctx, device, inv.count); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Successfully created license block with %d licenses\n", inv.count)

	case cmdDecrement:
		count, err := mgr.Decrement(ctx, device)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Successfully decremented licenses. Remaining: %d\n", count)

	case cmdDump:
		fields, err := mgr.Dump(ctx, device)
		if err != nil {
			return err
		}
		printFields(stdout, fields)
	}
	return nil
}

func checkAll(ctx context.Context, mgr *license.Manager, devices []string, stdout, stderr io.Writer) error {
	results, err := mgr.InspectAll(ctx, devices)
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(stderr, "%s: Error: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Fprintf(stdout, "%s: Licenses remaining: %d\n", res.Path, res.Count)
	}
	if err != nil {
		return fmt.Errorf("%d of %d devices failed: %w", countFailures(results), len(results), err)
	}
	return nil
}

func countFailures(results []license.InspectResult) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

func printFields(w io.Writer, f record.Fields) {
	var countBytes [2]byte
	countBytes[0] = byte(f.Count)
	countBytes[1] = byte(f.Count >> 8)

	fmt.Fprintf(w, "Raw license count bytes: 0x%02X 0x%02X\n", countBytes[0], countBytes[1])
	fmt.Fprintf(w, "License count: %d\n", f.Count)
	fmt.Fprintf(w, "Checksum1 (0x%02X): %d\n", record.CountOffset, record.FieldSum(countBytes))
	fmt.Fprintf(w, "Checksum2 (0x%02X): %d\n", record.AuxAOffset, record.FieldSum(f.AuxA))
	fmt.Fprintf(w, "Checksum3 (0x%02X): %d\n", record.AuxBOffset, record.FieldSum(f.AuxB))
	fmt.Fprintf(w, "Total calculated: %d\n", f.ComputedChecksum)
	fmt.Fprintf(w, "Stored checksum: %d\n", f.StoredChecksum)
	fmt.Fprintf(w, "Checksum valid: %t\n", f.ComputedChecksum == f.StoredChecksum)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: usblicense [-config file] <device> [command] [args]
  device: Path to USB device (e.g., /dev/sdb); defaults to device.path from config
  command: 'check' (default), 'create', 'decrement' or 'dump'

Examples:
  usblicense /dev/sdb check           # Check existing licenses
  usblicense /dev/sdb check /dev/sdc  # Check several devices
  usblicense /dev/sdb create 5        # Create 5 licenses
  usblicense /dev/sdb decrement       # Decrement license count
  usblicense /dev/sdb dump            # Show decoded fields and checksums
`)
}
