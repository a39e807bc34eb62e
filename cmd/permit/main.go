// Command permit is the licensing client CLI. It activates a license
// for this machine, reports session status and downloads files the
// license grants access to.
//
// Usage:
//
//	permit fingerprint
//	permit activate <license-key>
//	permit status
//	permit files [-download <id> -out <path>]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"permitcli/internal/config"
	"permitcli/internal/infrastructure"
	"permitcli/internal/license"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (optional)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	client, err := license.NewClient(cfg)
	if err != nil {
		logger.Error("failed to build client", "error", err)
		os.Exit(1)
	}

	var runErr error
	switch cmd := flag.Arg(0); cmd {
	case "fingerprint":
		runErr = runFingerprint(ctx, client)
	case "activate":
		runErr = runActivate(ctx, client, flag.Args()[1:])
	case "status":
		runErr = runStatus(ctx, client)
	case "files":
		runErr = runFiles(ctx, client, flag.Args()[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		logger.Error("command failed", "command", flag.Arg(0), "error", runErr)
		fmt.Fprintln(os.Stderr, "error:", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `permit - licensing client

Commands:
  fingerprint               print this machine's device identifier
  activate <license-key>    activate a license for this machine
  status                    print activation and session status
  files                     list remote files
  files -download <id>      download a file (use -out to set the path)

Flags:
`)
	flag.PrintDefaults()
}

func runFingerprint(ctx context.Context, client *license.Client) error {
	fmt.Println(client.Fingerprint(ctx))
	return nil
}

func runActivate(ctx context.Context, client *license.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: permit activate <license-key>")
	}
	if err := client.Activate(ctx, args[0]); err != nil {
		return err
	}

	status := client.Status(ctx)
	fmt.Printf("activated, token valid until %s\n", status.TokenExpiry.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func runStatus(ctx context.Context, client *license.Client) error {
	out, err := json.MarshalIndent(client.Status(ctx), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runFiles(ctx context.Context, client *license.Client, args []string) error {
	fs := flag.NewFlagSet("files", flag.ExitOnError)
	download := fs.String("download", "", "file id to download")
	out := fs.String("out", "", "output path for the downloaded file (defaults to the file id)")
	key := fs.String("key", "", "license key to activate with before listing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *key != "" {
		if err := client.Activate(ctx, *key); err != nil {
			return err
		}
	}

	catalog := client.Files()
	if catalog == nil {
		return fmt.Errorf("not activated, run: permit activate <license-key> or pass -key")
	}

	if *download != "" {
		path := *out
		if path == "" {
			path = *download
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()

		n, err := catalog.Download(ctx, *download, f)
		if err != nil {
			return err
		}
		fmt.Printf("downloaded %s (%d bytes) to %s\n", *download, n, path)
		return nil
	}

	list, err := catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no files available")
		return nil
	}
	for _, file := range list {
		fmt.Printf("%-24s %10d  %s\n", file.ID, file.Size, file.Name)
	}
	return nil
}
