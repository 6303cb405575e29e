// ABOUTME: Entry point for logon-gateway
// ABOUTME: Trusts cookies from an external login system and proxies authenticated users upstream

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/logon-gateway/internal/config"
	"github.com/2389/logon-gateway/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  _                                      _
 | | ___   __ _  ___  _ __         __ _ | |_ ___
 | |/ _ \ / _' |/ _ \| '_ \ _____ / _' || __/ _ \
 | | (_) | (_| | (_) | | | |_____| (_| || ||  __/
 |_|\___/ \__, |\___/|_| |_|      \__, | \__\___|
          |___/                   |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: logon-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                       Start the gateway server")
		fmt.Println("  init                        Create a new config file interactively")
		fmt.Println("  check-config                Validate config and credential files")
		fmt.Println("  verify --cookie NAME=VALUE  Check a cookie against the credential files")
		fmt.Println("  token --user NAME [--ttl D] Mint an identity token for the bearer module")
		fmt.Println("  users                       List provisioned users")
		fmt.Println("  audit [--action A] [--since D] [--limit N]  Show the audit log")
		fmt.Println("  health                      Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "check-config":
		err = runCheckConfig(os.Stdout, config.DefaultPath())
	case "verify":
		err = runVerify(os.Stdout, config.DefaultPath(), os.Args[2:])
	case "token":
		err = runToken(os.Stdout, config.DefaultPath(), os.Args[2:])
	case "users":
		err = runUsers(ctx, os.Stdout, config.DefaultPath())
	case "audit":
		err = runAudit(ctx, os.Stdout, config.DefaultPath(), os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Upstream:  %s\n", cfg.Upstream.URL)
	green.Print("    ▶ ")
	fmt.Printf("Logon:     ")
	cyan.Print(cfg.Logon.Module)
	if cfg.Logon.Module == config.ModuleMultisite && cfg.Logon.Multisite.Signature == "md5" {
		yellow.Print(" [legacy md5]")
	}
	fmt.Println()
	green.Print("    ▶ ")
	fmt.Printf("Sessions:  %s\n", cfg.Session.Backend)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting logon-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"module", cfg.Logon.Module,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}
