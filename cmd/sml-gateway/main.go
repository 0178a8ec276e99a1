// ABOUTME: Entry point for sml-gateway
// ABOUTME: Hand-rolled subcommand switch over serve, token, create-admin, health, and operations

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/sml-gateway/internal/api"
	"github.com/2389/sml-gateway/internal/config"
)

// Version is set at build time.
var version = "dev"

const banner = `
               _                       _
  ___ _ __ ___ | |       __ _  __ _| |_ _____      ____ _ _   _
 / __| '_ ' _ \| |_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
 \__ \ | | | | | |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 |___/_| |_| |_|_|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                        |___/                             |___/
`

func usage() {
	fmt.Println("Usage: sml-gateway <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                                   Start the gateway server")
	fmt.Println("  token --sub ID [--role R]... [--ttl D]  Mint a bearer token")
	fmt.Println("  create-admin --email E --name N         Create an admin account (password from SML_ADMIN_PASSWORD)")
	fmt.Println("  health                                  Check gateway readiness")
	fmt.Println("  operations [--token T]                  List operations visible to the caller")
	fmt.Println()
	fmt.Println("Every command accepts --config PATH (default $SML_CONFIG, then ./config.yaml).")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, args)
	case "token":
		err = runToken(args)
	case "create-admin":
		err = runCreateAdmin(ctx, args)
	case "health":
		err = runHealth(ctx, args)
	case "operations":
		err = runOperations(ctx, args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves and loads the config named by --config or the defaults.
func loadConfig(flags flagSet) (string, *config.Config, error) {
	path, err := config.Resolve(flags.get("config"))
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}
	return path, cfg, nil
}

func runServe(ctx context.Context, args []string) error {
	flags, err := parseFlags(args, "config")
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	configPath, cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	if cfg.Server.GRPCAddr != "" {
		fmt.Printf("gRPC:      %s\n", cfg.Server.GRPCAddr)
	} else {
		fmt.Print("gRPC:      ")
		gray.Println("disabled")
	}
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	if len(cfg.Workflows) > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Workflows: %d\n", len(cfg.Workflows))
	}
	if cfg.IsProduction() {
		green.Print("    ▶ ")
		yellow.Println("production mode")
	}
	fmt.Println()

	logger.Info("starting sml-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
	)

	srv, err := api.New(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}
