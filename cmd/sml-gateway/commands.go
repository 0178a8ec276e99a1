// ABOUTME: Offline and client subcommands: token minting, admin bootstrap, and probes
// ABOUTME: Client commands talk to the HTTP address from the loaded config

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/2389/sml-gateway/internal/auth"
	"github.com/2389/sml-gateway/internal/sml"
	"github.com/2389/sml-gateway/internal/store"
	"github.com/2389/sml-gateway/internal/users"
)

// EnvAdminPassword supplies the create-admin password.
const EnvAdminPassword = "SML_ADMIN_PASSWORD"

// EnvToken supplies the bearer token for client commands.
const EnvToken = "SML_TOKEN"

func runToken(args []string) error {
	flags, err := parseFlags(args, "config", "sub", "role", "ttl", "email")
	if err != nil {
		return err
	}
	sub := flags.get("sub")
	if sub == "" {
		return errors.New("--sub flag is required")
	}

	_, cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ttl := cfg.Auth.TokenTTL
	if raw := flags.get("ttl"); raw != "" {
		if ttl, err = time.ParseDuration(raw); err != nil {
			return fmt.Errorf("parsing --ttl %q: %w", raw, err)
		}
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(&auth.Identity{
		ID:    sub,
		Email: flags.get("email"),
		Roles: flags.all("role"),
	}, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runCreateAdmin(ctx context.Context, args []string) error {
	flags, err := parseFlags(args, "config", "email", "name")
	if err != nil {
		return err
	}
	email, name := flags.get("email"), flags.get("name")
	if email == "" || name == "" {
		return errors.New("--email and --name flags are required")
	}
	password := os.Getenv(EnvAdminPassword)
	if password == "" {
		return fmt.Errorf("%s must be set", EnvAdminPassword)
	}

	_, cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	svc := users.NewService(users.Config{Store: st})
	u, err := svc.Create(ctx, users.CreateUserRequest{
		Email:    email,
		Name:     name,
		Password: password,
		Roles:    []string{"admin"},
	})
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	green.Printf("  ✓ Created admin: %s\n", u.Email)
	fmt.Println()
	cyan.Println("  Admin Account")
	cyan.Println("  -------------")
	fmt.Printf("  ID:    %s\n", u.ID)
	fmt.Printf("  Name:  %s\n", u.Name)
	fmt.Printf("  Email: %s\n", u.Email)
	fmt.Printf("  Roles: %v\n", u.Roles)
	fmt.Println()
	return nil
}

func runHealth(ctx context.Context, args []string) error {
	flags, err := parseFlags(args, "config")
	if err != nil {
		return err
	}
	_, cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	status, body, err := get(ctx, cfg.Server.HTTPAddr, "/health/ready", "")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("not ready: status %d: %s", status, body)
	}

	fmt.Println(string(body))
	return nil
}

// metaEnvelope is the success envelope around a registry snapshot.
type metaEnvelope struct {
	Data sml.Meta `json:"data"`
}

func runOperations(ctx context.Context, args []string) error {
	flags, err := parseFlags(args, "config", "token")
	if err != nil {
		return err
	}
	_, cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	token := flags.get("token")
	if token == "" {
		token = os.Getenv(EnvToken)
	}

	status, body, err := get(ctx, cfg.Server.HTTPAddr, "/api/sml/meta", token)
	if err != nil {
		return fmt.Errorf("fetching meta: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("fetching meta: status %d: %s", status, body)
	}

	var env metaEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding meta: %w", err)
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, op := range operationsOf(env.Data.Tree) {
		cyan.Print(op.Path)
		if vis := env.Data.Visibility[op.Path]; vis != "" {
			gray.Printf(" [%s]", vis)
		}
		if op.Description != "" {
			fmt.Printf("  %s", op.Description)
		}
		fmt.Println()
	}
	return nil
}

// operationsOf flattens the tree into operations sorted by path.
func operationsOf(tree map[string]*sml.Node) []*sml.OperationMeta {
	var out []*sml.OperationMeta
	var walk func(nodes map[string]*sml.Node)
	walk = func(nodes map[string]*sml.Node) {
		for _, n := range nodes {
			if n.Operation != nil {
				out = append(out, n.Operation)
			}
			walk(n.Children)
		}
	}
	walk(tree)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func get(ctx context.Context, addr, path, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}
