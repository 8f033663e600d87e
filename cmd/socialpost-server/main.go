package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/arth-1/socialpost/internal/bootstrap"
	domainauth "github.com/arth-1/socialpost/internal/domain/auth"
	platformconfig "github.com/arth-1/socialpost/internal/platform/config"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("[%s] [INFO] [引导] 开始启动 socialpost-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "socialpost-server failed: %v\n", err)
		os.Exit(1)
	}
}

// issueToken prints a bearer token signed with server.token.
func issueToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "ui", "token subject")
	configPath := fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := platformconfig.NewLoader()
	if *configPath != "" {
		loader = loader.WithPaths(*configPath)
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}
	cfg := result.Config

	tokens, err := domainauth.NewAuthToken(cfg.Server.Token, cfg.Server.Auth.Issuer)
	if err != nil {
		return err
	}
	token, expires, err := tokens.WithTTL(cfg.Server.Auth.Expiry).GenerateToken(*subject)
	if err != nil {
		return err
	}
	fmt.Println(token)
	_, _ = fmt.Fprintf(os.Stderr, "expires at %s\n", expires.Format(time.RFC3339))
	return nil
}
