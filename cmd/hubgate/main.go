// Command hubgate runs the gateway server and manages its user table.
//
// Subcommands:
//
//	serve    start the gateway (default config file: config.json)
//	adduser  add or replace a user; prompts for the password without echo
//	deluser  remove a user
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hubgate/hubgate/internal/auth"
	"github.com/hubgate/hubgate/internal/config"
	"github.com/hubgate/hubgate/internal/logging"
	"github.com/hubgate/hubgate/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "adduser":
		err = runAddUser(os.Args[2:])
	case "deluser":
		err = runDelUser(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hubgate <serve|adduser|deluser> [flags]")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to configuration file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log := logging.New(os.Stdout, slog.LevelInfo)

	// Generate and persist a signing secret on first start. Rotating it later
	// invalidates all outstanding sessions.
	if cfg.SessionSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		cfg.SessionSecret = hex.EncodeToString(secret)
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("persisting session secret: %w", err)
		}
		log.Info("generated new session secret")
	}

	creds := auth.NewCredentialStore(cfg.Users)
	issuer := auth.NewIssuer([]byte(cfg.SessionSecret), cfg.SessionTTL)
	hub := server.NewHub(log)
	gateway := server.NewGateway(cfg, hub, issuer, creds, log)
	proxy := server.NewProxy(cfg, issuer, log)

	router := server.NewRouter(cfg, log, gateway, proxy)
	httpServer := server.CreateServer(cfg.Addr, router)
	keyFile, certFile := server.FindTLSCertificates(cfg.CertDir)

	log.Info("starting hubgate",
		"addr", cfg.Addr,
		"users", len(cfg.Users),
		"proxies", len(cfg.Proxies),
		"tls", keyFile != "")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, keyFile, certFile, log)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout, log); err != nil {
		log.Warn("server shutdown", "error", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Warn("hub shutdown", "error", err)
	}
	return nil
}

func runAddUser(args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to configuration file")
	password := fs.String("password", "", "password (prompted without echo when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("adduser requires exactly one username argument")
	}
	username := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	pw := *password
	if pw == "" {
		pw, err = promptPassword()
		if err != nil {
			return err
		}
	}

	creds := auth.NewCredentialStore(cfg.Users)
	if err := creds.Add(username, pw); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("user %q added\n", username)
	return nil
}

func runDelUser(args []string) error {
	fs := flag.NewFlagSet("deluser", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("deluser requires exactly one username argument")
	}
	username := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	creds := auth.NewCredentialStore(cfg.Users)
	if !creds.Has(username) {
		fmt.Printf("user %q does not exist\n", username)
		return nil
	}
	creds.Remove(username)
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("user %q removed\n", username)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(pw) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(pw), nil
}
