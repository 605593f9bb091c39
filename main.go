package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/config"
	"github.com/define42/pterodash/internal/logger"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pterodash",
		Short:        "Web front-end and command line for a Pterodactyl panel",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "Path to the YAML config file (defaults to $"+config.EnvConfigPath+")")
	root.PersistentFlags().Bool("json", false, "Output in JSON format")
	root.PersistentFlags().String("user", "", "Operator whose settings are used when LDAP login is enabled")
	root.PersistentFlags().Bool("verbose", false, "Log panel requests")

	root.AddCommand(
		newServeCommand(),
		newSettingsCommand(),
		newServersCommand(),
		newNodesCommand(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web front-end",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.New(&cfg.Log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}
	defer backend.Close()

	a := newApp(ctx, cfg, log, backend)
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.listen(server)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *app) listen(server *http.Server) error {
	tlsCfg := a.cfg.Server.TLS
	switch {
	case tlsCfg.ACME.Enabled:
		conf, err := certmagicTLSConfig(tlsCfg.ACME)
		if err != nil {
			return fmt.Errorf("certmagic: %w", err)
		}
		server.TLSConfig = conf
		a.log.Info("listening", zap.String("addr", server.Addr), zap.Strings("domains", tlsCfg.ACME.Domains))
		return server.ListenAndServeTLS("", "")
	case tlsCfg.Enabled:
		certPath, keyPath := tlsCfg.CertFile, tlsCfg.KeyFile
		if certPath == "" {
			certPath = defaultCertPath
		}
		if keyPath == "" {
			keyPath = defaultKeyPath
		}
		if err := ensureTLSCert(certPath, keyPath, a.log); err != nil {
			return fmt.Errorf("unable to ensure TLS certificate: %w", err)
		}
		a.log.Info("listening", zap.String("addr", server.Addr), zap.String("cert", certPath))
		return server.ListenAndServeTLS(certPath, keyPath)
	default:
		a.log.Info("listening", zap.String("addr", server.Addr))
		return server.ListenAndServe()
	}
}
