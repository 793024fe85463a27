package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropCircle/internal/api"
	"cropCircle/internal/content"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the GraphQL API, uploads and notification stream",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().String("pinata-jwt", "", "Pinata JWT for uploads")
	cmd.Flags().String("pinata-endpoint", "", "Pinata pinFileToIPFS endpoint")
	cmd.Flags().Bool("require-signature", false, "require an EIP-191 wallet signature on every identified request")
	cmd.Flags().Duration("signature-max-age", 5*time.Minute, "maximum age of a wallet signature")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	var uploader content.Uploader
	if cfg.PinataJWT != "" {
		p, err := content.NewPinata(cfg.PinataEndpoint, cfg.PinataJWT, logger)
		if err != nil {
			return err
		}
		uploader = p
	} else {
		logger.Warn("pinata-jwt not set, uploads disabled")
	}

	srv, err := api.NewServer(a.svc, api.Options{
		Uploader: uploader,
		Hub:      a.hub,
		Gateway:  cfg.IPFSGateway,
		Auth: api.AuthConfig{
			RequireSignature: cfg.RequireSignature,
			MaxAge:           cfg.SignatureMaxAge,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Listen) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("shutdown failed", zap.Error(err))
	}
	return <-errCh
}
