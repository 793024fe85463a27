package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cropCircle/internal/content"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Pin an image to IPFS and print its content ref",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
	cmd.Flags().String("pinata-jwt", "", "Pinata JWT")
	cmd.Flags().String("pinata-endpoint", "", "Pinata pinFileToIPFS endpoint")
	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if _, err := content.Validate(data); err != nil {
		return err
	}

	uploader, err := content.NewPinata(cfg.PinataEndpoint, cfg.PinataJWT, logger)
	if err != nil {
		return err
	}
	ref, err := uploader.Upload(context.Background(), filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"ref": ref, "url": content.GatewayURL(cfg.IPFSGateway, ref)})
}
