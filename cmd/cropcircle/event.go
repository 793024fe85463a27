package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropCircle/internal/issuer"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage contest events",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE:  runEventCreate,
	}
	create.Flags().Int64("duration", 0, "event duration in seconds")
	create.Flags().String("uri", "", "event description URI")
	create.Flags().String("as", "", "caller address (defaults to the signer or owner)")

	end := &cobra.Command{
		Use:   "end <event-id>",
		Short: "End an event and issue the winner's token",
		Args:  cobra.ExactArgs(1),
		RunE:  runEventEnd,
	}

	show := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show an event and its memes",
		Args:  cobra.ExactArgs(1),
		RunE:  runEventShow,
	}
	show.Flags().Bool("by-upvotes", true, "order memes by upvotes instead of submission time")

	list := &cobra.Command{
		Use:   "list",
		Short: "List events, newest first",
		RunE:  runEventList,
	}

	cmd.AddCommand(create, end, show, list)
	return cmd
}

// withApp builds the app for one CLI invocation.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
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
	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runEventCreate(cmd *cobra.Command, _ []string) error {
	duration, _ := cmd.Flags().GetInt64("duration")
	uri, _ := cmd.Flags().GetString("uri")
	as, _ := cmd.Flags().GetString("as")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		caller := as
		if caller == "" {
			caller = a.defaultCaller()
		}
		event, err := a.svc.CreateEvent(ctx, caller, duration, uri)
		if err != nil {
			return err
		}
		a.logger.Info("event created", zap.String("event_id", event.ID))
		return printJSON(event)
	})
}

func runEventEnd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		event, err := a.svc.EndEvent(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(event)
	})
}

func runEventShow(cmd *cobra.Command, args []string) error {
	byUpvotes, _ := cmd.Flags().GetBool("by-upvotes")
	return withApp(cmd, func(ctx context.Context, a *app) error {
		event, err := a.svc.Event(ctx, args[0])
		if err != nil {
			return err
		}
		memes, err := a.svc.Memes(ctx, event.ID, byUpvotes)
		if err != nil {
			return fmt.Errorf("list memes: %w", err)
		}
		out := map[string]interface{}{"event": event, "memes": memes}
		if event.TokenRef != "" && a.chain != nil && common.IsHexAddress(event.TokenRef) {
			holders := make([]string, 0, len(memes))
			for _, m := range memes {
				holders = append(holders, m.Creator)
			}
			info, err := issuer.FetchTokenInfo(ctx, a.chain, common.HexToAddress(event.TokenRef), holders, nil, a.logger)
			if err != nil {
				a.logger.Warn("token info unavailable", zap.String("token", event.TokenRef), zap.Error(err))
			} else {
				out["token"] = info
			}
		}
		return printJSON(out)
	})
}

func runEventList(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		events, err := a.svc.Events(ctx)
		if err != nil {
			return err
		}
		return printJSON(events)
	})
}
