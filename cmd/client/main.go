// Package main is a participant client for the relay. It keeps a connection
// open, re-joins its room after every reconnect, resyncs tracked orders from
// the relay's snapshot route and raises local alerts for incoming events.
//
//	relay-client listen --role customer --room 123
//	relay-client listen --role vendor --room v1
//	relay-client token --role driver --room d1
//
// RELAY_URL overrides the endpoint; otherwise the platform default is used.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"relay/internal/auth"
	"relay/internal/client"
	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/notify"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "relay-client",
		Short:        "Participant client for the order relay",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		buildListenCmd(),
		buildTokenCmd(),
	)
	return rootCmd
}

func buildListenCmd() *cobra.Command {
	var (
		roleName string
		room     string
		token    string
		port     string
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Join a room and raise alerts for its events",
		Example: `  # Follow order 123 as its customer
  relay-client listen --role customer --room 123

  # Watch every order as an admin
  relay-client listen --role admin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := kernel.ParseRole(roleName)
			if err != nil {
				return err
			}
			join, err := joinFor(role, room, token)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runListen(ctx, client.Endpoint(runtime.GOOS, os.Getenv, port), role, room, join)
		},
	}
	cmd.Flags().StringVar(&roleName, "role", "customer", "Participant role (customer, vendor, driver, admin)")
	cmd.Flags().StringVar(&room, "room", "", "Order, vendor or driver identifier to join")
	cmd.Flags().StringVar(&token, "token", "", "Join capability issued by the REST layer")
	cmd.Flags().StringVar(&port, "port", client.DefaultPort, "Relay port when RELAY_URL is not set")
	return cmd
}

func buildTokenCmd() *cobra.Command {
	var (
		roleName string
		room     string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a join capability signed with JOIN_TOKEN_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := kernel.ParseRole(roleName)
			if err != nil {
				return err
			}
			subject, roomKey := room, auth.AnyRoom
			if role == kernel.RoleAdmin {
				if subject == "" {
					subject = "admin"
				}
			} else if roomKey, err = roomFor(role, room); err != nil {
				return err
			}

			capabilities := auth.NewCapabilityService(os.Getenv("JOIN_TOKEN_SECRET"), ttl)
			signed, err := capabilities.Issue(subject, role, roomKey)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}
	cmd.Flags().StringVar(&roleName, "role", "customer", "Participant role (customer, vendor, driver, admin)")
	cmd.Flags().StringVar(&room, "room", "", "Order, vendor or driver identifier the token grants")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

// joinFor builds the join frame a participant of role sends for id.
func joinFor(role kernel.Role, id, token string) (event.Inbound, error) {
	var (
		typ     event.Type
		payload any
	)
	switch role {
	case kernel.RoleCustomer:
		typ, payload = event.OrderTrack, event.TrackOrderPayload{OrderID: id}
	case kernel.RoleVendor:
		typ, payload = event.VendorJoin, event.VendorJoinPayload{VendorID: id}
	case kernel.RoleDriver:
		typ, payload = event.DriverJoin, event.DriverJoinPayload{DriverID: id}
	case kernel.RoleAdmin:
		return event.Inbound{Type: event.AdminJoin, Token: token}, nil
	default:
		return event.Inbound{}, fmt.Errorf("role %s cannot join rooms", role)
	}
	if id == "" {
		return event.Inbound{}, errors.New("--room is required for this role")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return event.Inbound{}, err
	}
	return event.Inbound{Type: typ, Data: data, Token: token}, nil
}

func roomFor(role kernel.Role, id string) (string, error) {
	entityID, err := kernel.NewEntityID("room", id)
	if err != nil {
		return "", err
	}
	switch role {
	case kernel.RoleVendor:
		return kernel.VendorRoom(entityID).String(), nil
	case kernel.RoleDriver:
		return kernel.DriverRoom(entityID).String(), nil
	default:
		return kernel.OrderRoom(entityID).String(), nil
	}
}

func runListen(ctx context.Context, endpoint string, role kernel.Role, room string, join event.Inbound) error {
	logger := slog.Default()
	alerts := notify.NewDispatcher(
		notify.ConsolePlayer{Out: os.Stdout, Hold: 2 * time.Second},
		notify.PatternVibrator{},
		logger,
	)
	defer alerts.Close()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resync := func(ctx context.Context) {
		if role != kernel.RoleCustomer {
			return
		}
		snapshot, err := client.FetchOrder(ctx, httpClient, endpoint, room)
		if err != nil {
			logger.Warn("resync failed", "order", room, "error", err)
			return
		}
		logger.Info("resynced", "order", snapshot.ID, "status", snapshot.Status)
	}

	handle := func(f client.Frame) {
		logger.Info("event", "event", string(f.Type), "data", string(f.Data))
		alerts.OnEvent(f.Type)
	}

	c := client.New(client.Config{URL: endpoint, Role: role, Joins: []event.Inbound{join}}, handle, resync, logger)
	logger.Info("connecting", "url", endpoint, "role", role.String())

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
