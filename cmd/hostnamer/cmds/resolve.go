package cmd

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"context"
	"fmt"
	"time"

	"github.com/DCSO/hostnamer/mgmt"
	"github.com/DCSO/hostnamer/types"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const peekInterval = 200 * time.Millisecond

func waitForName(ctx context.Context, client mgmt.MgmtServiceClient, addr string) (types.Host, error) {
	ticker := time.NewTicker(peekInterval)
	defer ticker.Stop()
	for {
		res, err := client.Peek(ctx, wrapperspb.String(addr))
		if err == nil {
			return mgmt.HostFromStruct(res), nil
		}
		if status.Code(err) != codes.NotFound {
			return types.Host{}, err
		}
		select {
		case <-ctx.Done():
			return types.MakeHost(addr, "", false), nil
		case <-ticker.C:
		}
	}
}

func resolve(cmd *cobra.Command, args []string) {
	wait, err := cmd.Flags().GetDuration("wait")
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := mgmt.EndpointConfigFromViper()
	if err != nil {
		log.Fatal(err)
	}
	client, conn, err := cfg.Dial()
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	for _, addr := range args {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second+wait)
		res, err := client.Resolve(ctx, wrapperspb.String(addr))
		if err != nil {
			cancel()
			log.WithFields(log.Fields{
				"address": addr,
			}).Error(err)
			continue
		}
		h := mgmt.HostFromStruct(res)
		if !h.Resolved && wait > 0 {
			wctx, wcancel := context.WithTimeout(ctx, wait)
			h, err = waitForName(wctx, client, addr)
			wcancel()
			if err != nil {
				cancel()
				log.WithFields(log.Fields{
					"address": addr,
				}).Error(err)
				continue
			}
		}
		cancel()
		fmt.Println(h.String())
	}
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <address> [<address>...]",
	Short: "query a running HOSTNAMER service for host names",
	Long: `The 'resolve' command asks a running HOSTNAMER instance for the names
of the given addresses via the management interface. Unknown addresses are
queued for resolution by the service; use --wait to poll for the result.`,
	Args: cobra.MinimumNArgs(1),
	Run:  resolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().DurationP("wait", "w", 0, "time to wait for unresolved addresses")
}
