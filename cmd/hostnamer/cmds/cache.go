package cmd

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/DCSO/hostnamer/mgmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/emptypb"
)

func mgmtClient() (mgmt.MgmtServiceClient, func()) {
	cfg, err := mgmt.EndpointConfigFromViper()
	if err != nil {
		log.Fatal(err)
	}
	client, conn, err := cfg.Dial()
	if err != nil {
		log.Fatal(err)
	}
	return client, func() { conn.Close() }
}

func cacheStatus(cmd *cobra.Command, args []string) {
	client, done := mgmtClient()
	defer done()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := client.Status(ctx, &emptypb.Empty{})
	if err != nil {
		log.Fatal(err)
	}
	m := res.AsMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %v\n", k, m[k])
	}
}

func cacheCancel(cmd *cobra.Command, args []string) {
	client, done := mgmtClient()
	defer done()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.CancelPending(ctx, &emptypb.Empty{}); err != nil {
		log.Fatal(err)
	}
	log.Info("pending requests cancelled")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "inspect the state of a running HOSTNAMER service",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "show cache and queue statistics",
	Run:   cacheStatus,
}

var cacheCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "drop all addresses waiting for resolution",
	Run:   cacheCancel,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheCancelCmd)
}
