package cmd

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"fmt"
	"os"
	"strings"

	"github.com/DCSO/hostnamer/util"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hostnamer",
	Short: "asynchronous reverse name resolution service",
	Long: `HOSTNAMER turns IP addresses into host names in the background.
Addresses are read from a socket, Redis or stdin, answered from an in-memory
cache and resolved by a single worker, with resolutions being logged,
forwarded, shipped via AMQP or archived in a database.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hostnamer.yaml)")

	// Management endpoint options, shared by server and client commands
	rootCmd.PersistentFlags().StringP("mgmt-socket", "", "/tmp/hostnamer-mgmt.sock", "Socket path for gRPC management interface")
	viper.BindPFlag("mgmt.socket", rootCmd.PersistentFlags().Lookup("mgmt-socket"))
	rootCmd.PersistentFlags().StringP("mgmt-network", "", "tcp", "Network (tcp, tcp4, tcp6) for gRPC management interface, used with --mgmt-host")
	viper.BindPFlag("mgmt.network", rootCmd.PersistentFlags().Lookup("mgmt-network"))
	rootCmd.PersistentFlags().StringP("mgmt-host", "", "", "host:port for gRPC management interface, overrides --mgmt-socket")
	viper.BindPFlag("mgmt.host", rootCmd.PersistentFlags().Lookup("mgmt-host"))
	rootCmd.PersistentFlags().BoolP("mgmt-tls-disable", "", false, "do not use TLS on TCP management interface")
	viper.BindPFlag("mgmt.tls.disable", rootCmd.PersistentFlags().Lookup("mgmt-tls-disable"))
	rootCmd.PersistentFlags().StringP("mgmt-tls-cert", "", "", "certificate file for TCP management interface")
	viper.BindPFlag("mgmt.tls.cert", rootCmd.PersistentFlags().Lookup("mgmt-tls-cert"))
	rootCmd.PersistentFlags().StringP("mgmt-tls-key", "", "", "private key file for TCP management interface")
	viper.BindPFlag("mgmt.tls.key", rootCmd.PersistentFlags().Lookup("mgmt-tls-key"))
	rootCmd.PersistentFlags().StringSliceP("mgmt-tls-rootcas", "", []string{}, "root CA files for TCP management interface")
	viper.BindPFlag("mgmt.tls.rootcas", rootCmd.PersistentFlags().Lookup("mgmt-tls-rootcas"))
	rootCmd.PersistentFlags().BoolP("mgmt-tls-skipverify", "", false, "skip certificate verification on TCP management interface")
	viper.BindPFlag("mgmt.tls.skipverify", rootCmd.PersistentFlags().Lookup("mgmt-tls-skipverify"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			log.Fatal(err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName("." + util.ToolName)
	}

	viper.SetEnvPrefix(util.ToolNameUpper)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file: %s", viper.ConfigFileUsed())
	}
}
