package mgmt

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"crypto/tls"
	fmt "fmt"

	"github.com/DCSO/hostnamer/util"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// EndpointConfig describes where a management endpoint listens and how it is
// reached.
type EndpointConfig struct {
	ListenerAddress string
	ServerAddress   string
	Network         string
	TLSConfig       *tls.Config
	TLSDisable      bool
	Disable         bool
}

// GRPCEndpointConfig adds gRPC server and dial options to an EndpointConfig.
type GRPCEndpointConfig struct {
	EndpointConfig
	ServerOptions []grpc.ServerOption
	DialOptions   []grpc.DialOption
}

// EndpointConfigFromViper creates a new GRPCEndpointConfig from the relevant
// Viper configs. TLS is only available for TCP endpoints.
func EndpointConfigFromViper() (GRPCEndpointConfig, error) {
	var mgmtCfg GRPCEndpointConfig
	host := viper.GetString("mgmt.host")
	network := viper.GetString("mgmt.network")
	socket := viper.GetString("mgmt.socket")

	if host == "" {
		return GRPCEndpointConfig{
			EndpointConfig: EndpointConfig{
				Network:         "unix",
				ListenerAddress: socket,
				TLSDisable:      true,
				Disable:         socket == "",
			},
			DialOptions: []grpc.DialOption{
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			},
		}, nil
	}

	if network == "" {
		network = "tcp"
	}
	mgmtCfg = GRPCEndpointConfig{
		EndpointConfig: EndpointConfig{
			Network:         network,
			ListenerAddress: host,
			ServerAddress:   host,
			TLSDisable:      viper.GetBool("mgmt.tls.disable"),
		},
	}
	if mgmtCfg.TLSDisable {
		mgmtCfg.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		}
		return mgmtCfg, nil
	}

	tlsCfg, err := util.MakeTLSConfig(
		viper.GetString("mgmt.tls.cert"),
		viper.GetString("mgmt.tls.key"),
		viper.GetStringSlice("mgmt.tls.rootcas"),
		viper.GetBool("mgmt.tls.skipverify"))
	if err != nil {
		return mgmtCfg, fmt.Errorf("mgmt TLS setup: %w", err)
	}
	mgmtCfg.TLSConfig = tlsCfg
	mgmtCfg.ServerOptions = []grpc.ServerOption{
		grpc.Creds(credentials.NewTLS(tlsCfg)),
	}
	mgmtCfg.DialOptions = []grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg)),
	}
	return mgmtCfg, nil
}

// DialString returns a string from the given config that is suitable to be
// passed into a grpc.Dial() function.
func (e GRPCEndpointConfig) DialString() string {
	if e.EndpointConfig.Network == "unix" {
		return fmt.Sprintf("%s:%s", e.EndpointConfig.Network, e.EndpointConfig.ListenerAddress)
	}
	return fmt.Sprintf("dns:///%s", e.EndpointConfig.ListenerAddress)
}

// Dial connects to the management endpoint described by the config.
func (e GRPCEndpointConfig) Dial() (MgmtServiceClient, *grpc.ClientConn, error) {
	conn, err := grpc.Dial(e.DialString(), e.DialOptions...)
	if err != nil {
		return nil, nil, err
	}
	return NewMgmtServiceClient(conn), conn, nil
}
