package mgmt

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	context "context"
	"errors"
	"net"
	"os"
	"path/filepath"

	"github.com/DCSO/hostnamer/types"
	"github.com/DCSO/hostnamer/util"

	"github.com/sirupsen/logrus"
	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	emptypb "google.golang.org/protobuf/types/known/emptypb"
	structpb "google.golang.org/protobuf/types/known/structpb"
	wrapperspb "google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	permSocketPath = 0750
)

type mgmtServer struct {
	UnimplementedMgmtServiceServer
	ctx     context.Context
	Logger  *logrus.Entry
	grpcSrv *grpc.Server
	cfg     GRPCEndpointConfig
	state   *State
}

// NewMgmtServer returns a new management server instance registered with gRPC.
func NewMgmtServer(parent context.Context, cfg GRPCEndpointConfig, state *State) (Server, error) {
	if state == nil || state.Resolver == nil {
		return nil, errors.New("management server needs a resolver")
	}
	srv := &mgmtServer{
		ctx:   parent,
		cfg:   cfg,
		state: state,
		Logger: logrus.StandardLogger().WithFields(logrus.Fields{
			"domain": "mgmt",
		}),
	}
	srv.grpcSrv = grpc.NewServer(cfg.ServerOptions...)
	RegisterMgmtServiceServer(srv.grpcSrv, srv)

	return srv, nil
}

// Stop stops the mgmtServer.
func (srv *mgmtServer) Stop() {
	srv.grpcSrv.GracefulStop()
}

// ListenAndServe starts the mgmtServer, accepting connections on the given
// communication channel.
func (srv *mgmtServer) ListenAndServe() (err error) {
	var ln net.Listener

	if srv.cfg.Network == "unix" {
		if err = os.MkdirAll(filepath.Dir(srv.cfg.ListenerAddress), permSocketPath); err != nil {
			srv.Logger.WithError(err).WithFields(logrus.Fields{
				"path":      filepath.Dir(srv.cfg.ListenerAddress),
				"perm_path": permSocketPath,
			}).Error("unable to create path")
			return
		}
	}

	if ln, err = net.Listen(srv.cfg.Network, srv.cfg.ListenerAddress); err != nil {
		srv.Logger.WithError(err).WithFields(logrus.Fields{
			"network": srv.cfg.Network,
			"address": srv.cfg.ListenerAddress,
		}).Error("setting up mgmt endpoint")
		return
	}
	defer ln.Close()

	if dsln, ok := ln.(*net.UnixListener); ok {
		dsln.SetUnlinkOnClose(true)
	}

	srv.Logger.WithFields(logrus.Fields{
		"network": srv.cfg.Network,
		"address": srv.cfg.ListenerAddress,
	}).Info("gRPC mgmt service listening ...")
	err = srv.grpcSrv.Serve(ln)
	srv.Logger.Info("gRPC mgmt service stopped")
	return err
}

// HostToStruct converts a Host into the Struct representation used in
// management responses.
func HostToStruct(h types.Host) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"address":  h.Address,
		"name":     h.Name,
		"resolved": h.Resolved,
	})
}

// HostFromStruct is the inverse of HostToStruct.
func HostFromStruct(s *structpb.Struct) types.Host {
	f := s.GetFields()
	return types.Host{
		Address:  f["address"].GetStringValue(),
		Name:     f["name"].GetStringValue(),
		Resolved: f["resolved"].GetBoolValue(),
	}
}

func validAddress(req *wrapperspb.StringValue) (string, error) {
	addr := req.GetValue()
	if !util.IsValidAddress(addr) {
		return "", status.Errorf(codes.InvalidArgument, "invalid address %q", addr)
	}
	return addr, nil
}

//
// MgmtServiceServer interface
//

// Alive implements a simple echo command.
func (srv *mgmtServer) Alive(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(req.GetValue()), nil
}

// Resolve returns the currently known Host for an address, queueing it for
// resolution if needed. It never waits for a lookup.
func (srv *mgmtServer) Resolve(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	addr, err := validAddress(req)
	if err != nil {
		return nil, err
	}
	srv.Logger.WithField("address", addr).Debug("responding to Resolve")
	return HostToStruct(srv.state.Resolver.Resolve(addr))
}

// Peek returns the cached Host for an address without queueing it.
func (srv *mgmtServer) Peek(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	addr, err := validAddress(req)
	if err != nil {
		return nil, err
	}
	srv.Logger.WithField("address", addr).Debug("responding to Peek")
	h, ok := srv.state.Resolver.Peek(addr)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no name cached for %s", addr)
	}
	return HostToStruct(h)
}

// CancelPending drops all addresses waiting for resolution.
func (srv *mgmtServer) CancelPending(ctx context.Context, _req *emptypb.Empty) (*emptypb.Empty, error) {
	srv.Logger.Debug("responding to CancelPending")
	srv.state.Resolver.CancelAllPendingRequests()
	return &emptypb.Empty{}, nil
}

// Status returns internal status information about the resolver.
func (srv *mgmtServer) Status(ctx context.Context, _req *emptypb.Empty) (*structpb.Struct, error) {
	srv.Logger.Debug("responding to Status")
	r := srv.state.Resolver
	return structpb.NewStruct(map[string]interface{}{
		"cache_size":  r.CacheSize(),
		"pending":     r.PendingCount(),
		"busy":        r.Busy(),
		"subscribers": r.Subscribers.Len(),
	})
}
