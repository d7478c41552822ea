package mgmt

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	context "context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DCSO/hostnamer/resolver"
	"github.com/DCSO/hostnamer/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	status "google.golang.org/grpc/status"
	emptypb "google.golang.org/protobuf/types/known/emptypb"
	wrapperspb "google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	mgmtCfg = GRPCEndpointConfig{
		EndpointConfig: EndpointConfig{
			Network:    "unix",
			TLSDisable: true,
		},
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	}
	testResolver *resolver.Resolver
	// lookups of this address block until the gate is closed
	blockedAddress = "10.9.9.9"
	gate           = make(chan struct{})
)

type nopSubscriber struct{}

func (nopSubscriber) Resolved(types.Host) {}

func testLookup(address string) (string, bool) {
	switch address {
	case blockedAddress:
		<-gate
		return "blocked.internal", true
	case "10.0.0.1":
		return "db1.internal", true
	}
	return "", false
}

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.TraceLevel)
	cctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ectx := errgroup.WithContext(cctx)

	dir, err := os.MkdirTemp("", "hostnamer-mgmt")
	if err != nil {
		logrus.Fatal(err)
	}
	defer os.RemoveAll(dir)
	mgmtCfg.ListenerAddress = filepath.Join(dir, "sub", "mgmt.socket")

	testResolver = resolver.MakeResolver(testLookup, nil)
	testResolver.Subscribe(&nopSubscriber{})

	msrv, err := NewMgmtServer(ectx, mgmtCfg, &State{
		Resolver: testResolver,
	})
	if err != nil {
		logrus.Fatal(err)
	}
	eg.Go(func() error {
		if err := msrv.ListenAndServe(); err != nil {
			logrus.WithError(err).Error("gRPC server failed")
			return err
		}
		return nil
	})
	time.Sleep(100 * time.Millisecond)

	rc := m.Run()
	close(gate)
	cancel()
	msrv.Stop()
	if err := eg.Wait(); err != nil {
		logrus.Warn(err)
	}
	if rc != 0 {
		logrus.Warnf("test failed with %d", rc)
	}
	os.RemoveAll(dir)
	os.Exit(rc)
}

func dial(t *testing.T) MgmtServiceClient {
	clt, conn, err := mgmtCfg.Dial()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return clt
}

func TestNewMgmtServerNeedsResolver(t *testing.T) {
	_, err := NewMgmtServer(context.Background(), mgmtCfg, &State{})
	assert.Error(t, err)
}

func TestAlive(t *testing.T) {
	clt := dial(t)
	got, err := clt.Alive(context.TODO(), wrapperspb.String("TestAlive"))
	require.NoError(t, err)
	assert.Equal(t, "TestAlive", got.GetValue())
}

func TestResolveAndPeek(t *testing.T) {
	clt := dial(t)

	_, err := clt.Peek(context.TODO(), wrapperspb.String("10.0.0.1"))
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))

	got, err := clt.Resolve(context.TODO(), wrapperspb.String("10.0.0.1"))
	require.NoError(t, err)
	h := HostFromStruct(got)
	assert.Equal(t, "10.0.0.1", h.Address)
	assert.False(t, h.Resolved)
	assert.Equal(t, types.PlaceholderName, h.Name)

	require.Eventually(t, func() bool {
		got, err := clt.Peek(context.TODO(), wrapperspb.String("10.0.0.1"))
		return err == nil && HostFromStruct(got).Name == "db1.internal"
	}, 5*time.Second, 10*time.Millisecond)

	got, err = clt.Resolve(context.TODO(), wrapperspb.String("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, types.Host{
		Address:  "10.0.0.1",
		Name:     "db1.internal",
		Resolved: true,
	}, HostFromStruct(got))

	got, err = clt.Resolve(context.TODO(), wrapperspb.String("::1"))
	require.NoError(t, err)
	assert.Equal(t, types.LoopbackName, HostFromStruct(got).Name)
}

func TestResolveInvalid(t *testing.T) {
	clt := dial(t)
	_, err := clt.Resolve(context.TODO(), wrapperspb.String("not-an-ip"))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = clt.Peek(context.TODO(), wrapperspb.String(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStatusAndCancel(t *testing.T) {
	clt := dial(t)

	_, err := clt.Resolve(context.TODO(), wrapperspb.String(blockedAddress))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return testResolver.Busy() && testResolver.PendingCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
	for _, a := range []string{"10.0.0.50", "10.0.0.51"} {
		_, err = clt.Resolve(context.TODO(), wrapperspb.String(a))
		require.NoError(t, err)
	}

	st, err := clt.Status(context.TODO(), &emptypb.Empty{})
	require.NoError(t, err)
	f := st.GetFields()
	assert.Equal(t, float64(2), f["pending"].GetNumberValue())
	assert.True(t, f["busy"].GetBoolValue())
	assert.Equal(t, float64(1), f["subscribers"].GetNumberValue())

	_, err = clt.CancelPending(context.TODO(), &emptypb.Empty{})
	require.NoError(t, err)

	st, err = clt.Status(context.TODO(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, float64(0), st.GetFields()["pending"].GetNumberValue())
}

func TestDialString(t *testing.T) {
	assert.Equal(t, "unix:/tmp/x.sock", GRPCEndpointConfig{
		EndpointConfig: EndpointConfig{Network: "unix", ListenerAddress: "/tmp/x.sock"},
	}.DialString())
	assert.Equal(t, "dns:///localhost:9999", GRPCEndpointConfig{
		EndpointConfig: EndpointConfig{Network: "tcp", ListenerAddress: "localhost:9999"},
	}.DialString())
}
