package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/server"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/match"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/session"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/testutil"
)

func method(service, name string) string { return "/" + service + "/" + name }

// dial serves match and session over an in-memory listener.
func dial(t *testing.T) (*grpc.ClientConn, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	testutil.PutProfiles(t, env.Store, testutil.Profile("bob", "Bob", 31, domain.GenderMale, domain.SeekingWomen))

	srv := server.NewGRPCServer(env.App.Auth, logger.Discard(),
		match.NewRegistrar(env.App),
		session.NewRegistrar(env.App, env.App.Auth.(*auth.LocalProvider)),
	)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(server.CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, env
}

func signUp(t *testing.T, conn *grpc.ClientConn) (context.Context, string) {
	t.Helper()
	var resp session.SessionResponse
	err := conn.Invoke(context.Background(), method(session.ServiceName, "SignUp"),
		&session.CredentialsRequest{Email: "nina@example.com", Password: "secret1"}, &resp)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+resp.Session.Token)
	return ctx, resp.Session.UID
}

func TestGRPC_RejectsMissingToken(t *testing.T) {
	conn, _ := dial(t)

	var resp match.LikeResponse
	err := conn.Invoke(context.Background(), method(match.ServiceName, "Like"), &match.LikeRequest{TargetUserID: "bob"}, &resp)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
	err = conn.Invoke(bad, method(match.ServiceName, "Like"), &match.LikeRequest{TargetUserID: "bob"}, &resp)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPC_UnaryRoundTrip(t *testing.T) {
	conn, env := dial(t)
	ctx, uid := signUp(t, conn)

	var resp match.LikeResponse
	err := conn.Invoke(ctx, method(match.ServiceName, "Like"), &match.LikeRequest{TargetUserID: "ghost"}, &resp)
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = conn.Invoke(ctx, method(match.ServiceName, "Like"), &match.LikeRequest{TargetUserID: "bob"}, &resp)
	require.NoError(t, err)
	assert.False(t, resp.Matched)
	assert.True(t, testutil.Get(t, env.Store, domain.LikePath("bob", uid)).Exists())
}

func TestGRPC_ServerStream(t *testing.T) {
	conn, env := dial(t)
	ctx, uid := signUp(t, conn)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stream, err := conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, method(match.ServiceName, "WatchLikers"))
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(&emptypb.Empty{}))
	require.NoError(t, stream.CloseSend())

	var first match.ListLikersResponse
	require.NoError(t, stream.RecvMsg(&first))
	assert.Empty(t, first.Likers)

	require.NoError(t, env.Store.Set(context.Background(), domain.LikePath(uid, "bob"), domain.LikeRecord{Timestamp: 1, FromName: "Bob"}))
	var second match.ListLikersResponse
	require.NoError(t, stream.RecvMsg(&second))
	require.Len(t, second.Likers, 1)
	assert.Equal(t, "bob", second.Likers[0].Profile.ID)
}

func TestGRPC_HealthIsPublic(t *testing.T) {
	conn, _ := dial(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
