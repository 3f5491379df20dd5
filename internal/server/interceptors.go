package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
)

// always callable without a token
var publicPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

// PublicMethods is the set of full method names that skip authentication.
type PublicMethods map[string]bool

func (p PublicMethods) allows(fullMethod string) bool {
	if p[fullMethod] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// UnaryAuthInterceptor resolves the bearer token of every call into the
// caller's uid (see auth.UserID).
func UnaryAuthInterceptor(provider auth.Provider, public PublicMethods) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, provider, public, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func StreamAuthInterceptor(provider auth.Provider, public PublicMethods) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), provider, public, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &contextStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticate(ctx context.Context, provider auth.Provider, public PublicMethods, fullMethod string) (context.Context, error) {
	token, ok := tokenFromMetadata(ctx)
	if !ok {
		if public.allows(fullMethod) {
			return ctx, nil
		}
		return ctx, svcErr.Map(svcErr.ErrUnauthenticated)
	}
	id, err := provider.Verify(ctx, token)
	if err != nil {
		if public.allows(fullMethod) {
			return ctx, nil
		}
		return ctx, svcErr.Map(err)
	}
	ctx = logger.IntoContext(ctx, logger.FromContext(ctx, nil).With("user", id.UID))
	return auth.WithUserID(ctx, id.UID), nil
}

func tokenFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get("authorization") {
		if token, ok := auth.BearerToken(v); ok {
			return token, true
		}
	}
	return "", false
}

// UnaryLoggingInterceptor logs every call and maps service errors to gRPC
// status codes. It stores a logger scoped to the method in the context; the
// auth interceptor adds the caller to it.
func UnaryLoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = logger.IntoContext(ctx, log.With("method", info.FullMethod))
		resp, err := handler(ctx, req)
		err = svcErr.Map(err)
		logCall(log, info.FullMethod, start, err)
		return resp, err
	}
}

func StreamLoggingInterceptor(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		ctx := logger.IntoContext(ss.Context(), log.With("method", info.FullMethod))
		err := svcErr.Map(handler(srv, &contextStream{ServerStream: ss, ctx: ctx}))
		logCall(log, info.FullMethod, start, err)
		return err
	}
}

func logCall(log *slog.Logger, method string, start time.Time, err error) {
	code := status.Code(err)
	attrs := []any{"method", method, "code", code.String(), "duration", time.Since(start)}
	if err != nil {
		log.Warn("rpc failed", append(attrs, "err", err)...)
		return
	}
	log.Debug("rpc", attrs...)
}

// contextStream overrides the context of a server stream.
type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context { return s.ctx }
