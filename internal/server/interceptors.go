package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/dealdesk/internal/auth"
)

// requestIDMetadata is the metadata form of auth.RequestIDHeader.
var requestIDMetadata = strings.ToLower(auth.RequestIDHeader)

// RequestIDInterceptor puts the caller's x-request-id, or a new one, on the
// context so RPC logs line up with the HTTP access log.
func RequestIDInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(requestIDMetadata); len(vals) > 0 {
			id = vals[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	return handler(auth.WithRequestID(ctx, id), req)
}

// LoggingInterceptor logs every unary call with its duration. Failures are
// logged at error level, successes at debug.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"duration", time.Since(start),
			"request_id", auth.RequestID(ctx),
		}
		if err != nil {
			logger.Error("rpc failed", append(attrs, "code", status.Code(err), "err", err)...)
		} else {
			logger.Debug("rpc", attrs...)
		}
		return resp, err
	}
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("rpc panic",
					"method", info.FullMethod,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// healthCheckMethod is reachable without credentials.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

// AuthInterceptor authenticates the "authorization" metadata with the same
// rules as the HTTP middleware and stores the principal on the context.
// When opts configures neither a static token nor a JWT validator, every
// call passes through anonymously.
func AuthInterceptor(opts auth.Options) grpc.UnaryServerInterceptor {
	enabled := opts.StaticToken != "" || opts.Validator != nil
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !enabled || info.FullMethod == healthCheckMethod {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		vals := md.Get("authorization")
		if len(vals) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}
		token, ok := auth.BearerToken(vals[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization scheme")
		}
		p, ok := opts.Authenticate(token)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(auth.WithPrincipal(ctx, p), req)
	}
}
