package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/dealdesk/internal/auth"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptor(t *testing.T) {
	validator := auth.NewValidator(testJWTSecret, "")
	jwtToken, err := validator.Sign(auth.Principal{Subject: "u-42", Name: "Claire Martin"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	opts := auth.Options{StaticToken: "secret", StaticActor: "robot", Validator: validator}

	listMethod := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/List"}
	for _, tc := range []struct {
		name     string
		opts     auth.Options
		info     *grpc.UnaryServerInfo
		md       metadata.MD
		wantCode codes.Code
	}{
		{name: "Disabled", opts: auth.Options{}, info: listMethod},
		{name: "HealthCheckExempt", opts: opts, info: &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}},
		{name: "MissingMetadata", opts: opts, info: listMethod, wantCode: codes.Unauthenticated},
		{name: "MissingHeader", opts: opts, info: listMethod, md: metadata.Pairs("other", "value"), wantCode: codes.Unauthenticated},
		{name: "InvalidScheme", opts: opts, info: listMethod, md: metadata.Pairs("authorization", "Basic secret"), wantCode: codes.Unauthenticated},
		{name: "WrongToken", opts: opts, info: listMethod, md: metadata.Pairs("authorization", "Bearer wrong"), wantCode: codes.Unauthenticated},
		{name: "StaticToken", opts: opts, info: listMethod, md: metadata.Pairs("authorization", "Bearer secret")},
		{name: "JWT", opts: opts, info: listMethod, md: metadata.Pairs("authorization", "Bearer "+jwtToken)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := AuthInterceptor(tc.opts)(ctx, nil, tc.info, stubHandler)
			if tc.wantCode != codes.OK {
				if status.Code(err) != tc.wantCode {
					t.Fatalf("code = %v, want %v (err %v)", status.Code(err), tc.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp != "ok" {
				t.Fatalf("resp = %v, want ok", resp)
			}
		})
	}
}

func TestAuthInterceptor_StoresPrincipal(t *testing.T) {
	validator := auth.NewValidator(testJWTSecret, "")
	token, err := validator.Sign(auth.Principal{Subject: "u-42", Name: "Claire Martin"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

	var actor string
	handler := func(ctx context.Context, _ any) (any, error) {
		actor = auth.Actor(ctx)
		return nil, nil
	}
	if _, err := AuthInterceptor(auth.Options{Validator: validator})(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor != "Claire Martin" {
		t.Errorf("actor = %q, want %q", actor, "Claire Martin")
	}
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRecoveryInterceptor(t *testing.T) {
	panicky := func(context.Context, any) (any, error) { panic("boom") }
	_, err := RecoveryInterceptor(quietLogger)(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, panicky)
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", status.Code(err))
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	failing := func(context.Context, any) (any, error) { return nil, status.Error(codes.NotFound, "gone") }
	_, err := LoggingInterceptor(quietLogger)(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, failing)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %v, want NotFound", status.Code(err))
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	var got string
	capture := func(ctx context.Context, _ any) (any, error) {
		got = auth.RequestID(ctx)
		return nil, nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/x/Y"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "req-7"))
	if _, err := RequestIDInterceptor(ctx, nil, info, capture); err != nil {
		t.Fatal(err)
	}
	if got != "req-7" {
		t.Errorf("request id = %q, want the caller's", got)
	}

	if _, err := RequestIDInterceptor(context.Background(), nil, info, capture); err != nil {
		t.Fatal(err)
	}
	if len(got) != 36 {
		t.Errorf("generated request id = %q, want a uuid", got)
	}
}

func TestGRPCHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv, hs := NewGRPCServer(quietLogger, auth.Options{StaticToken: "secret"})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}
