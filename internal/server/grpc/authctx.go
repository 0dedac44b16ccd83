package grpcserver

import (
	"context"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	pv "github.com/and161185/gophpress/api/pressv1"
	"github.com/and161185/gophpress/internal/auth"
)

type ctxKey string

const (
	loggerKey    ctxKey = "gp.grpc.logger"
	requestIDKey ctxKey = "gp.grpc.request_id"
)

// HeaderRequestID carries the per-call ULID back to the client.
const HeaderRequestID = "x-request-id"

// PublicMethods lists methods callable without a token. A token sent to them is still checked.
var PublicMethods = map[string]bool{
	pv.MethodRegister:    true,
	pv.MethodLogin:       true,
	pv.MethodGetPost:     true,
	pv.MethodListPosts:   true,
	pv.MethodPostHistory: true,
}

// withRequest stores the request id and a request-scoped logger in context.
func withRequest(ctx context.Context, log *zap.Logger) (context.Context, string) {
	id := ulid.Make().String()
	ctx = context.WithValue(ctx, requestIDKey, id)
	ctx = context.WithValue(ctx, loggerKey, log.With(zap.String("request_id", id)))
	return ctx, id
}

// loggerFrom returns the request logger, or fallback outside a request.
func loggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// RequestIDFromCtx returns the ULID assigned by LoggingUnary.
func RequestIDFromCtx(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// tokenFromMD reads x-auth-token, falling back to "authorization: Bearer".
func tokenFromMD(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	first := func(k string) string {
		if v := md.Get(k); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return auth.TokenFromHeaders(first(auth.HeaderToken), first(auth.HeaderAuthorization))
}

// AuthUnary authenticates every call except public methods without a token.
// The identity is stored with auth.WithIdentity.
func AuthUnary(g *auth.Guard, public map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		raw := tokenFromMD(ctx)
		if raw == "" && public[info.FullMethod] {
			return next(ctx, req)
		}
		id, err := g.Authenticate(ctx, raw)
		if err != nil {
			return nil, toStatus(ctx, nil, err)
		}
		return next(auth.WithIdentity(ctx, id), req)
	}
}
