package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	identityservice "referral-network-hub/backend/internal/identity/service"
	"referral-network-hub/backend/internal/platform/apperr"
)

const bearerScheme = "Bearer"

// Authenticator verifies a bearer access token. *identityservice.AuthService implements it.
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, bearerToken string) (*identityservice.Identity, error)
}

// ParseBearer extracts the token from an Authorization header value. The header must be the
// literal scheme "Bearer", exactly one space and a token without spaces.
func ParseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != bearerScheme || token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// AuthUnary returns a unary server interceptor that authenticates the bearer token from gRPC
// metadata through the auth gateway and stores the identity in the context.
// publicMethods is the set of full method names that do not require a token; a bad token on a
// public method is ignored.
func AuthUnary(auth Authenticator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]
		token, ok := extractBearer(ctx)
		if !ok {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		id, err := auth.AuthenticateRequest(ctx, token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, StatusError(err)
		}
		return handler(WithIdentity(ctx, id), req)
	}
}

// StatusError converts a domain error to a gRPC status carrying only the public message.
func StatusError(err error) error {
	code := apperr.CodeOf(err)
	return status.Error(code.GRPCCode(), string(code)+": "+apperr.PublicMessage(err))
}

// extractBearer returns the bearer token from ctx metadata.
func extractBearer(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return "", false
	}
	return ParseBearer(vals[0])
}
