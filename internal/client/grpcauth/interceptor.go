// Package grpcauth applies the pipeline's credential contract to gRPC calls:
// attach the bearer token, and on Unauthenticated refresh once and retry.
package grpcauth

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/apiclient/internal/client/pipeline"
	"github.com/dmitrijs2005/apiclient/internal/client/refresh"
	"github.com/dmitrijs2005/apiclient/internal/common"
	"github.com/dmitrijs2005/apiclient/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenSource is satisfied by *pipeline.Bearer.
type TokenSource interface {
	AccessToken() string
}

var authorizationKey = strings.ToLower(common.AuthorizationHeaderName)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(authorizationKey)
	if token != "" {
		md.Set(authorizationKey, common.BearerPrefix+token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryClientInterceptor returns an interceptor that authenticates every
// unary call. refresher and sess may be nil, in which case an
// Unauthenticated status is returned as-is.
func UnaryClientInterceptor(creds TokenSource, refresher pipeline.Refresher, sess pipeline.SessionEnder, log logging.Logger) grpc.UnaryClientInterceptor {
	if log == nil {
		log = logging.Nop()
	}

	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token := creds.AccessToken()
		err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
		if status.Code(err) != codes.Unauthenticated || refresher == nil {
			return err
		}

		next := creds.AccessToken()
		if next == "" || next == token {
			var rerr error
			next, rerr = refresher.Refresh(ctx)
			if rerr != nil {
				if ctx.Err() != nil {
					return status.FromContextError(ctx.Err()).Err()
				}
				if errors.Is(rerr, refresh.ErrSessionEnded) {
					return err
				}
				log.Info(ctx, "refresh failed, ending session", "method", method, "error", rerr)
				if sess != nil {
					sess.Logout(context.WithoutCancel(ctx))
				}
				return err
			}
		}

		// One retry only; a second Unauthenticated goes back to the caller.
		return invoker(withAccessToken(ctx, next), method, req, reply, cc, opts...)
	}
}

// Dial creates a client connection with the interceptor installed.
func Dial(target string, creds TokenSource, refresher pipeline.Refresher, sess pipeline.SessionEnder, log logging.Logger, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(UnaryClientInterceptor(creds, refresher, sess, log)),
	}, opts...)
	return grpc.NewClient(target, all...)
}
