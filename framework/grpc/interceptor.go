package grpccfaccess

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	cfaccess "github.com/edgeguard/go-cfaccess"
	"github.com/edgeguard/go-cfaccess/core"
)

// Metric names recorded per intercepted call, tagged with the full method
// name and the check outcome.
const (
	metricUnaryChecksTotal  = "cfaccess_grpc_unary_checks_total"
	metricStreamChecksTotal = "cfaccess_grpc_stream_checks_total"
)

// Logger is the optional logging interface used throughout the interceptor.
// It matches core.Logger and is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Interceptor verifies Cloudflare Access tokens on incoming gRPC calls.
type Interceptor struct {
	core            *core.Core
	tokenExtractor  TokenExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          Logger
	metrics         cfaccess.Metrics

	validator           core.Validator
	credentialsOptional bool
}

// New creates a gRPC interceptor with the provided options. WithValidator is
// required.
func New(opts ...Option) (*Interceptor, error) {
	interceptor := &Interceptor{
		tokenExtractor:  AssertionMetadataExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		metrics:         &cfaccess.NoopMetrics{},
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.validator == nil {
		return nil, errors.New("validator is required (use WithValidator)")
	}

	coreOpts := []core.Option{
		core.WithValidator(interceptor.validator),
		core.WithCredentialsOptional(interceptor.credentialsOptional),
	}
	if interceptor.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(interceptor.logger))
	}

	engine, err := core.New(coreOpts...)
	if err != nil {
		return nil, err
	}
	interceptor.core = engine

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that checks
// the Access token on every call and makes the validated claims available in
// the handler context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			i.debug("skipping Access check for excluded method", "method", info.FullMethod)
			i.observeCheck(metricUnaryChecksTotal, info.FullMethod, "excluded")
			return handler(ctx, req)
		}

		checkedCtx, outcome, err := i.checkRequest(ctx, info.FullMethod)
		i.observeCheck(metricUnaryChecksTotal, info.FullMethod, outcome)
		if err != nil {
			return nil, err
		}

		return handler(checkedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that checks
// the Access token before the stream handler runs. The stream seen by the
// handler carries the validated claims in its context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			i.debug("skipping Access check for excluded method", "method", info.FullMethod)
			i.observeCheck(metricStreamChecksTotal, info.FullMethod, "excluded")
			return handler(srv, ss)
		}

		checkedCtx, outcome, err := i.checkRequest(ss.Context(), info.FullMethod)
		i.observeCheck(metricStreamChecksTotal, info.FullMethod, outcome)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          checkedCtx,
		})
	}
}

// checkRequest extracts and verifies the token from the incoming metadata.
// The returned context carries the claims on success; the returned error is
// already mapped to a gRPC status.
func (i *Interceptor) checkRequest(ctx context.Context, method string) (context.Context, string, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		i.error("failed to extract token from metadata", "error", err, "method", method)
		return ctx, "extraction_error", i.errorHandler(err)
	}

	claims, err := i.core.CheckToken(ctx, token)
	if err != nil {
		i.warn("Access token check failed", "error", err, "method", method)
		outcome := "invalid"
		if errors.Is(err, core.ErrJWTMissing) {
			outcome = "missing"
		}
		return ctx, outcome, i.errorHandler(err)
	}

	if claims == nil {
		i.debug("no token provided, continuing without claims", "method", method)
		return ctx, "anonymous", nil
	}

	return core.SetClaims(ctx, claims), "ok", nil
}

func (i *Interceptor) observeCheck(metric, method, outcome string) {
	i.metrics.IncCounter(metric, map[string]string{
		"method":  method,
		"outcome": outcome,
	})
}

func (i *Interceptor) debug(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}

func (i *Interceptor) warn(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Warn(msg, args...)
	}
}

func (i *Interceptor) error(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Error(msg, args...)
	}
}

// wrappedServerStream overrides the stream context with one carrying the
// validated claims.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
