// Package grpccfaccess provides gRPC server interceptors that verify
// Cloudflare Access tokens.
//
// Both unary and streaming interceptors read the token from the
// cf-access-jwt-assertion metadata key, verify it against the team's key
// set, and make the validated claims available in the handler context.
//
// # Basic Usage
//
//	keys, err := jwks.NewCachingProvider(jwks.WithTeamDomain("myteam.cloudflareaccess.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := validator.New(validator.ConfigFromEnv(), keys)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	interceptor, err := grpccfaccess.New(
//	    grpccfaccess.WithValidator(v),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// # Claims Retrieval
//
// Handlers read the verified identity back with the generic helpers:
//
//	func (s *server) GetItem(ctx context.Context, req *pb.GetItemRequest) (*pb.Item, error) {
//	    claims, err := grpccfaccess.GetClaims[*validator.ValidatedClaims](ctx)
//	    if err != nil {
//	        return nil, status.Error(codes.Internal, "failed to get claims")
//	    }
//	    // claims.Email, claims.RegisteredClaims.Subject, ...
//	}
//
// Failed checks come back as gRPC status errors: Unauthenticated for token
// faults, Internal when the key set could not be fetched, InvalidArgument
// for malformed metadata. Responses never carry verification detail; enable
// WithLogger to see the reasons server-side.
package grpccfaccess
