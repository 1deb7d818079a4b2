package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/academic-records/internal/application"
	"github.com/viralforge/academic-records/internal/domain"
)

const serviceName = "academics.records.v1.TokenService"

// TokenService lets sibling services verify records tokens without sharing
// the signing key.
type TokenService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPublicKeys(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type TokenServer struct {
	service *application.Service
}

func NewTokenServer(service *application.Service) *TokenServer {
	return &TokenServer{service: service}
}

// NewServer builds a gRPC server carrying the token service and the
// standard health service.
func NewServer(service *application.Service) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(server, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	Register(server, NewTokenServer(service))
	return server, healthSrv
}

func Register(server grpc.ServiceRegistrar, svc TokenService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*TokenService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    validateTokenHandler(svc),
			},
			{
				MethodName: "GetPublicKeys",
				Handler:    getPublicKeysHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "academics/records/v1/token_service.proto",
	}, svc)
}

func (s *TokenServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.service.Verify(ctx, token)
	if err != nil {
		return nil, statusFromError(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"subject_id": claims.SubjectID.String(),
		"role":       string(claims.Role),
		"token_id":   claims.TokenID,
		"type":       string(claims.Type),
		"expires_at": claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *TokenServer) GetPublicKeys(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	keys, err := s.service.PublicJWKs()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get keys: %v", err)
	}
	// structpb only understands []any, not []map[string]any.
	list := make([]any, 0, len(keys))
	for _, key := range keys {
		list = append(list, key)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"keys": list,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func statusFromError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []any{
		"service", "academic-records",
		"module", "grpc",
		"layer", "adapter",
		"operation", info.FullMethod,
		"code", status.Code(err).String(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields = append(fields, "outcome", "failure", "error", err.Error())
		if status.Code(err) == codes.Internal {
			slog.Default().ErrorContext(ctx, "grpc call completed", fields...)
		} else {
			slog.Default().WarnContext(ctx, "grpc call completed", fields...)
		}
		return resp, err
	}
	fields = append(fields, "outcome", "success")
	slog.Default().InfoContext(ctx, "grpc call completed", fields...)
	return resp, nil
}

func validateTokenHandler(svc TokenService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.ValidateToken(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/ValidateToken",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.ValidateToken(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getPublicKeysHandler(svc TokenService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetPublicKeys(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/GetPublicKeys",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetPublicKeys(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
