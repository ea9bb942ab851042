package generatorsvc

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/observability"
)

const (
	ServiceName    = "escn.v1.GeneratorService"
	GenerateMethod = "/escn.v1.GeneratorService/Generate"

	// ErrorCodeTrailer carries the core.ErrorCode of a failed Generate.
	ErrorCodeTrailer = "escn-error-code"
)

// GeneratorServer is the server API of escn.v1.GeneratorService. Requests
// are a Struct with string fields "prefix" and "pic".
type GeneratorServer interface {
	Generate(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GeneratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: generateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escn/v1/generator.proto",
}

func generateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeneratorServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GenerateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GeneratorServer).Generate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type Server struct {
	gen *core.Generator
	log *zap.Logger
}

func NewServer(gen *core.Generator, log *zap.Logger) *Server {
	return &Server{gen: gen, log: log}
}

// Generate mints one ESCN from the shared generator. Prefix and PIC may
// be sent as strings or whole numbers.
func (s *Server) Generate(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	escn, err := s.generate(req)
	if err != nil {
		appErr := core.AsAppError(err)
		code := codes.Internal
		if appErr.Code.HTTPStatus() == http.StatusBadRequest {
			code = codes.InvalidArgument
		} else {
			s.log.Error("generator: generate failed", zap.Error(err))
		}
		_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorCodeTrailer, string(appErr.Code)))
		observability.GeneratorRPCTotal.WithLabelValues(code.String()).Inc()
		return nil, status.Error(code, appErr.Message)
	}

	observability.GeneratorRPCTotal.WithLabelValues(codes.OK.String()).Inc()
	return wrapperspb.String(escn), nil
}

func (s *Server) generate(req *structpb.Struct) (string, error) {
	fields := req.GetFields()
	prefix, err := core.PrefixValue(fields["prefix"].AsInterface())
	if err != nil {
		return "", err
	}
	pic, err := core.PICValue(fields["pic"].AsInterface())
	if err != nil {
		return "", err
	}
	return s.gen.Generate(prefix, pic)
}

// Register installs the generator and the standard health service on srv.
// The returned health server lets the caller flip to NOT_SERVING on
// shutdown.
func Register(srv *grpc.Server, s *Server) *health.Server {
	srv.RegisterService(&ServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return hs
}

// LoggingInterceptor logs every unary call at debug level and failures at
// warn level.
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			log.Warn("grpc call failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		log.Debug("grpc call", fields...)
		return resp, nil
	}
}
