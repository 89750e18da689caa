package generator

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName    = "stepwise.generator.v1.TextGenerator"
	generateMethod = "/" + serviceName + "/Generate"
)

// TextGeneratorServer is the server side of the remote generator service.
// Prompts and completions travel as google.protobuf.StringValue.
type TextGeneratorServer interface {
	Generate(ctx context.Context, prompt *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

type textGeneratorServer struct {
	gen    Generator
	logger *slog.Logger
}

func (s *textGeneratorServer) Generate(ctx context.Context, prompt *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	out, err := s.gen.Generate(ctx, prompt.GetValue())
	if err != nil {
		s.logger.Warn("generator service call failed", "error", err)
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.String(out), nil
}

func generateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TextGeneratorServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: generateMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TextGeneratorServer).Generate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var textGeneratorServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TextGeneratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Generate",
			Handler:    generateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stepwise/generator/v1/generator.proto",
}

// RegisterServer exposes gen on s as the TextGenerator service.
func RegisterServer(s grpc.ServiceRegistrar, gen Generator, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.RegisterService(&textGeneratorServiceDesc, &textGeneratorServer{gen: gen, logger: logger})
}
