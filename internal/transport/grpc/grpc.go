// Package grpc implements the gRPC transport for signalbox.
//
// The server speaks JSON on the wire instead of protobuf: a handwritten
// service descriptor plus a JSON codec stand in for generated stubs, so the
// transport needs no protoc toolchain. Clients register the same codec and
// call signalbox.v1.CommandService/Process with a JSON-encoded request.
// The schema is documented in api/signalbox.proto.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/nadzzz/signalbox/internal/transport"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// codecName identifies the JSON codec on the wire.
const codecName = "json"

// jsonCodec marshals gRPC messages as JSON. It satisfies encoding.Codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	t.server = grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	t.server.RegisterService(&commandServiceDesc, &commandService{handler: handler})

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// commandServiceServer is the server API for the CommandService.
type commandServiceServer interface {
	Process(ctx context.Context, req *utterance.Request) (*utterance.Result, error)
}

// commandService adapts the transport handler to the service interface.
type commandService struct {
	handler transport.Handler
}

// Process interprets one utterance. It never returns an application error;
// failures are reported inside the result.
func (s *commandService) Process(ctx context.Context, req *utterance.Request) (*utterance.Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	return s.handler(ctx, *req), nil
}

// processHandler mirrors the shape protoc-gen-go-grpc would generate for a
// unary method.
func processHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(utterance.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(commandServiceServer).Process(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/signalbox.v1.CommandService/Process",
	}
	wrapped := func(ctx context.Context, req any) (any, error) {
		return srv.(commandServiceServer).Process(ctx, req.(*utterance.Request))
	}
	return interceptor(ctx, in, info, wrapped)
}

// commandServiceDesc is the handwritten service descriptor for
// signalbox.v1.CommandService.
var commandServiceDesc = grpc.ServiceDesc{
	ServiceName: "signalbox.v1.CommandService",
	HandlerType: (*commandServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Process",
			Handler:    processHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/signalbox.proto",
}
