package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docparser/internal/document"
)

const DocumentsServiceName = "docparser.v1.Documents"

// DocumentsServer is the gRPC surface. Messages are google.protobuf.Struct
// values holding the same JSON the HTTP API returns.
type DocumentsServer interface {
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryMethod(name string, call func(DocumentsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DocumentsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DocumentsServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DocumentsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var documentsServiceDesc = grpc.ServiceDesc{
	ServiceName: DocumentsServiceName,
	HandlerType: (*DocumentsServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetDocument", DocumentsServer.GetDocument),
		unaryMethod("DeleteDocument", DocumentsServer.DeleteDocument),
		unaryMethod("ValidateDocument", DocumentsServer.ValidateDocument),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docparser/v1/documents.proto",
}

func RegisterDocumentsServer(s grpc.ServiceRegistrar, srv DocumentsServer) {
	s.RegisterService(&documentsServiceDesc, srv)
}

// DocumentsClient calls a remote DocumentsServer.
type DocumentsClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentsClient(cc grpc.ClientConnInterface) *DocumentsClient {
	return &DocumentsClient{cc: cc}
}

func (c *DocumentsClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+DocumentsServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DocumentsClient) GetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetDocument", in, opts...)
}

func (c *DocumentsClient) DeleteDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DeleteDocument", in, opts...)
}

func (c *DocumentsClient) ValidateDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ValidateDocument", in, opts...)
}

// GRPCService adapts Documents to DocumentsServer.
type GRPCService struct {
	docs   *Documents
	logger *slog.Logger
}

func NewGRPCService(docs *Documents, logger *slog.Logger) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{docs: docs, logger: logger}
}

func (s *GRPCService) GetDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(in.GetFields()["document_id"].GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}
	res, err := s.docs.Get(ctx, id)
	if err != nil {
		s.logger.Warn("grpc.get.failed", "document_id", id, "error", err)
		return nil, grpcError(err)
	}
	return toStruct(res)
}

func (s *GRPCService) DeleteDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := parseID(in.GetFields()["document_id"].GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{"document_id": id.String(), "deleted": true})
}

// ValidateDocument re-validates a stored document ({"document_id"}) or an
// inline one ({"document": {...}}); inline documents are not stored.
func (s *GRPCService) ValidateDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	if raw, ok := fields["document_id"]; ok {
		id, err := parseID(raw.GetStringValue())
		if err != nil {
			return nil, grpcError(err)
		}
		res, err := s.docs.Revalidate(ctx, id)
		if err != nil {
			return nil, grpcError(err)
		}
		return toStruct(res)
	}

	inline := fields["document"].GetStructValue()
	if inline == nil {
		return nil, grpcError(invalid("document_id or document is required"))
	}
	b, err := json.Marshal(inline.AsMap())
	if err != nil {
		return nil, grpcError(invalid("document: %v", err))
	}
	var doc document.CanonicalDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, grpcError(invalid("document: %v", err))
	}
	res, err := s.docs.Check(&doc)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(res)
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, grpcError(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, grpcError(err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, grpcError(err)
	}
	return out, nil
}

// NewGRPCServer registers the documents service, health checks and reflection.
func NewGRPCServer(docs *Documents, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(DocumentsServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(srv)

	RegisterDocumentsServer(srv, NewGRPCService(docs, logger))
	return srv
}
