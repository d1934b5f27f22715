package gameserver

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// StatusServiceName is the fully qualified gRPC service name.
const StatusServiceName = "dungeon.v1.Status"

const (
	snapshotMethod = "/" + StatusServiceName + "/Snapshot"
	setInputMethod = "/" + StatusServiceName + "/SetInput"
)

// StatusServer reports live sessions and accepts movement input.
type StatusServer interface {
	// Snapshot returns {"server": type, "sessions": [...]}.
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// SetInput takes {"session": id, "x": dx, "y": dy}.
	SetInput(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// StatusServiceDesc describes the status service for grpc.Server registration.
var StatusServiceDesc = grpc.ServiceDesc{
	ServiceName: StatusServiceName,
	HandlerType: (*StatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: snapshotHandler},
		{MethodName: "SetInput", Handler: setInputHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dungeon/v1/status.proto",
}

// RegisterStatusServer registers srv on r.
func RegisterStatusServer(r grpc.ServiceRegistrar, srv StatusServer) {
	r.RegisterService(&StatusServiceDesc, srv)
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatusServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: snapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StatusServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func setInputHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatusServer).SetInput(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: setInputMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StatusServer).SetInput(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// StatusClient is the client side of the status service.
type StatusClient struct {
	cc grpc.ClientConnInterface
}

// NewStatusClient wraps cc.
func NewStatusClient(cc grpc.ClientConnInterface) *StatusClient {
	return &StatusClient{cc: cc}
}

// Snapshot calls Status/Snapshot.
func (c *StatusClient) Snapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, snapshotMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SetInput calls Status/SetInput.
func (c *StatusClient) SetInput(ctx context.Context, sessionID string, dir geom.Vec2, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(map[string]any{"session": sessionID, "x": dir.X, "y": dir.Y})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, setInputMethod, in, new(emptypb.Empty), opts...)
}

// StatusService serves StatusServer from a Hub.
type StatusService struct {
	hub        *Hub
	serverType string
	logger     *zap.Logger
}

// NewStatusService creates a StatusService over hub.
//
// Precondition: hub must not be nil.
func NewStatusService(hub *Hub, serverType string, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{hub: hub, serverType: serverType, logger: logger}
}

// Snapshot returns every session's current state.
func (s *StatusService) Snapshot(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sessions := s.hub.Sessions()
	list := make([]any, 0, len(sessions))
	for _, sess := range sessions {
		list = append(list, sess.Snapshot().Fields())
	}
	out, err := structpb.NewStruct(map[string]any{
		"server":   s.serverType,
		"sessions": list,
	})
	if err != nil {
		s.logger.Error("encoding status snapshot", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "encoding snapshot: %v", err)
	}
	return out, nil
}

// SetInput sets a session's movement direction.
func (s *StatusService) SetInput(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	fields := in.GetFields()
	id := fields["session"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session is required")
	}
	sess, ok := s.hub.Get(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "session %q not found", id)
	}
	sess.SetInput(geom.V(fields["x"].GetNumberValue(), fields["y"].GetNumberValue()))
	return &emptypb.Empty{}, nil
}

// NewGRPCServer builds a gRPC server carrying the status service and the
// standard health service, with both reported as serving.
func NewGRPCServer(svc StatusServer) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	RegisterStatusServer(srv, svc)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(StatusServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}
