package pb

import (
	"context"

	"google.golang.org/grpc"
)

// LocationServer is implemented by the feed service.
type LocationServer interface {
	RegisterClient(context.Context, ClientInfo) (ServerInfo, error)
	GetLocations(ClientInfo, LocationSender) error
}

// LocationSender is the server side of a getLocations stream.
type LocationSender interface {
	Send(Location) error
	Context() context.Context
}

// RegisterLocationServer attaches srv to a gRPC server.
func RegisterLocationServer(s grpc.ServiceRegistrar, srv LocationServer) {
	s.RegisterService(&LocationServerServiceDesc, srv)
}

// LocationServerServiceDesc is the grpc.ServiceDesc for LocationServer.
var LocationServerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LocationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "registerClient", Handler: registerClientHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "getLocations", Handler: getLocationsHandler, ServerStreams: true},
	},
	Metadata: "location.proto",
}

func registerClientHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := NewClientInfoMessage()
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		out, err := srv.(LocationServer).RegisterClient(ctx, ClientInfoFrom(in))
		if err != nil {
			return nil, err
		}
		return out.Message(), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RegisterClientMethod}
	return interceptor(ctx, in, info, call)
}

func getLocationsHandler(srv any, stream grpc.ServerStream) error {
	in := NewClientInfoMessage()
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(LocationServer).GetLocations(ClientInfoFrom(in), &locationSender{stream})
}

type locationSender struct {
	grpc.ServerStream
}

func (s *locationSender) Send(l Location) error {
	return s.ServerStream.SendMsg(l.Message())
}

// LocationClient is the client side of LocationServer.
type LocationClient struct {
	cc grpc.ClientConnInterface
}

func NewLocationClient(cc grpc.ClientConnInterface) *LocationClient {
	return &LocationClient{cc: cc}
}

func (c *LocationClient) RegisterClient(ctx context.Context, in ClientInfo, opts ...grpc.CallOption) (ServerInfo, error) {
	out := NewServerInfoMessage()
	if err := c.cc.Invoke(ctx, RegisterClientMethod, in.Message(), out, opts...); err != nil {
		return ServerInfo{}, err
	}
	return ServerInfoFrom(out), nil
}

// GetLocations opens a location stream. The stream ends when ctx is
// cancelled or the server shuts down.
func (c *LocationClient) GetLocations(ctx context.Context, in ClientInfo, opts ...grpc.CallOption) (*LocationReceiver, error) {
	stream, err := c.cc.NewStream(ctx, &LocationServerServiceDesc.Streams[0], GetLocationsMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in.Message()); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &LocationReceiver{stream: stream}, nil
}

// LocationReceiver reads a getLocations stream.
type LocationReceiver struct {
	stream grpc.ClientStream
}

// Recv blocks for the next Location. io.EOF marks a clean end of stream.
func (r *LocationReceiver) Recv() (Location, error) {
	m := NewLocationMessage()
	if err := r.stream.RecvMsg(m); err != nil {
		return Location{}, err
	}
	return LocationFrom(m), nil
}
