package feed

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/colortrack/internal/feed/pb"
	"github.com/banshee-data/colortrack/internal/mailbox"
)

// Client consumes a location feed.
type Client struct {
	conn *grpc.ClientConn
	api  *pb.LocationClient
}

// Dial connects to a feed at addr. The connection is established lazily on
// the first call.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, api: pb.NewLocationClient(conn)}, nil
}

// Register performs the handshake and returns the server's identity.
func (c *Client) Register(ctx context.Context, info string) (string, error) {
	reply, err := c.api.RegisterClient(ctx, pb.ClientInfo{Info: info})
	if err != nil {
		return "", err
	}
	return reply.Info, nil
}

// StreamLocations calls fn for every received location. It returns nil when
// the server ends the stream, ctx.Err() when ctx is cancelled, and fn's error
// if fn fails.
func (c *Client) StreamLocations(ctx context.Context, info string, fn func(mailbox.Location) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recv, err := c.api.GetLocations(ctx, pb.ClientInfo{Info: info})
	if err != nil {
		return err
	}
	for {
		loc, err := recv.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil && status.Code(err) == codes.Canceled {
				return ctx.Err()
			}
			return err
		}
		if err := fn(fromWire(loc)); err != nil {
			return err
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
