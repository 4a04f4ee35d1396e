package remote

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a runner service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial connects to the runner service at addr. The service is meant for a
// trusted network and uses no transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxMsgSize)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return NewClient(conn), conn, nil
}

// Run runs req on the server. A tool that ran and failed is not an error;
// check RunResponse.Status.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	in, err := req.toStruct()
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, runMethod, in, out); err != nil {
		return nil, err
	}
	return runResponseFromStruct(out), nil
}

// ListTools returns the tools the server offers.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, listToolsMethod, &structpb.Struct{}, out); err != nil {
		return nil, err
	}
	return toolsFromStruct(out), nil
}
