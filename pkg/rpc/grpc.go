package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/84hero/burrow-client/pkg/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	methodCallTxSync  = "/rpctransact.Transact/CallTxSync"
	methodCallTxSim   = "/rpctransact.Transact/CallTxSim"
	methodNameTxSync  = "/rpctransact.Transact/NameTxSync"
	methodGetMetadata = "/rpcquery.Query/GetMetadata"
	methodGetName     = "/rpcquery.Query/GetName"
	methodStatus      = "/rpcquery.Query/Status"
	methodEvents      = "/rpcevents.ExecutionEvents/Events"
)

var ErrInvalidURL = errors.New("invalid node url")

var _ Client = (*GRPCClient)(nil)

// GRPCClient talks to a single Burrow node over gRPC.
type GRPCClient struct {
	cc *grpc.ClientConn
}

// Dial creates a client for url. Plain host:port, grpc:// and the dns, unix and
// passthrough gRPC schemes are accepted. The connection is established lazily.
func Dial(url string, opts ...grpc.DialOption) (*GRPCClient, error) {
	target, err := normalizeTarget(url)
	if err != nil {
		return nil, err
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.ForceCodec(wire.Codec{})))
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &GRPCClient{cc: cc}, nil
}

func normalizeTarget(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		return url, nil
	}
	switch scheme {
	case "grpc", "tcp":
		if rest == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
		}
		return rest, nil
	case "dns", "unix", "passthrough":
		return url, nil
	}
	return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, scheme)
}

func (c *GRPCClient) CallTxSync(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	resp := new(wire.TxExecution)
	if err := c.cc.Invoke(ctx, methodCallTxSync, tx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) CallTxSim(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	resp := new(wire.TxExecution)
	if err := c.cc.Invoke(ctx, methodCallTxSim, tx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) NameTxSync(ctx context.Context, tx *wire.NameTx) (*wire.TxExecution, error) {
	resp := new(wire.TxExecution)
	if err := c.cc.Invoke(ctx, methodNameTxSync, tx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) GetMetadata(ctx context.Context, address, metadataHash []byte) (string, error) {
	resp := new(wire.MetadataResult)
	req := &wire.GetMetadataParam{Address: address, MetadataHash: metadataHash}
	if err := c.cc.Invoke(ctx, methodGetMetadata, req, resp); err != nil {
		return "", err
	}
	return resp.Metadata, nil
}

func (c *GRPCClient) GetName(ctx context.Context, name string) (*wire.NameEntry, error) {
	resp := new(wire.NameEntry)
	if err := c.cc.Invoke(ctx, methodGetName, &wire.GetNameParam{Name: name}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *GRPCClient) Status(ctx context.Context) (*wire.ResultStatus, error) {
	resp := new(wire.ResultStatus)
	if err := c.cc.Invoke(ctx, methodStatus, &wire.StatusParam{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Events opens a server stream. Cancelling ctx closes it; the next Recv then
// fails with codes.Canceled.
func (c *GRPCClient) Events(ctx context.Context, req *wire.BlocksRequest) (EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "Events",
		ServerStreams: true,
	}, methodEvents)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &eventStream{stream: stream}, nil
}

func (c *GRPCClient) Close() error {
	return c.cc.Close()
}

type eventStream struct {
	stream grpc.ClientStream
}

func (s *eventStream) Recv() (*wire.EventsResponse, error) {
	resp := new(wire.EventsResponse)
	if err := s.stream.RecvMsg(resp); err != nil {
		return nil, err
	}
	return resp, nil
}
