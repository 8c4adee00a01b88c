package fakenode

import (
	"context"

	"github.com/84hero/burrow-client/pkg/wire"
	"google.golang.org/grpc"
)

func unary[Req any, PReq interface {
	*Req
	wire.Message
}](call func(s *Server, req PReq) (wire.Message, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
		req := PReq(new(Req))
		if err := dec(req); err != nil {
			return nil, err
		}
		return call(srv.(*Server), req)
	}
}

var transactDesc = grpc.ServiceDesc{
	ServiceName: "rpctransact.Transact",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CallTxSync", Handler: unary(func(s *Server, tx *wire.CallTx) (wire.Message, error) {
			return s.callTx(tx, false)
		})},
		{MethodName: "CallTxSim", Handler: unary(func(s *Server, tx *wire.CallTx) (wire.Message, error) {
			return s.callTx(tx, true)
		})},
		{MethodName: "NameTxSync", Handler: unary(func(s *Server, tx *wire.NameTx) (wire.Message, error) {
			return s.nameTx(tx)
		})},
	},
}

var queryDesc = grpc.ServiceDesc{
	ServiceName: "rpcquery.Query",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetMetadata", Handler: unary(func(s *Server, p *wire.GetMetadataParam) (wire.Message, error) {
			meta, err := s.getMetadata(p.Address, p.MetadataHash)
			if err != nil {
				return nil, err
			}
			return &wire.MetadataResult{Metadata: meta}, nil
		})},
		{MethodName: "GetName", Handler: unary(func(s *Server, p *wire.GetNameParam) (wire.Message, error) {
			return s.getName(p.Name)
		})},
		{MethodName: "Status", Handler: unary(func(s *Server, _ *wire.StatusParam) (wire.Message, error) {
			return s.status(), nil
		})},
	},
}

var eventsDesc = grpc.ServiceDesc{
	ServiceName: "rpcevents.ExecutionEvents",
	HandlerType: (*any)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Events",
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			req := new(wire.BlocksRequest)
			if err := stream.RecvMsg(req); err != nil {
				return err
			}
			return srv.(*Server).streamEvents(stream.Context(), req, func(resp *wire.EventsResponse) error {
				return stream.SendMsg(resp)
			})
		},
	}},
}
