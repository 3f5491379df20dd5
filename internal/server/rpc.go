package server

import (
	"context"

	"google.golang.org/grpc"
)

// Service builds the grpc.ServiceDesc of a hand-written service whose
// messages are plain Go structs carried by the JSON codec.
//
// Example:
//
//	desc := server.NewService("loveconnect.match.v1.MatchService")
//	server.Unary(desc, "Like", svc.Like)
//	server.ServerStream(desc, "WatchLikers", svc.WatchLikers)
//	s.RegisterService(desc.Desc(), svc)
type Service struct {
	desc grpc.ServiceDesc
}

func NewService(name string) *Service {
	return &Service{desc: grpc.ServiceDesc{
		ServiceName: name,
		HandlerType: (*any)(nil),
		Metadata:    name,
	}}
}

// Desc returns the descriptor to pass to grpc.Server.RegisterService.
func (s *Service) Desc() *grpc.ServiceDesc { return &s.desc }

// Name is the fully qualified service name.
func (s *Service) Name() string { return s.desc.ServiceName }

// FullMethod returns "/service/method".
func (s *Service) FullMethod(method string) string {
	return "/" + s.desc.ServiceName + "/" + method
}

// Unary adds a request/response method.
func Unary[Req, Resp any](s *Service, method string, fn func(context.Context, *Req) (*Resp, error)) {
	fullMethod := s.FullMethod(method)
	s.desc.Methods = append(s.desc.Methods, grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	})
}

// ServerStream adds a method that answers one request with a stream of
// responses. send must not be called concurrently.
func ServerStream[Req, Resp any](s *Service, method string, fn func(ctx context.Context, req *Req, send func(*Resp) error) error) {
	s.desc.Streams = append(s.desc.Streams, grpc.StreamDesc{
		StreamName:    method,
		ServerStreams: true,
		Handler: func(_ any, stream grpc.ServerStream) error {
			in := new(Req)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return fn(stream.Context(), in, func(out *Resp) error {
				return stream.SendMsg(out)
			})
		},
	})
}
