package match

import (
	"google.golang.org/grpc"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/server"
)

// ServiceName is the gRPC name of the match service.
const ServiceName = "loveconnect.match.v1.MatchService"

// Registrar ties the Match service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Match service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Match service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewMatchService(r.appCtx)
	desc := server.NewService(ServiceName)
	server.Unary(desc, "Like", svc.Like)
	server.Unary(desc, "LikeBack", svc.LikeBack)
	server.Unary(desc, "Decline", svc.Decline)
	server.Unary(desc, "StartConversation", svc.StartConversation)
	server.Unary(desc, "ListLikers", svc.ListLikers)
	server.Unary(desc, "ListMatches", svc.ListMatches)
	server.ServerStream(desc, "WatchLikers", svc.WatchLikers)
	s.RegisterService(desc.Desc(), svc)
}
