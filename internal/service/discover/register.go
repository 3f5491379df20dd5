package discover

import (
	"google.golang.org/grpc"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/server"
)

// ServiceName is the gRPC name of the discovery service.
const ServiceName = "loveconnect.discover.v1.DiscoverService"

// Registrar ties the Discover service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Discover service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Discover service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewDiscoverService(r.appCtx)
	desc := server.NewService(ServiceName)
	server.Unary(desc, "ListCandidates", svc.ListCandidates)
	server.Unary(desc, "Countries", svc.Countries)
	server.Unary(desc, "Pass", svc.Pass)
	server.ServerStream(desc, "WatchCandidates", svc.WatchCandidates)
	s.RegisterService(desc.Desc(), svc)
}
