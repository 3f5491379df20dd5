package account

import (
	"google.golang.org/grpc"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/server"
)

// ServiceName is the gRPC name of the account service.
const ServiceName = "loveconnect.account.v1.AccountService"

// Registrar ties the Account service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Account service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Account service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewAccountService(r.appCtx)
	desc := server.NewService(ServiceName)
	server.Unary(desc, "CompleteRegistration", svc.CompleteRegistration)
	server.Unary(desc, "UpdateProfile", svc.UpdateProfile)
	server.Unary(desc, "GetProfile", svc.GetProfile)
	server.Unary(desc, "UpdateSetting", svc.UpdateSetting)
	server.Unary(desc, "Block", svc.Block)
	server.Unary(desc, "Unblock", svc.Unblock)
	server.Unary(desc, "ListBlocked", svc.ListBlocked)
	server.Unary(desc, "Badges", svc.Badges)
	server.Unary(desc, "DeleteAccount", svc.DeleteAccount)
	server.ServerStream(desc, "WatchBadges", svc.WatchBadges)
	s.RegisterService(desc.Desc(), svc)
}
