package session

import (
	"google.golang.org/grpc"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/server"
)

// ServiceName is the gRPC name of the session service.
const ServiceName = "loveconnect.session.v1.SessionService"

// Registrar ties the Session service into the gRPC server. SignUp and SignIn
// are callable without a token.
type Registrar struct {
	appCtx   *app.AppContext
	accounts Accounts
	desc     *server.Service
}

// NewRegistrar creates a new Registrar for the Session service
func NewRegistrar(appCtx *app.AppContext, accounts Accounts) *Registrar {
	return &Registrar{appCtx: appCtx, accounts: accounts, desc: server.NewService(ServiceName)}
}

// PublicMethods lists the methods that skip authentication.
func (r *Registrar) PublicMethods() []string {
	return []string{r.desc.FullMethod("SignUp"), r.desc.FullMethod("SignIn")}
}

// Register attaches the Session service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewSessionService(r.appCtx, r.accounts)
	server.Unary(r.desc, "SignUp", svc.SignUp)
	server.Unary(r.desc, "SignIn", svc.SignIn)
	server.Unary(r.desc, "ChangePassword", svc.ChangePassword)
	s.RegisterService(r.desc.Desc(), svc)
}
