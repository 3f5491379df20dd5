package chat

import (
	"google.golang.org/grpc"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/server"
)

// ServiceName is the gRPC name of the chat service.
const ServiceName = "loveconnect.chat.v1.ChatService"

// Registrar ties the Chat service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Chat service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Chat service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	svc := NewChatService(r.appCtx)
	desc := server.NewService(ServiceName)
	server.Unary(desc, "SendMessage", svc.SendMessage)
	server.Unary(desc, "DeleteMessage", svc.DeleteMessage)
	server.Unary(desc, "OpenConversation", svc.OpenConversation)
	server.Unary(desc, "ListMessages", svc.ListMessages)
	server.Unary(desc, "ListConversations", svc.ListConversations)
	server.Unary(desc, "DeleteConversation", svc.DeleteConversation)
	server.ServerStream(desc, "WatchMessages", svc.WatchMessages)
	server.ServerStream(desc, "WatchConversations", svc.WatchConversations)
	s.RegisterService(desc.Desc(), svc)
}
