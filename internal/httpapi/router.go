package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/account"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/chat"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/discover"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/match"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/session"
)

// NewRouter exposes the unary operations of every service as a JSON REST
// API. Streams stay on gRPC. sessions is nil when accounts are managed by
// an external identity provider.
func NewRouter(appCtx *app.AppContext, allowedOrigins []string, sessions *session.Service) http.Handler {
	discoverSvc := discover.NewDiscoverService(appCtx)
	matchSvc := match.NewMatchService(appCtx)
	chatSvc := chat.NewChatService(appCtx)
	accountSvc := account.NewAccountService(appCtx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(appCtx.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if sessions != nil {
			r.Post("/session/signup", endpoint(http.StatusCreated, sessions.SignUp))
			r.Post("/session/signin", endpoint(http.StatusOK, sessions.SignIn))
		}

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(appCtx.Auth))

			if sessions != nil {
				r.Post("/session/password", endpoint(http.StatusOK, sessions.ChangePassword))
			}

			r.Route("/discover", func(r chi.Router) {
				r.Get("/candidates", endpoint(http.StatusOK, discoverSvc.ListCandidates,
					queryInt("minAge", func(q *discover.ListCandidatesRequest) *int { return &q.Filters.MinAge }),
					queryInt("maxAge", func(q *discover.ListCandidatesRequest) *int { return &q.Filters.MaxAge }),
					query("country", func(q *discover.ListCandidatesRequest) *string { return &q.Filters.Country }),
					query("q", func(q *discover.ListCandidatesRequest) *string { return &q.Filters.Query }),
				))
				r.Get("/countries", endpoint(http.StatusOK, discoverSvc.Countries))
				r.Post("/passes", endpoint(http.StatusOK, discoverSvc.Pass))
			})

			r.Route("/likes", func(r chi.Router) {
				r.Get("/", endpoint(http.StatusOK, matchSvc.ListLikers,
					queryInt("pageSize", func(q *match.ListLikersRequest) *int { return &q.PageSize }),
					query("pageToken", func(q *match.ListLikersRequest) *string { return &q.PaginationToken }),
				))
				r.Post("/", endpoint(http.StatusOK, matchSvc.Like))

				liker := param("likerId", func(q *match.LikerRequest) *string { return &q.LikerUserID })
				r.Post("/{likerId}/accept", endpoint(http.StatusOK, matchSvc.LikeBack, liker))
				r.Post("/{likerId}/decline", endpoint(http.StatusOK, matchSvc.Decline, liker))
			})

			r.Get("/matches", endpoint(http.StatusOK, matchSvc.ListMatches))

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", endpoint(http.StatusOK, chatSvc.ListConversations,
					query("q", func(q *chat.ListConversationsRequest) *string { return &q.Query }),
				))
				r.Post("/", endpoint(http.StatusOK, matchSvc.StartConversation))

				r.Route("/{conversationId}", func(r chi.Router) {
					conv := param("conversationId", func(q *chat.ConversationRequest) *string { return &q.ConversationID })

					r.Delete("/", endpoint(http.StatusOK, chatSvc.DeleteConversation,
						param("conversationId", func(q *chat.DeleteConversationRequest) *string { return &q.ConversationID }),
						confirm(func(q *chat.DeleteConversationRequest) *bool { return &q.Confirm }),
					))
					r.Post("/read", endpoint(http.StatusOK, chatSvc.OpenConversation, conv))
					r.Get("/messages", endpoint(http.StatusOK, chatSvc.ListMessages, conv))
					r.Post("/messages", endpoint(http.StatusCreated, chatSvc.SendMessage,
						param("conversationId", func(q *chat.SendMessageRequest) *string { return &q.ConversationID }),
					))
					r.Delete("/messages/{messageId}", endpoint(http.StatusOK, chatSvc.DeleteMessage,
						param("conversationId", func(q *chat.DeleteMessageRequest) *string { return &q.ConversationID }),
						param("messageId", func(q *chat.DeleteMessageRequest) *string { return &q.MessageID }),
						confirm(func(q *chat.DeleteMessageRequest) *bool { return &q.Confirm }),
					))
				})
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/", endpoint(http.StatusOK, accountSvc.GetProfile))
				r.Put("/", endpoint(http.StatusOK, accountSvc.CompleteRegistration))
				r.Patch("/", endpoint(http.StatusOK, accountSvc.UpdateProfile))
				r.Delete("/", endpoint(http.StatusOK, accountSvc.DeleteAccount,
					confirm(func(q *account.DeleteAccountRequest) *bool { return &q.Confirm }),
				))
				r.Put("/settings/{key}", endpoint(http.StatusOK, accountSvc.UpdateSetting,
					param("key", func(q *account.UpdateSettingRequest) *string { return &q.Key }),
				))
				r.Get("/badges", endpoint(http.StatusOK, accountSvc.Badges))

				r.Get("/blocks", endpoint(http.StatusOK, accountSvc.ListBlocked))
				r.Post("/blocks", endpoint(http.StatusOK, accountSvc.Block))
				r.Delete("/blocks/{userId}", endpoint(http.StatusOK, accountSvc.Unblock,
					param("userId", func(q *account.UnblockRequest) *string { return &q.TargetUserID }),
				))
			})

			r.Get("/users/{userId}", endpoint(http.StatusOK, accountSvc.GetProfile,
				param("userId", func(q *account.GetProfileRequest) *string { return &q.UserID }),
			))
		})
	})

	return r
}
