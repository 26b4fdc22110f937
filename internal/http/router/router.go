package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/easytransact-backend/internal/config"
	"github.com/ignatzorin/easytransact-backend/internal/http/handlers"
	"github.com/ignatzorin/easytransact-backend/internal/http/middleware"
)

// Handlers собирает хэндлеры приложения. Chain и Checkout могут быть nil, если интеграция не настроена.
// ChainOperators - пользователи, которым разрешены транзакции от ключа сервиса.
type Handlers struct {
	Health   *handlers.HealthHandler
	Users    *handlers.UserHandler
	Projects *handlers.ProjectHandler
	Offers   *handlers.OfferHandler
	WS       *handlers.WSHandler
	TryOn    *handlers.TryOnHandler
	Checkout *handlers.CheckoutHandler
	Chain    *handlers.ChainHandler

	ChainOperators []string
}

func SetupRouter(cfg *config.Config, h Handlers, sessions middleware.SessionVerifier, limiterStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Публичные маршруты
	api.POST("/tryon", middleware.RateLimitMiddleware(limiterStore, cfg.RateLimitLimit, cfg.RateLimitPeriod), h.TryOn.TryOn)
	if h.Checkout != nil {
		api.POST("/webhooks/stripe", h.Checkout.StripeWebhook)
	}

	// Websocket проверяет токен сам: браузер не может передать заголовок Authorization.
	api.GET("/projects/:id/ws", middleware.UUIDValidator("id"), h.WS.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(sessions))
	{
		protected.GET("/me", h.Users.Me)
		protected.GET("/users", h.Users.Search)
		if h.Checkout != nil {
			protected.POST("/checkout", h.Checkout.Checkout)
		}

		protected.POST("/projects", h.Projects.CreateProject)
		protected.GET("/projects", h.Projects.ListProjects)
		protected.GET("/projects/:id", middleware.UUIDValidator("id"), h.Projects.GetProject)
		protected.GET("/projects/:id/messages", middleware.UUIDValidator("id"), h.Projects.ListMessages)
		protected.POST("/projects/:id/messages", middleware.UUIDValidator("id"), h.Projects.SendMessage)

		protected.GET("/invitations", h.Projects.ListInvitations)
		protected.PUT("/invitations/:id", middleware.UUIDValidator("id"), h.Projects.HandleInvitation)

		protected.POST("/projects/:id/offer", middleware.UUIDValidator("id"), h.Offers.CreateOffer)
		protected.GET("/projects/:id/offer", middleware.UUIDValidator("id"), h.Offers.GetOffer)
		protected.POST("/offers/:id/paypal/order", middleware.UUIDValidator("id"), h.Offers.CreatePayPalOrder)
		protected.POST("/offers/:id/paypal/capture", middleware.UUIDValidator("id"), h.Offers.CapturePayPalOrder)
		protected.POST("/offers/:id/submit", middleware.UUIDValidator("id"), h.Offers.SubmitWork)
		protected.POST("/offers/:id/approve", middleware.UUIDValidator("id"), h.Offers.ApproveWork)
		protected.POST("/offers/:id/revision", middleware.UUIDValidator("id"), h.Offers.RequestRevision)

		// Escrow контракт
		if h.Chain != nil {
			protected.GET("/chain/projects", h.Chain.UserProjects)
			protected.GET("/chain/approvals", h.Chain.ProjectsForApproval)
			protected.GET("/chain/projects/:id/asset", h.Chain.AssetInfo)
			protected.POST("/chain/tx", h.Chain.Relay)

			// Транзакции от ключа сервиса: msg.sender у них общий, поэтому только для операторов.
			operator := protected.Group("/chain/projects", middleware.RequireOperator(h.ChainOperators))
			operator.POST("", h.Chain.CreateProject)
			operator.POST("/:id/funds", h.Chain.AddFunds)
			operator.POST("/:id/asset", h.Chain.SubmitAsset)
			operator.POST("/:id/accept-asset", h.Chain.AcceptAsset)
			operator.POST("/:id/reject-asset", h.Chain.RejectAsset)
			operator.POST("/:id/accept", h.Chain.AcceptProject)
		}
	}

	return r
}
