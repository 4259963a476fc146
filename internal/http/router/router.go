package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/offer-escrow/internal/config"
	"github.com/ignatzorin/offer-escrow/internal/http/handlers"
	"github.com/ignatzorin/offer-escrow/internal/http/middleware"
)

// Handlers - набор хэндлеров, которые подключает роутер.
type Handlers struct {
	Offers        *handlers.OfferHandler
	Escrow        *handlers.EscrowHandler
	Delivery      *handlers.DeliveryHandler
	Postings      *handlers.PostingHandler
	Notifications *handlers.NotificationHandler
	Health        *handlers.HealthHandler
	WS            *handlers.WSHandler
}

// SetupRouter собирает gin engine со всеми маршрутами.
func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.TokenParser) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))

	// Чтение без ограничения частоты.
	protected.GET("/notifications", h.Notifications.ListUnread)
	protected.GET("/postings/:id/offers", middleware.UUIDValidator("id"), h.Offers.ListPostingOffers)
	protected.GET("/offers/:id", middleware.UUIDValidator("id"), h.Offers.GetOffer)
	protected.GET("/offers/:id/escrow", middleware.UUIDValidator("id"), h.Escrow.GetEscrow)

	mutating := protected.Group("/")
	mutating.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		mutating.POST("/postings/:id/offers", middleware.UUIDValidator("id"), h.Offers.SubmitOffer)
		mutating.DELETE("/postings/:id", middleware.UUIDValidator("id"), h.Postings.DeletePosting)

		offers := mutating.Group("/offers/:id")
		offers.Use(middleware.UUIDValidator("id"))
		{
			offers.PUT("/amount", h.Offers.UpdateAmount)
			offers.POST("/accept", h.Offers.Accept)
			offers.POST("/reject", h.Offers.Reject)
			offers.POST("/feedback", h.Offers.AddFeedback)

			offers.POST("/hold", h.Escrow.CreateHold)
			offers.POST("/hold/finalize", h.Escrow.FinalizeHold)

			offers.POST("/delivery", h.Delivery.SubmitDelivery)
			offers.POST("/delivery/accept", h.Delivery.AcceptDelivery)
		}
	}

	return r
}
