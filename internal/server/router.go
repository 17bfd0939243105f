package server

import (
	"log/slog"
	"net/http"

	"github.com/farellandr/ticketgate/internal/handlers"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes groups everything setupRoutes needs. Handlers may be built over
// missing dependencies when initErr is set; they are never reached then.
type routes struct {
	initErr       error
	callbackToken string
	verifier      middleware.TokenVerifier
	logger        *slog.Logger

	payments *handlers.PaymentHandler
	tickets  *handlers.TicketHandler
	coupons  *handlers.CouponHandler
	checkins *handlers.CheckinHandler
	auth     *handlers.AuthHandler
	admin    *handlers.AdminHandler
}

func setupRoutes(r *gin.Engine, rt routes) {
	r.GET("/healthz", func(c *gin.Context) {
		if rt.initErr != nil {
			c.JSON(http.StatusOK, gin.H{"status": "misconfigured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		helpers.RespondWithError(c, http.StatusNotFound, "Route not found.")
	})

	r.POST("/v1/webhooks/payment",
		middleware.MisconfiguredWebhook(rt.initErr),
		middleware.CallbackToken(rt.callbackToken, rt.logger),
		rt.payments.Webhook,
	)

	public := r.Group("/v1")
	public.Use(middleware.Misconfigured(rt.initErr))
	{
		public.POST("/preferences", rt.payments.CreatePreference)
		public.POST("/vouchers", rt.payments.RequestVoucher)
		public.POST("/coupons/validate", rt.coupons.Validate)

		public.GET("/inscriptions/status", rt.tickets.GetStatus)
		public.GET("/ticket", rt.tickets.GetTicket)
		public.GET("/tickets", rt.tickets.GetTickets)

		public.POST("/checkin", rt.checkins.Validate)
		public.GET("/checkins", rt.checkins.List)

		public.POST("/admin/login", rt.auth.Login)
	}

	protected := r.Group("/v1/admin")
	protected.Use(middleware.Misconfigured(rt.initErr), middleware.AdminAuth(rt.verifier))
	{
		protected.GET("/inscriptions", rt.admin.ListInscriptions)
		protected.POST("/inscriptions/approve", rt.admin.Approve)
		protected.POST("/inscriptions/delete", rt.admin.Delete)
		protected.POST("/qrcodes/regenerate", rt.admin.RegenerateQRCodes)
	}
}
