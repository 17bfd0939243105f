package handlers

import (
	"net/http"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/services"
	"github.com/gin-gonic/gin"
)

type ValidateCouponRequest struct {
	CouponCode string `json:"couponCode" binding:"required"`
}

type CouponHandler struct {
	checkout *services.CheckoutService
}

func NewCouponHandler(checkout *services.CheckoutService) *CouponHandler {
	return &CouponHandler{checkout: checkout}
}

func (h *CouponHandler) Validate(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithAppError(c, helpers.BindingError(err))
		return
	}

	coupon, err := h.checkout.ValidateCoupon(c.Request.Context(), req.CouponCode)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":  coupon.Code,
		"type":  coupon.Type,
		"value": coupon.Value,
	})
}
