package controllers

import (
	"net/http"

	"reservation-engine/services"
	"reservation-engine/utils"

	"github.com/gin-gonic/gin"
)

// PaymentController funnels both provider callback shapes (return URL and
// webhook) into the one verified confirm path.
type PaymentController struct {
	SettlementSvc *services.SettlementService
	BookingSvc    *services.BookingService
}

func NewPaymentController(settlementSvc *services.SettlementService, bookingSvc *services.BookingService) *PaymentController {
	return &PaymentController{SettlementSvc: settlementSvc, BookingSvc: bookingSvc}
}

type webhookPayload struct {
	BookingNumber     string `json:"booking_number" binding:"required"`
	ProviderReference string `json:"provider_reference" binding:"required"`
}

// HandleReturn lands the guest after a hosted payment page. The query
// parameters are untrusted; confirmation re-queries the provider.
func (pc *PaymentController) HandleReturn(c *gin.Context) {
	number := c.Query("booking_number")
	ref := c.Query("reference")
	if ref == "" {
		ref = c.Query("session_id")
	}
	if number == "" || ref == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing booking_number or reference")
		return
	}

	booking, err := pc.SettlementSvc.ConfirmPayment(c.Request.Context(), number, ref)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// HandleWebhook is the server-to-server double of HandleReturn. Both may
// fire for one payment; confirmation is idempotent.
func (pc *PaymentController) HandleWebhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid webhook payload: "+err.Error())
		return
	}

	booking, err := pc.SettlementSvc.ConfirmPayment(c.Request.Context(), payload.BookingNumber, payload.ProviderReference)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"booking_number": booking.BookingNumber, "status": booking.Status})
}
