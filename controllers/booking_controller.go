// controllers/booking_controller.go
package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"reservation-engine/models"
	"reservation-engine/payments"
	"reservation-engine/services"
	"reservation-engine/utils"

	"github.com/gin-gonic/gin"
)

// ---------------------------
// Payload / DTOs
// ---------------------------

type QuoteRequest struct {
	RoomTypeID uint   `json:"room_type_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	PromoCode  string `json:"promo_code,omitempty"`
}

type CreateBookingRequest struct {
	RoomTypeID      uint   `json:"room_type_id" binding:"required"`
	CheckIn         string `json:"check_in" binding:"required"`
	CheckOut        string `json:"check_out" binding:"required"`
	GuestName       string `json:"guest_name" binding:"required"`
	GuestEmail      string `json:"guest_email" binding:"required,email"`
	GuestCount      int    `json:"guest_count"`
	SpecialRequests string `json:"special_requests,omitempty"`
	PromoCode       string `json:"promo_code,omitempty"`
	// which configured payment provider to open the payment with
	Provider string `json:"provider" binding:"required"`

	AccompanyingGuests []map[string]interface{} `json:"accompanying_guests,omitempty"`
}

type ConfirmPaymentRequest struct {
	// session id or charge id, depending on the provider variant
	ProviderReference string `json:"provider_reference" binding:"required"`
}

type PayRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// ---------------------------
// Controller
// ---------------------------

type BookingController struct {
	BookingSvc    *services.BookingService
	SettlementSvc *services.SettlementService
	PricingSvc    *services.PricingService
}

func NewBookingController(bookingSvc *services.BookingService, settlementSvc *services.SettlementService, pricingSvc *services.PricingService) *BookingController {
	return &BookingController{
		BookingSvc:    bookingSvc,
		SettlementSvc: settlementSvc,
		PricingSvc:    pricingSvc,
	}
}

func parseStayDate(raw string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	return t, err == nil
}

// Quote prices a stay without touching inventory.
func (bc *BookingController) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	checkIn, ok := parseStayDate(req.CheckIn)
	if !ok {
		utils.JSONError(c, http.StatusBadRequest, "check_in must be YYYY-MM-DD")
		return
	}
	checkOut, ok := parseStayDate(req.CheckOut)
	if !ok {
		utils.JSONError(c, http.StatusBadRequest, "check_out must be YYYY-MM-DD")
		return
	}

	quote, err := bc.PricingSvc.Quote(req.RoomTypeID, checkIn, checkOut, req.PromoCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, quote)
}

// CreateBooking allocates a room, freezes the quoted price and opens the
// payment with the chosen provider.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	checkIn, ok := parseStayDate(req.CheckIn)
	if !ok {
		utils.JSONError(c, http.StatusBadRequest, "check_in must be YYYY-MM-DD")
		return
	}
	checkOut, ok := parseStayDate(req.CheckOut)
	if !ok {
		utils.JSONError(c, http.StatusBadRequest, "check_out must be YYYY-MM-DD")
		return
	}

	booking, err := bc.BookingSvc.Allocate(services.AllocateInput{
		RoomTypeID:         req.RoomTypeID,
		CheckIn:            checkIn,
		CheckOut:           checkOut,
		GuestName:          req.GuestName,
		GuestEmail:         req.GuestEmail,
		GuestCount:         req.GuestCount,
		SpecialRequests:    req.SpecialRequests,
		AccompanyingGuests: req.AccompanyingGuests,
		PromoCode:          req.PromoCode,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	payment, err := bc.SettlementSvc.InitiatePayment(c.Request.Context(), booking, req.Provider)
	if err != nil {
		// the hold stays; the guest can retry via POST /:number/pay until it expires
		log.Printf("warning: payment initiation failed for %s: %v", booking.BookingNumber, err)
		respondServiceError(c, err)
		return
	}

	utils.JSONSuccess(c, http.StatusCreated, gin.H{
		"booking": booking,
		"payment": payment,
	})
}

// Pay re-opens payment for a pending booking: the guest abandoned the
// provider session, or the initiation during create failed. The hold
// keeps its original expiry.
func (bc *BookingController) Pay(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	booking, err := bc.BookingSvc.GetByNumber(c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	payment, err := bc.SettlementSvc.InitiatePayment(c.Request.Context(), booking, req.Provider)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"booking": booking,
		"payment": payment,
	})
}

// ConfirmPayment settles a booking from a provider reference. The
// reference is untrusted input; the settlement service re-verifies it.
func (bc *BookingController) ConfirmPayment(c *gin.Context) {
	number := c.Param("number")

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	booking, err := bc.SettlementSvc.ConfirmPayment(c.Request.Context(), number, req.ProviderReference)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// GetBooking is the public lookup by booking number.
func (bc *BookingController) GetBooking(c *gin.Context) {
	booking, err := bc.BookingSvc.GetByNumber(c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (bc *BookingController) CheckIn(c *gin.Context) {
	booking, err := bc.BookingSvc.CheckIn(c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (bc *BookingController) CheckOut(c *gin.Context) {
	booking, err := bc.BookingSvc.CheckOut(c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (bc *BookingController) Cancel(c *gin.Context) {
	booking, err := bc.BookingSvc.Cancel(c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// ---------------------------
// Error mapping
// ---------------------------

// respondServiceError maps engine errors onto HTTP responses. Payment
// failures deliberately render a generic message: provider internals never
// reach the guest.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrRoomTypeNotFound):
		utils.JSONError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrTooManyGuests):
		utils.JSONError(c, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, payments.ErrUnknownProvider):
		utils.JSONError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrNoAvailability):
		utils.JSONError(c, http.StatusConflict, "no rooms available for the requested dates")

	case errors.Is(err, services.ErrInvalidTransition):
		utils.JSONError(c, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrPaymentPending):
		c.JSON(http.StatusAccepted, gin.H{
			"success": false,
			"status":  models.StatusPendingPayment,
			"error":   "payment not completed yet, please try again",
		})

	case errors.Is(err, services.ErrPaymentVerificationFailed):
		log.Printf("payment verification failed: %v", err)
		utils.JSONError(c, http.StatusPaymentRequired, "payment not completed, please try again")

	case errors.Is(err, services.ErrProviderUnavailable):
		log.Printf("payment provider unavailable: %v", err)
		utils.JSONError(c, http.StatusServiceUnavailable, "payment not completed, please try again")

	default:
		log.Printf("internal error: %v", err)
		utils.JSONError(c, http.StatusInternalServerError, "internal error")
	}
}
