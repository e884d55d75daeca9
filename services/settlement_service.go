package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"reservation-engine/models"
	"reservation-engine/payments"
	"reservation-engine/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const confirmDedupTTL = 15 * time.Minute

// SettlementService owns booking status transitions driven by payment
// outcomes: initiation, confirmation and the expiry sweep. Confirmation
// and the sweep use the same conditional-commit discipline as the
// allocator, so whichever transition commits first wins.
type SettlementService struct {
	DB      *gorm.DB
	Gateway *payments.Gateway
	// Optional duplicate-delivery suppressor (webhook and return-URL both
	// firing). Correctness never depends on it; nil disables it.
	Redis    *redis.Client
	Currency string
}

func NewSettlementService(db *gorm.DB, gateway *payments.Gateway, rdb *redis.Client) *SettlementService {
	return &SettlementService{
		DB:       db,
		Gateway:  gateway,
		Redis:    rdb,
		Currency: utils.EnvOrDefault("PAYMENT_CURRENCY", "THB"),
	}
}

// InitiatePayment opens a payment for a pending booking with the chosen
// provider and records the attempt. Returns the redirect URL or client
// token the guest-facing flow needs.
func (s *SettlementService) InitiatePayment(ctx context.Context, booking *models.Booking, providerName string) (*payments.InitiationData, error) {
	if booking.Status != models.StatusPendingPayment {
		return nil, transitionErr(booking.Status, models.StatusConfirmed)
	}
	if booking.HoldExpiresAt != nil && time.Now().UTC().After(*booking.HoldExpiresAt) {
		return nil, fmt.Errorf("%w: hold on %s has expired", ErrInvalidTransition, booking.BookingNumber)
	}

	provider, err := s.Gateway.Provider(providerName)
	if err != nil {
		return nil, err
	}

	merchantRef := uuid.NewString()
	returnBase := utils.EnvOrDefault("PAYMENT_RETURN_URL", "http://localhost:3000/payment/return")
	returnURL := fmt.Sprintf("%s?booking_number=%s", strings.TrimRight(returnBase, "/"), booking.BookingNumber)

	data, err := provider.Initiate(ctx, payments.InitiateRequest{
		BookingNumber: booking.BookingNumber,
		MerchantRef:   merchantRef,
		Amount:        booking.TotalPrice,
		Currency:      s.Currency,
		GuestEmail:    booking.GuestEmail,
		ReturnURL:     returnURL,
	})
	if err != nil {
		return nil, err
	}

	attempt := models.PaymentAttempt{
		BookingID:   booking.ID,
		Provider:    provider.Name(),
		ProviderRef: data.Reference,
		MerchantRef: merchantRef,
		Amount:      booking.TotalPrice,
		Status:      models.AttemptCreated,
	}
	if err := s.DB.Create(&attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment attempt: %w", err)
	}

	if err := s.DB.Model(booking).Updates(map[string]interface{}{
		"provider":     provider.Name(),
		"provider_ref": data.Reference,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to attach provider to booking: %w", err)
	}

	return data, nil
}

// ConfirmPayment settles pending_payment -> confirmed. The provider
// reference arrives from untrusted input (return URL or webhook), so the
// provider is always re-queried before any state change. Idempotent: a
// duplicate confirmation of an already-confirmed booking re-verifies the
// stored attempt and succeeds without side effects. A booking the sweep
// already expired rejects the late confirmation instead of resurrecting.
func (s *SettlementService) ConfirmPayment(ctx context.Context, bookingNumber, providerRef string) (*models.Booking, error) {
	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return nil, fmt.Errorf("%w: empty provider reference", ErrPaymentVerificationFailed)
	}

	booking, err := s.loadByNumber(bookingNumber)
	if err != nil {
		return nil, err
	}

	// Fast path for duplicate deliveries already settled: skip the
	// provider round-trip, the stored attempt is still re-checked.
	if s.dedupSeen(ctx, bookingNumber, providerRef) && isSettled(booking.Status) {
		if err := s.matchSucceededAttempt(booking.ID, providerRef); err != nil {
			return nil, err
		}
		return booking, nil
	}

	switch booking.Status {
	case models.StatusPendingPayment:
		// fall through to verification
	case models.StatusConfirmed, models.StatusCheckedIn, models.StatusCheckedOut:
		if err := s.matchSucceededAttempt(booking.ID, providerRef); err != nil {
			return nil, err
		}
		return booking, nil
	default:
		return nil, fmt.Errorf("%w: cannot confirm payment on %s booking %s",
			ErrInvalidTransition, booking.Status, booking.BookingNumber)
	}

	if booking.Provider == "" {
		return nil, fmt.Errorf("%w: no payment was initiated for %s", ErrPaymentVerificationFailed, booking.BookingNumber)
	}
	provider, err := s.Gateway.Provider(booking.Provider)
	if err != nil {
		return nil, err
	}

	verification, err := provider.Verify(ctx, providerRef)
	if err != nil {
		if errors.Is(err, payments.ErrUnknownReference) {
			return nil, fmt.Errorf("%w: provider has no record of reference", ErrPaymentVerificationFailed)
		}
		return nil, err
	}

	switch verification.Status {
	case payments.StatusPending:
		return nil, fmt.Errorf("%w: booking %s", ErrPaymentPending, booking.BookingNumber)
	case payments.StatusFailed:
		s.markAttemptFailed(booking.ID, providerRef, "provider reported failure")
		return nil, fmt.Errorf("%w: provider reported failure", ErrPaymentVerificationFailed)
	}

	if math.Abs(verification.Amount-booking.TotalPrice) > 0.005 {
		s.markAttemptFailed(booking.ID, providerRef, "amount mismatch")
		return nil, fmt.Errorf("%w: amount mismatch (charged %.2f, booking total %.2f)",
			ErrPaymentVerificationFailed, verification.Amount, booking.TotalPrice)
	}

	transitioned := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Booking
		if err := forUpdate(tx).First(&locked, booking.ID).Error; err != nil {
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		switch locked.Status {
		case models.StatusPendingPayment:
			// proceed
		case models.StatusConfirmed, models.StatusCheckedIn, models.StatusCheckedOut:
			// a concurrent confirm won; just re-verify the attempt
			return s.matchSucceededAttemptTx(tx, locked.ID, providerRef)
		default:
			return fmt.Errorf("%w: cannot confirm payment on %s booking %s",
				ErrInvalidTransition, locked.Status, locked.BookingNumber)
		}

		attempt, err := s.attemptForRef(tx, locked.ID, providerRef)
		if err != nil {
			return err
		}

		// at most one succeeded attempt per booking
		var succeeded int64
		if err := tx.Model(&models.PaymentAttempt{}).
			Where("booking_id = ? AND status = ? AND id <> ?", locked.ID, models.AttemptSucceeded, attempt.ID).
			Count(&succeeded).Error; err != nil {
			return fmt.Errorf("failed to check prior attempts: %w", err)
		}
		if succeeded > 0 {
			return fmt.Errorf("%w: another attempt already succeeded for %s",
				ErrPaymentVerificationFailed, locked.BookingNumber)
		}

		if err := tx.Model(attempt).Updates(map[string]interface{}{
			"status":       models.AttemptSucceeded,
			"provider_ref": providerRef,
			"fail_reason":  "",
		}).Error; err != nil {
			return fmt.Errorf("failed to settle payment attempt: %w", err)
		}

		if err := tx.Model(&locked).Updates(map[string]interface{}{
			"status":       models.StatusConfirmed,
			"provider_ref": providerRef,
		}).Error; err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}

		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		// Confirmation email, accounting etc. are fired by external
		// collaborators off this transition; it must happen exactly once.
		log.Printf("✅ booking %s confirmed (provider %s, tx %s)",
			booking.BookingNumber, booking.Provider, verification.ProviderTx)
	}
	s.markDedup(ctx, bookingNumber, providerRef)

	return s.loadByNumber(bookingNumber)
}

// attemptForRef finds the attempt this confirmation belongs to, strictly by
// provider reference. Both provider variants record the reference at
// initiation, so a reference recorded against a different booking (or never
// recorded at all) must not settle this one, even if the provider says it
// is paid for the same amount.
func (s *SettlementService) attemptForRef(tx *gorm.DB, bookingID uint, providerRef string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := tx.
		Where("booking_id = ? AND provider_ref = ?", bookingID, providerRef).
		Order("id DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reference does not belong to this booking", ErrPaymentVerificationFailed)
		}
		return nil, fmt.Errorf("failed to look up payment attempt: %w", err)
	}
	return &attempt, nil
}

func (s *SettlementService) matchSucceededAttempt(bookingID uint, providerRef string) error {
	return s.matchSucceededAttemptTx(s.DB, bookingID, providerRef)
}

func (s *SettlementService) matchSucceededAttemptTx(tx *gorm.DB, bookingID uint, providerRef string) error {
	var attempt models.PaymentAttempt
	err := tx.
		Where("booking_id = ? AND status = ?", bookingID, models.AttemptSucceeded).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: booking is settled but no attempt succeeded", ErrPaymentVerificationFailed)
		}
		return fmt.Errorf("failed to load settled attempt: %w", err)
	}
	if attempt.ProviderRef != providerRef {
		return fmt.Errorf("%w: reference does not match the settled payment", ErrPaymentVerificationFailed)
	}
	return nil
}

func (s *SettlementService) markAttemptFailed(bookingID uint, providerRef, reason string) {
	res := s.DB.Model(&models.PaymentAttempt{}).
		Where("booking_id = ? AND provider_ref = ? AND status = ?", bookingID, providerRef, models.AttemptCreated).
		Updates(map[string]interface{}{"status": models.AttemptFailed, "fail_reason": reason})
	if res.Error != nil {
		log.Printf("warning: failed to mark attempt failed for booking %d: %v", bookingID, res.Error)
	}
}

// SweepExpiredHolds releases rooms held by unpaid bookings past expiry.
// Safe to run concurrently with itself and with confirmation attempts:
// every transition re-checks under the row lock.
func (s *SettlementService) SweepExpiredHolds(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	var ids []uint
	if err := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at < ?", models.StatusPendingPayment, now).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to scan expired holds: %w", err)
	}

	expired := 0
	for _, id := range ids {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var locked models.Booking
			if err := forUpdate(tx).First(&locked, id).Error; err != nil {
				return err
			}
			if locked.Status != models.StatusPendingPayment {
				return nil // confirm or cancel won the race
			}
			if locked.HoldExpiresAt == nil || locked.HoldExpiresAt.After(now) {
				return nil
			}

			var succeeded int64
			if err := tx.Model(&models.PaymentAttempt{}).
				Where("booking_id = ? AND status = ?", locked.ID, models.AttemptSucceeded).
				Count(&succeeded).Error; err != nil {
				return err
			}
			if succeeded > 0 {
				// payment landed; leave it for the confirm path
				return nil
			}

			if err := tx.Model(&locked).Update("status", models.StatusExpired).Error; err != nil {
				return err
			}
			expired++
			log.Printf("booking %s expired, room released", locked.BookingNumber)
			return nil
		})
		if err != nil {
			log.Printf("warning: expiry sweep failed for booking %d: %v", id, err)
		}
	}

	return expired, nil
}

// StartExpirySweep runs SweepExpiredHolds on a ticker until ctx is done.
func (s *SettlementService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.SweepExpiredHolds(ctx); err != nil {
					log.Printf("warning: expiry sweep: %v", err)
				} else if n > 0 {
					log.Printf("expiry sweep released %d hold(s)", n)
				}
			}
		}
	}()
}

func (s *SettlementService) loadByNumber(number string) (*models.Booking, error) {
	var booking models.Booking
	err := s.DB.
		Preload("RoomType").
		Preload("Room").
		Where("booking_number = ?", strings.TrimSpace(number)).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to retrieve booking: %w", err)
	}
	return &booking, nil
}

func isSettled(status string) bool {
	switch status {
	case models.StatusConfirmed, models.StatusCheckedIn, models.StatusCheckedOut:
		return true
	}
	return false
}

func (s *SettlementService) dedupKey(number, ref string) string {
	return "confirm:" + number + ":" + ref
}

func (s *SettlementService) dedupSeen(ctx context.Context, number, ref string) bool {
	if s.Redis == nil {
		return false
	}
	val, err := s.Redis.Get(ctx, s.dedupKey(number, ref)).Result()
	return err == nil && val == "1"
}

func (s *SettlementService) markDedup(ctx context.Context, number, ref string) {
	if s.Redis == nil {
		return
	}
	s.Redis.Set(ctx, s.dedupKey(number, ref), "1", confirmDedupTTL)
}
