package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"reservation-engine/models"
	"reservation-engine/payments"

	"gorm.io/gorm"
)

// fakeProvider is an in-memory payments.Provider double.
type fakeProvider struct {
	name          string
	nextReference string
	verifications map[string]*payments.Verification
	verifyErr     error
	verifyCalls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Initiate(_ context.Context, req payments.InitiateRequest) (*payments.InitiationData, error) {
	return &payments.InitiationData{
		Provider:    f.name,
		Reference:   f.nextReference,
		RedirectURL: "https://pay.example.com/s/" + f.nextReference,
	}, nil
}

func (f *fakeProvider) Verify(_ context.Context, ref string) (*payments.Verification, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	v, ok := f.verifications[ref]
	if !ok {
		return nil, payments.ErrUnknownReference
	}
	return v, nil
}

// settleFixture allocates a pending booking and initiates payment with a
// fake provider whose session will verify as paid for the booking total.
func settleFixture(t *testing.T, db *gorm.DB) (*SettlementService, *BookingService, *models.Booking, *fakeProvider) {
	t.Helper()

	rt := seedRoomType(t, db, "Deluxe", 2500, 4, "101")
	bookingSvc := newBookingService(db)

	in, out := stay(30, 2)
	booking, err := bookingSvc.Allocate(AllocateInput{
		RoomTypeID: rt.ID, CheckIn: in, CheckOut: out,
		GuestName: "G", GuestEmail: "g@example.com", GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	provider := &fakeProvider{
		name:          "sessionpay",
		nextReference: "sess_valid",
		verifications: map[string]*payments.Verification{
			"sess_valid": {Status: payments.StatusSucceeded, Amount: booking.TotalPrice, ProviderTx: "tx_1"},
		},
	}
	settlement := NewSettlementService(db, payments.NewGateway(provider), nil)

	if _, err := settlement.InitiatePayment(context.Background(), booking, "sessionpay"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return settlement, bookingSvc, booking, provider
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	settlement, _, booking, provider := settleFixture(t, db)
	ctx := context.Background()

	first, err := settlement.ConfirmPayment(ctx, booking.BookingNumber, "sess_valid")
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if first.Status != models.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", first.Status)
	}

	// webhook and return-URL both firing
	second, err := settlement.ConfirmPayment(ctx, booking.BookingNumber, "sess_valid")
	if err != nil {
		t.Fatalf("duplicate confirm: %v", err)
	}
	if second.Status != models.StatusConfirmed {
		t.Fatalf("duplicate status = %s, want confirmed", second.Status)
	}

	var succeeded int64
	db.Model(&models.PaymentAttempt{}).
		Where("booking_id = ? AND status = ?", booking.ID, models.AttemptSucceeded).
		Count(&succeeded)
	if succeeded != 1 {
		t.Fatalf("%d succeeded attempts, want exactly 1", succeeded)
	}
	if second.TotalPrice != booking.TotalPrice {
		t.Errorf("total changed across confirms: %v -> %v", booking.TotalPrice, second.TotalPrice)
	}
	_ = provider
}

func TestConfirmPaymentRejectsForgedReference(t *testing.T) {
	db := newTestDB(t)
	settlement, bookingSvc, booking, _ := settleFixture(t, db)

	_, err := settlement.ConfirmPayment(context.Background(), booking.BookingNumber, "sess_forged")
	if !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("err = %v, want ErrPaymentVerificationFailed", err)
	}

	current, err := bookingSvc.GetByNumber(booking.BookingNumber)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if current.Status != models.StatusPendingPayment {
		t.Fatalf("status = %s, want pending_payment (room stays held until expiry)", current.Status)
	}
}

func TestConfirmPaymentRejectsReferenceFromAnotherBooking(t *testing.T) {
	db := newTestDB(t)
	rt := seedRoomType(t, db, "Deluxe", 2500, 4, "101", "102")
	bookingSvc := newBookingService(db)
	ctx := context.Background()

	in, out := stay(30, 2)
	allocate := func(email string) *models.Booking {
		b, err := bookingSvc.Allocate(AllocateInput{
			RoomTypeID: rt.ID, CheckIn: in, CheckOut: out,
			GuestName: "G", GuestEmail: email, GuestCount: 2,
		})
		if err != nil {
			t.Fatalf("allocate %s: %v", email, err)
		}
		return b
	}
	paid := allocate("paid@example.com")
	unpaid := allocate("unpaid@example.com")

	provider := &fakeProvider{name: "sessionpay", verifications: map[string]*payments.Verification{}}
	settlement := NewSettlementService(db, payments.NewGateway(provider), nil)

	provider.nextReference = "sess_paid"
	if _, err := settlement.InitiatePayment(ctx, paid, "sessionpay"); err != nil {
		t.Fatalf("initiate paid: %v", err)
	}
	provider.nextReference = "sess_unpaid"
	if _, err := settlement.InitiatePayment(ctx, unpaid, "sessionpay"); err != nil {
		t.Fatalf("initiate unpaid: %v", err)
	}

	// one payment lands; both bookings carry the same total
	provider.verifications["sess_paid"] = &payments.Verification{
		Status: payments.StatusSucceeded, Amount: paid.TotalPrice, ProviderTx: "tx_paid",
	}

	// replaying the paid reference against the other booking must not settle it
	_, err := settlement.ConfirmPayment(ctx, unpaid.BookingNumber, "sess_paid")
	if !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("replay err = %v, want ErrPaymentVerificationFailed", err)
	}
	current, _ := bookingSvc.GetByNumber(unpaid.BookingNumber)
	if current.Status != models.StatusPendingPayment {
		t.Fatalf("replayed booking status = %s, want pending_payment", current.Status)
	}
	var settled int64
	db.Model(&models.PaymentAttempt{}).
		Where("booking_id = ? AND status = ?", unpaid.ID, models.AttemptSucceeded).
		Count(&settled)
	if settled != 0 {
		t.Fatalf("%d succeeded attempts on replayed booking, want 0", settled)
	}

	// the reference still settles the booking it was issued for
	confirmed, err := settlement.ConfirmPayment(ctx, paid.BookingNumber, "sess_paid")
	if err != nil {
		t.Fatalf("confirm owner: %v", err)
	}
	if confirmed.Status != models.StatusConfirmed {
		t.Fatalf("owner status = %s, want confirmed", confirmed.Status)
	}
}

func TestConfirmPaymentRejectsAmountMismatch(t *testing.T) {
	db := newTestDB(t)
	settlement, bookingSvc, booking, provider := settleFixture(t, db)

	provider.verifications["sess_short"] = &payments.Verification{
		Status: payments.StatusSucceeded, Amount: booking.TotalPrice - 100, ProviderTx: "tx_short",
	}

	_, err := settlement.ConfirmPayment(context.Background(), booking.BookingNumber, "sess_short")
	if !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("err = %v, want ErrPaymentVerificationFailed", err)
	}

	current, _ := bookingSvc.GetByNumber(booking.BookingNumber)
	if current.Status != models.StatusPendingPayment {
		t.Fatalf("status = %s, want pending_payment", current.Status)
	}
}

func TestConfirmPaymentReportsPending(t *testing.T) {
	db := newTestDB(t)
	settlement, _, booking, provider := settleFixture(t, db)

	provider.verifications["sess_valid"].Status = payments.StatusPending

	_, err := settlement.ConfirmPayment(context.Background(), booking.BookingNumber, "sess_valid")
	if !errors.Is(err, ErrPaymentPending) {
		t.Fatalf("err = %v, want ErrPaymentPending", err)
	}
}

func TestConfirmPaymentAlwaysReQueriesProvider(t *testing.T) {
	db := newTestDB(t)
	settlement, _, booking, provider := settleFixture(t, db)

	if _, err := settlement.ConfirmPayment(context.Background(), booking.BookingNumber, "sess_valid"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if provider.verifyCalls == 0 {
		t.Fatal("confirm must re-query the provider, not trust the caller")
	}
}

func TestExpiryReleasesRoomAndRejectsLateConfirm(t *testing.T) {
	db := newTestDB(t)
	settlement, bookingSvc, booking, _ := settleFixture(t, db)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	if err := db.Model(&models.Booking{}).Where("id = ?", booking.ID).
		Update("hold_expires_at", past).Error; err != nil {
		t.Fatalf("backdate hold: %v", err)
	}

	n, err := settlement.SweepExpiredHolds(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("sweep expired %d, want 1", n)
	}

	current, _ := bookingSvc.GetByNumber(booking.BookingNumber)
	if current.Status != models.StatusExpired {
		t.Fatalf("status = %s, want expired", current.Status)
	}

	// the room is allocatable again for the same interval
	in, out := stay(30, 2)
	again, err := bookingSvc.Allocate(AllocateInput{
		RoomTypeID: booking.RoomTypeID, CheckIn: in, CheckOut: out,
		GuestName: "H", GuestEmail: "h@example.com", GuestCount: 1,
	})
	if err != nil {
		t.Fatalf("allocate after expiry: %v", err)
	}
	if again.Room == nil || again.Room.RoomNumber != "101" {
		t.Error("expired booking should release room 101")
	}

	// a late confirmation must not resurrect the expired booking
	_, err = settlement.ConfirmPayment(ctx, booking.BookingNumber, "sess_valid")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("late confirm err = %v, want ErrInvalidTransition", err)
	}
}

func TestSweepSkipsPaidHolds(t *testing.T) {
	db := newTestDB(t)
	settlement, _, booking, _ := settleFixture(t, db)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	if err := db.Model(&models.Booking{}).Where("id = ?", booking.ID).
		Update("hold_expires_at", past).Error; err != nil {
		t.Fatalf("backdate hold: %v", err)
	}
	// a successful attempt landed but confirmation has not run yet
	if err := db.Model(&models.PaymentAttempt{}).
		Where("booking_id = ?", booking.ID).
		Update("status", models.AttemptSucceeded).Error; err != nil {
		t.Fatalf("force attempt: %v", err)
	}

	n, err := settlement.SweepExpiredHolds(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("sweep expired %d, want 0 (paid hold left for confirm)", n)
	}
}

func TestPriceImmutableAfterRateChange(t *testing.T) {
	db := newTestDB(t)
	settlement, bookingSvc, booking, _ := settleFixture(t, db)

	originalTotal := booking.TotalPrice
	if err := db.Model(&models.RoomType{}).Where("id = ?", booking.RoomTypeID).
		Update("nightly_rate", 9999).Error; err != nil {
		t.Fatalf("change rate: %v", err)
	}

	confirmed, err := settlement.ConfirmPayment(context.Background(), booking.BookingNumber, "sess_valid")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.TotalPrice != originalTotal {
		t.Fatalf("total = %v, want frozen %v", confirmed.TotalPrice, originalTotal)
	}

	current, _ := bookingSvc.GetByNumber(booking.BookingNumber)
	if current.TotalPrice != originalTotal {
		t.Fatalf("persisted total = %v, want %v", current.TotalPrice, originalTotal)
	}
}
