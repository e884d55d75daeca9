package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"regexp"
	"strings"
	"time"
)

// Alphabet excludes 0/O and 1/I so numbers survive being read over the phone.
const bookingNumberCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const bookingNumberPrefix = "BK"

func EnvOrDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// RandomCode สร้าง code (A-Z2-9) เช่น "AB4D"
// crypto/rand + rand.Int (math/big) เพื่อลด modulo bias
func RandomCode(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid length")
	}
	var sb strings.Builder
	alphaLen := big.NewInt(int64(len(bookingNumberCharset)))
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, alphaLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(bookingNumberCharset[num.Int64()])
	}
	return sb.String(), nil
}

// GenerateBookingNumber → "BK20260301AB4D". Uniqueness is enforced by the
// unique index on bookings.booking_number; callers regenerate on collision.
func GenerateBookingNumber(now time.Time) (string, error) {
	suffix, err := RandomCode(4)
	if err != nil {
		return "", err
	}
	return bookingNumberPrefix + now.UTC().Format("20060102") + suffix, nil
}

var bookingNumberRe = regexp.MustCompile(`^BK[0-9]{8}[A-Z2-9]{4}$`)

// IsValidBookingNumberFormat is a cheap pre-filter for lookup input; the
// format itself carries no meaning beyond uniqueness.
func IsValidBookingNumberFormat(number string) bool {
	return bookingNumberRe.MatchString(strings.TrimSpace(number))
}

// PtrTime returns pointer to time.Time
func PtrTime(t time.Time) *time.Time { return &t }
