package models

import (
	"time"

	"gorm.io/gorm"
)

// PromoCode backs the promo lookup consumed by the pricing engine.
// Exactly one of PercentOff / AmountOff should be non-zero.
type PromoCode struct {
	gorm.Model

	Code       string  `gorm:"column:code;size:64;uniqueIndex" json:"code"`
	PercentOff float64 `gorm:"column:percent_off" json:"percentOff"`
	AmountOff  float64 `gorm:"column:amount_off;type:decimal(10,2)" json:"amountOff"`

	ValidFrom    *time.Time `gorm:"column:valid_from" json:"validFrom,omitempty"`
	ValidThrough *time.Time `gorm:"column:valid_through" json:"validThrough,omitempty"`
	Active       bool       `gorm:"default:true" json:"active"`
}
