package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VoucherValidity is how long an issued voucher stays redeemable
const VoucherValidity = 30 * 24 * time.Hour

// VoucherOption is one entry of the fixed redemption catalog
type VoucherOption struct {
	PointsCost    int    `mapstructure:"pointsCost" json:"pointsCost"`
	MonetaryValue int    `mapstructure:"monetaryValue" json:"monetaryValue"`
	Label         string `mapstructure:"label" json:"label"`
}

// DefaultVoucherCatalog is used when no catalog is configured
var DefaultVoucherCatalog = []VoucherOption{
	{PointsCost: 100, MonetaryValue: 50, Label: "Bon d'achat de 50 Dh"},
	{PointsCost: 200, MonetaryValue: 120, Label: "Bon d'achat de 120 Dh"},
	{PointsCost: 500, MonetaryValue: 350, Label: "Bon d'achat de 350 Dh"},
}

// Voucher is a redeemable, expiring credit issued in exchange for points
type Voucher struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerEmail    string             `bson:"ownerEmail" json:"ownerEmail"`
	Code          string             `bson:"code" json:"code"`
	PointsCost    int                `bson:"pointsCost" json:"pointsCost"`
	MonetaryValue int                `bson:"monetaryValue" json:"monetaryValue"`
	Label         string             `bson:"label,omitempty" json:"label,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt     time.Time          `bson:"expiresAt" json:"expiresAt"`
	IsUsed        bool               `bson:"isUsed" json:"isUsed"`
	UsedAt        *time.Time         `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
	Expired       bool               `bson:"expired" json:"expired"`
}

// ActiveAt reports whether the voucher is unused and not yet expired at t
func (v *Voucher) ActiveAt(t time.Time) bool {
	return !v.IsUsed && t.Before(v.ExpiresAt)
}

// SameOffer reports whether the voucher was issued for the given catalog option
func (v *Voucher) SameOffer(opt VoucherOption) bool {
	return v.PointsCost == opt.PointsCost && v.MonetaryValue == opt.MonetaryValue
}
