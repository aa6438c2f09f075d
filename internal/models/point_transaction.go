package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointTransactionKind tells whether points were earned or spent
type PointTransactionKind string

const (
	PointCredit PointTransactionKind = "CREDIT"
	PointDebit  PointTransactionKind = "DEBIT"
)

// PointTransaction records a change to a user's point balance.
// Credits link to the completed collection, debits to the issued voucher.
type PointTransaction struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	UserEmail    string               `bson:"userEmail" json:"userEmail"`
	Kind         PointTransactionKind `bson:"kind" json:"kind"`
	Points       int                  `bson:"points" json:"points"`
	CollectionID *primitive.ObjectID  `bson:"collectionId,omitempty" json:"collectionId,omitempty"`
	VoucherID    *primitive.ObjectID  `bson:"voucherId,omitempty" json:"voucherId,omitempty"`
	BalanceAfter int                  `bson:"balanceAfter" json:"balanceAfter"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
}
