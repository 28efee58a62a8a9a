package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentQRIS PaymentMethod = "QRIS"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentQRIS
}

// Sale is one completed checkout. It is written once, inside the commit
// transaction, and never updated afterwards.
type Sale struct {
	BaseModel
	TransactionNo string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"transaction_no"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_price"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(10);not null" json:"payment_method"`
	Notes         *string         `gorm:"type:text" json:"notes,omitempty"`

	CashierID uuid.UUID `gorm:"type:uuid;not null;index" json:"cashier_id"`
	Cashier   *User     `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`

	Items []SaleItem `gorm:"foreignKey:SaleID" json:"items"`
}

// SaleItem snapshots the unit price at sale time; later price edits on the
// product never reach it.
type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
}

// TotalOf sums the line subtotals.
func TotalOf(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

func (item *SaleItem) BeforeCreate(tx *gorm.DB) (err error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return
}
