package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item (obat, alkes, suplemen).
// Stock is only decremented through the sale path; see service.StockLedger.
type Product struct {
	BaseModel
	PLU         *string `gorm:"type:varchar(50);index" json:"plu,omitempty"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description,omitempty"`

	PurchasePrice decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"purchase_price"`
	BuyPrice      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"buy_price"`
	SellPrice     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"sell_price"`
	Margin        *decimal.Decimal `gorm:"type:numeric(8,2)" json:"margin,omitempty"`

	Stock        int  `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	StockMinimal *int `json:"stock_minimal,omitempty"`
	StockMaximal *int `json:"stock_maximal,omitempty"`

	Unit             string   `gorm:"type:varchar(20)" json:"unit"`
	PurchaseUnitCode *string  `gorm:"type:varchar(20)" json:"purchase_unit_code,omitempty"`
	UnitConversion   *float64 `json:"unit_conversion,omitempty"`

	RackLocation   *string    `gorm:"type:varchar(50)" json:"rack_location,omitempty"`
	OnlineSKU      *string    `gorm:"type:varchar(100)" json:"online_sku,omitempty"`
	Barcode        *string    `gorm:"type:varchar(100);index" json:"barcode,omitempty"`
	BatchNumber    *string    `gorm:"type:varchar(100)" json:"batch_number,omitempty"`
	ExpirationDate *time.Time `gorm:"index" json:"expiration_date,omitempty"`
	ImageURL       *string    `gorm:"type:text" json:"image_url,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`

	// Relasi
	CategoryID uuid.UUID  `gorm:"type:uuid;not null;index" json:"category_id"`
	Category   *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SupplierID *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id,omitempty"`
	Supplier   *Supplier  `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
}
