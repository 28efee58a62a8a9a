package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultUnit = "pcs"

// ProductInput is the canonical product-creation payload. Category and
// supplier are still free text here; the service resolves them.
type ProductInput struct {
	PLU         *string
	Name        string `validate:"required"`
	Description *string

	PurchasePrice decimal.Decimal
	BuyPrice      decimal.Decimal
	SellPrice     decimal.Decimal
	Margin        *decimal.Decimal

	Stock        int `validate:"gte=0"`
	StockMinimal *int
	StockMaximal *int

	Unit             string
	PurchaseUnitCode *string
	UnitConversion   *float64

	RackLocation   *string
	OnlineSKU      *string
	Barcode        *string
	BatchNumber    *string
	ExpirationDate *time.Time
	ImageURL       *string
	IsActive       bool

	CategoryID   *uuid.UUID
	CategoryName string
	SupplierID   *uuid.UUID
	SupplierName string

	// set by Normalize so ApplyPriceFallback can tell "absent" from "0"
	hasPurchase bool
	hasBuy      bool
}

// Normalize maps one raw row onto a ProductInput. It never fails: malformed
// numeric cells degrade to zero (or nil for optional fields) so the row can
// still be imported.
func Normalize(row Row) ProductInput {
	in := ProductInput{
		PLU:              stringField(row, FieldPLU),
		Name:             deref(stringField(row, FieldName)),
		Description:      stringField(row, FieldDescription),
		Stock:            intField(row, FieldStock),
		StockMinimal:     optionalIntField(row, FieldStockMinimal),
		StockMaximal:     optionalIntField(row, FieldStockMaximal),
		Unit:             deref(stringField(row, FieldUnit)),
		PurchaseUnitCode: stringField(row, FieldPurchaseUnitCode),
		UnitConversion:   optionalFloatField(row, FieldUnitConversion),
		RackLocation:     stringField(row, FieldRackLocation),
		OnlineSKU:        stringField(row, FieldOnlineSKU),
		Barcode:          stringField(row, FieldBarcode),
		BatchNumber:      stringField(row, FieldBatchNumber),
		ExpirationDate:   dateField(row, FieldExpirationDate),
		ImageURL:         stringField(row, FieldImageURL),
		IsActive:         activeField(row),
		CategoryID:       uuidField(row, FieldCategoryID),
		CategoryName:     deref(stringField(row, FieldCategory)),
		SupplierID:       uuidField(row, FieldSupplierID),
		SupplierName:     deref(stringField(row, FieldSupplier)),
	}
	if in.Unit == "" {
		in.Unit = defaultUnit
	}

	in.SellPrice, _ = decimalField(row, FieldSellPrice)
	in.PurchasePrice, in.hasPurchase = decimalField(row, FieldPurchasePrice)
	in.BuyPrice, in.hasBuy = decimalField(row, FieldBuyPrice)
	if m, ok := decimalField(row, FieldMargin); ok {
		in.Margin = &m
	}

	ApplyPriceFallback(&in)
	return in
}

// ApplyPriceFallback mirrors purchase and buy price when only one of them was
// supplied. Both the single-create path and bulk import go through here.
func ApplyPriceFallback(in *ProductInput) {
	hasPurchase := in.hasPurchase || !in.PurchasePrice.IsZero()
	hasBuy := in.hasBuy || !in.BuyPrice.IsZero()
	switch {
	case hasPurchase && !hasBuy:
		in.BuyPrice = in.PurchasePrice
	case hasBuy && !hasPurchase:
		in.PurchasePrice = in.BuyPrice
	}
}

func stringField(row Row, f Field) *string {
	v, ok := row.Lookup(f)
	if !ok {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		// spreadsheet readers hand back numeric PLU/barcode cells as floats
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = strings.TrimSpace(fmt.Sprint(t))
	}
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intField(row Row, f Field) int {
	v, ok := row.Lookup(f)
	if !ok {
		return 0
	}
	n, ok := toInt(v)
	if !ok {
		return 0
	}
	return n
}

func optionalIntField(row Row, f Field) *int {
	v, ok := row.Lookup(f)
	if !ok {
		return nil
	}
	n, ok := toInt(v)
	if !ok {
		return nil
	}
	return &n
}

func toInt(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			f = float64(n)
			break
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func optionalFloatField(row Row, f Field) *float64 {
	v, ok := row.Lookup(f)
	if !ok {
		return nil
	}
	var out float64
	switch t := v.(type) {
	case float64:
		out = t
	case int:
		out = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		out = parsed
	default:
		return nil
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return nil
	}
	return &out
}

// decimalField reports ok only when the cell held a usable, non-negative amount.
func decimalField(row Row, f Field) (decimal.Decimal, bool) {
	v, ok := row.Lookup(f)
	if !ok {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case decimal.Decimal:
		d = t
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "Rp")
		s = strings.TrimPrefix(s, "IDR")
		parsed, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	default:
		return decimal.Zero, false
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func uuidField(row Row, f Field) *uuid.UUID {
	s := stringField(row, f)
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}

// activeField only yields false on an explicit boolean. Status text
// ("active", "Aktif" or anything else) keeps the product active.
func activeField(row Row) bool {
	if v, ok := row.Lookup(FieldIsActive); ok {
		if b, ok := toBool(v); ok {
			return b
		}
	}
	if v, ok := row.Lookup(FieldStatus); ok {
		if b, isBool := v.(bool); isBool {
			return b
		}
	}
	return true
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
}

// excel stores dates as days since 1899-12-30
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func dateField(row Row, f Field) *time.Time {
	v, ok := row.Lookup(f)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		return &t
	case float64:
		if t <= 0 || t > 2958465 || math.IsNaN(t) {
			return nil
		}
		d := excelEpoch.AddDate(0, 0, int(t))
		return &d
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return &d
			}
		}
	}
	return nil
}
