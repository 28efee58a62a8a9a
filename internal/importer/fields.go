package importer

import "strings"

// Field is a canonical product attribute.
type Field string

const (
	FieldPLU              Field = "plu"
	FieldName             Field = "name"
	FieldDescription      Field = "description"
	FieldPurchasePrice    Field = "purchasePrice"
	FieldBuyPrice         Field = "buyPrice"
	FieldSellPrice        Field = "sellPrice"
	FieldMargin           Field = "margin"
	FieldStock            Field = "stock"
	FieldStockMinimal     Field = "stockMinimal"
	FieldStockMaximal     Field = "stockMaximal"
	FieldUnit             Field = "unit"
	FieldPurchaseUnitCode Field = "purchaseUnitCode"
	FieldUnitConversion   Field = "unitConversion"
	FieldStatus           Field = "status"
	FieldIsActive         Field = "isActive"
	FieldRackLocation     Field = "rackLocation"
	FieldOnlineSKU        Field = "onlineSku"
	FieldBarcode          Field = "barcode"
	FieldBatchNumber      Field = "batchNumber"
	FieldExpirationDate   Field = "expirationDate"
	FieldImageURL         Field = "imageUrl"
	FieldCategoryID       Field = "categoryId"
	FieldCategory         Field = "category"
	FieldSupplierID       Field = "supplierId"
	FieldSupplier         Field = "supplier"
)

// FieldSpec lists the accepted source columns for one field, in priority order.
type FieldSpec struct {
	Field   Field
	Aliases []string
}

// Fields is the complete set of accepted column spellings. The first alias
// present with a non-empty value wins.
var Fields = []FieldSpec{
	{FieldPLU, []string{"PLU", "plu", "Kode PLU"}},
	{FieldName, []string{"Item Name", "Name", "name", "Nama Barang", "nama"}},
	{FieldDescription, []string{"Description", "description", "Deskripsi"}},
	{FieldPurchasePrice, []string{"Purchase Price", "purchasePrice", "purchase_price", "Harga Beli"}},
	{FieldBuyPrice, []string{"Buy Price", "buyPrice", "buy_price"}},
	{FieldSellPrice, []string{"Sales Price", "sellPrice", "sell_price", "Harga Jual"}},
	{FieldMargin, []string{"Margin", "margin"}},
	{FieldStock, []string{"Stock", "stock", "Stok", "Qty"}},
	{FieldStockMinimal, []string{"Stock Minimal", "stockMinimal", "stock_minimal", "Min Stock"}},
	{FieldStockMaximal, []string{"Stock Maximal", "stockMaximal", "stock_maximal", "Max Stock"}},
	{FieldUnit, []string{"Unit Code", "unit", "unitCode", "unit_code", "Satuan"}},
	{FieldPurchaseUnitCode, []string{"Purchase Unit Code", "purchaseUnitCode", "purchase_unit_code"}},
	{FieldUnitConversion, []string{"Unit Conversion", "unitConversion", "unit_conversion"}},
	{FieldStatus, []string{"Status", "status"}},
	{FieldIsActive, []string{"isActive", "is_active", "Active"}},
	{FieldRackLocation, []string{"Rack Location", "rackLocation", "rack_location", "Lokasi Rak"}},
	{FieldOnlineSKU, []string{"Online SKU", "onlineSku", "online_sku"}},
	{FieldBarcode, []string{"Barcode", "barcode"}},
	{FieldBatchNumber, []string{"Batch Number", "batchNumber", "batch_number", "No Batch"}},
	{FieldExpirationDate, []string{"Expiration Date", "expirationDate", "expiration_date", "Expired Date", "ED"}},
	{FieldImageURL, []string{"Image URL", "imageUrl", "image_url"}},
	{FieldCategoryID, []string{"categoryId", "category_id"}},
	{FieldCategory, []string{"Category", "category", "Kategori"}},
	{FieldSupplierID, []string{"supplierId", "supplier_id"}},
	{FieldSupplier, []string{"Supplier", "supplier", "Pemasok"}},
}

var aliasIndex = func() map[Field][]string {
	idx := make(map[Field][]string, len(Fields))
	for _, spec := range Fields {
		idx[spec.Field] = spec.Aliases
	}
	return idx
}()

// Aliases returns the accepted column names for f.
func Aliases(f Field) []string {
	return aliasIndex[f]
}

// Row is one loosely typed spreadsheet or JSON record.
type Row map[string]any

// Lookup returns the first present, non-empty value among f's aliases.
func (r Row) Lookup(f Field) (any, bool) {
	for _, alias := range aliasIndex[f] {
		v, ok := r[alias]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}
