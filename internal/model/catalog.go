package model

// Category groups products (Obat Bebas, Obat Keras, ...). Names are unique
// ignoring case.
type Category struct {
	BaseModel
	Name        string  `gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_name_ci,expression:LOWER(name)" json:"name" validate:"required,min=2"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
}

// Supplier is the optional source of a product. Names are unique ignoring case.
type Supplier struct {
	BaseModel
	Name    string  `gorm:"type:varchar(150);not null;uniqueIndex:idx_suppliers_name_ci,expression:LOWER(name)" json:"name" validate:"required,min=2"`
	Phone   string  `gorm:"type:varchar(30);not null" json:"phone" validate:"required,min=5"`
	Address string  `gorm:"type:text;not null" json:"address" validate:"required,min=5"`
	Email   *string `gorm:"type:varchar(255)" json:"email,omitempty" validate:"omitempty,email"`
}

// CatalogKind selects which named entity the identity resolver works on.
type CatalogKind string

const (
	KindCategory CatalogKind = "category"
	KindSupplier CatalogKind = "supplier"
)
