package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductCategory string

const (
	CategoryTShirt ProductCategory = "tshirt"
	CategoryBaggy  ProductCategory = "baggy"
	CategoryHoodie ProductCategory = "hoodie"
	CategoryJumper ProductCategory = "jumper"
)

// ProductCategories lists every printable garment in display order
var ProductCategories = []ProductCategory{
	CategoryTShirt,
	CategoryBaggy,
	CategoryHoodie,
	CategoryJumper,
}

// IsValid reports whether c is one of the printable garments
func (c ProductCategory) IsValid() bool {
	for _, known := range ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is the catalog row a design's garment is priced from
type Product struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Category  ProductCategory `gorm:"type:varchar(20);uniqueIndex;not null" json:"category"`
	Name      string          `gorm:"not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
