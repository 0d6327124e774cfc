package model

import "time"

const ProductCategoryClothing = "clothing"

type ProductImage struct {
	PublicID string `json:"public_id" bson:"public_id" validate:"required"`
	URL      string `json:"url" bson:"url" validate:"required,url"`
}

// Product price fields are in minor units. Sizes are mandatory for clothing,
// enforced by the product validator rather than a struct tag.
type Product struct {
	ID            string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name          string         `json:"name" bson:"name" validate:"required,max=100"`
	Description   string         `json:"description" bson:"description" validate:"required,max=2000"`
	Price         int64          `json:"price" bson:"price" validate:"required,min=0"`
	DiscountPrice int64          `json:"discount_price,omitempty" bson:"discount_price,omitempty" validate:"omitempty,min=0"`
	Category      string         `json:"category" bson:"category" validate:"required,oneof=clothing electronics home beauty sports books other"`
	Stock         int            `json:"stock" bson:"stock" validate:"min=0"`
	Sizes         []string       `json:"sizes,omitempty" bson:"sizes,omitempty" validate:"omitempty,dive,oneof=XS S M L XL XXL"`
	Colors        []string       `json:"colors,omitempty" bson:"colors,omitempty"`
	Images        []ProductImage `json:"images,omitempty" bson:"images,omitempty" validate:"omitempty,dive"`
	Ratings       float64        `json:"ratings" bson:"ratings" validate:"min=0,max=5"`
	SalesCount    int64          `json:"sales_count" bson:"sales_count"`
	Featured      bool           `json:"featured" bson:"featured"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}

// CategoryStat is one bucket of the per-category statistics pipeline.
type CategoryStat struct {
	Category   string `json:"category" bson:"category"`
	Count      int64  `json:"count" bson:"count"`
	AvgPrice   int64  `json:"avg_price" bson:"avg_price"`
	TotalStock int64  `json:"total_stock" bson:"total_stock"`
}
