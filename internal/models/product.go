// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"lumira/internal/slug"
)

// LowStockThreshold is the stock level at or below which a variant counts
// as low on the dashboard.
const LowStockThreshold = 5

// Variant is a purchasable size/colour/price combination embedded in a
// product. It has no lifecycle of its own.
type Variant struct {
	ID       bson.ObjectID `bson:"_id" json:"_id"`
	Name     string        `bson:"name" json:"name" validate:"required,max=200"`
	Color    string        `bson:"color" json:"color"`
	Size     string        `bson:"size" json:"size"`
	Price    float64       `bson:"price" json:"price" validate:"gte=0"`
	Stock    int           `bson:"stock" json:"stock" validate:"gte=0"`
	SKU      string        `bson:"sku" json:"sku"`
	IsActive bool          `bson:"isActive" json:"isActive"`
}

// CategoryRef is the populated form of Product.CategoryID. Name is empty
// when the referenced category no longer exists.
type CategoryRef struct {
	ID   bson.ObjectID `bson:"_id" json:"_id"`
	Name string        `bson:"name" json:"name"`
}

// Product is a catalog item. The category is a weak reference: nothing
// stops the category from being deleted underneath it.
type Product struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string        `bson:"name" json:"name" validate:"required,max=200"`
	Slug        string        `bson:"slug" json:"slug"`
	Description string        `bson:"description" json:"description" validate:"max=5000"`
	CategoryID  bson.ObjectID `bson:"category" json:"-"`
	Category    *CategoryRef  `bson:"-" json:"category"`
	BasePrice   float64       `bson:"basePrice" json:"basePrice" validate:"gte=0"`
	Images      []string      `bson:"images" json:"images" validate:"dive,max=2048"`
	IsActive    bool          `bson:"isActive" json:"isActive"`
	Variants    []Variant     `bson:"variants" json:"variants" validate:"dive"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// VariantInput is the admin payload for one variant. Price is a pointer so
// a missing price can be told apart from a free variant.
type VariantInput struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Size     string   `json:"size"`
	Price    *float64 `json:"price"`
	Stock    int      `json:"stock"`
	SKU      string   `json:"sku"`
	IsActive *bool    `json:"isActive"`
}

// ProductInput is the admin payload for creating a product.
type ProductInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	BasePrice   *float64       `json:"basePrice"`
	Images      []string       `json:"images"`
	IsActive    *bool          `json:"isActive"`
	Variants    []VariantInput `json:"variants"`
}

// ProductUpdate lists the fields an admin may change. Nil fields keep
// their stored value; a non-nil Variants replaces the whole array.
type ProductUpdate struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	BasePrice   *float64        `json:"basePrice"`
	Images      *[]string       `json:"images"`
	IsActive    *bool           `json:"isActive"`
	Variants    *[]VariantInput `json:"variants"`
}

// NewProduct builds a validated product from an admin payload.
func NewProduct(in ProductInput) (*Product, error) {
	if in.BasePrice == nil {
		return nil, invalid("basePrice", "basePrice is required")
	}

	categoryID, err := ParseCategoryRef(in.Category)
	if err != nil {
		return nil, err
	}

	variants, err := buildVariants(in.Variants)
	if err != nil {
		return nil, err
	}

	p := &Product{
		Description: in.Description,
		CategoryID:  categoryID,
		BasePrice:   *in.BasePrice,
		Images:      nonNil(in.Images),
		IsActive:    true,
		Variants:    variants,
	}
	p.setName(in.Name)
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply overwrites the fields present in u and re-validates. Variants are
// replaced wholesale, never merged.
func (p *Product) Apply(u ProductUpdate) error {
	if u.Name != nil {
		p.setName(*u.Name)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		id, err := ParseCategoryRef(*u.Category)
		if err != nil {
			return err
		}
		p.CategoryID = id
		p.Category = nil
	}
	if u.BasePrice != nil {
		p.BasePrice = *u.BasePrice
	}
	if u.Images != nil {
		p.Images = nonNil(*u.Images)
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.Variants != nil {
		variants, err := buildVariants(*u.Variants)
		if err != nil {
			return err
		}
		p.Variants = variants
	}
	return p.Validate()
}

// Validate checks the product and variant field rules.
func (p *Product) Validate() error {
	if err := checkStruct(p); err != nil {
		return err
	}
	if p.Slug == "" {
		return invalid("name", "name must contain at least one letter or digit")
	}
	if p.CategoryID.IsZero() {
		return invalid("category", "category is required")
	}
	return nil
}

// TotalStock sums the stock of every variant.
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// LowStock reports whether any variant is at or below LowStockThreshold.
func (p *Product) LowStock() bool {
	for _, v := range p.Variants {
		if v.Stock <= LowStockThreshold {
			return true
		}
	}
	return false
}

// ParseCategoryRef converts the category id sent by the admin client.
func ParseCategoryRef(s string) (bson.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return bson.ObjectID{}, invalid("category", "category is required")
	}
	id, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.ObjectID{}, invalid("category", "category must be a valid id")
	}
	return id, nil
}

func (p *Product) setName(name string) {
	p.Name = strings.TrimSpace(name)
	p.Slug = slug.Generate(p.Name)
}

// buildVariants converts variant payloads, keeping ids the client sent
// back and assigning fresh ones otherwise.
func buildVariants(in []VariantInput) ([]Variant, error) {
	out := make([]Variant, 0, len(in))
	for i, v := range in {
		if v.Price == nil {
			field := fmt.Sprintf("variants[%d].price", i)
			return nil, invalid(field, "%s is required", field)
		}

		id, err := bson.ObjectIDFromHex(v.ID)
		if err != nil {
			id = bson.NewObjectID()
		}

		variant := Variant{
			ID:       id,
			Name:     strings.TrimSpace(v.Name),
			Color:    v.Color,
			Size:     v.Size,
			Price:    *v.Price,
			Stock:    v.Stock,
			SKU:      v.SKU,
			IsActive: true,
		}
		if v.IsActive != nil {
			variant.IsActive = *v.IsActive
		}
		out = append(out, variant)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
