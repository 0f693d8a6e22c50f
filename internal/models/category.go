// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"lumira/internal/slug"
)

// Category groups products in the storefront. Name and slug are unique
// across all categories.
type Category struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string        `bson:"name" json:"name" validate:"required,max=200"`
	Slug        string        `bson:"slug" json:"slug"`
	Description string        `bson:"description" json:"description" validate:"max=5000"`
	Image       string        `bson:"image" json:"image" validate:"max=2048"`
	IsActive    bool          `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// CategoryInput is the admin payload for creating a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	IsActive    *bool  `json:"isActive"`
}

// CategoryUpdate lists the fields an admin may change. Nil fields keep
// their stored value.
type CategoryUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	IsActive    *bool   `json:"isActive"`
}

// NewCategory builds a validated category with its slug derived from the
// name. Categories are active unless the input says otherwise.
func NewCategory(in CategoryInput) (*Category, error) {
	c := &Category{
		Description: in.Description,
		Image:       in.Image,
		IsActive:    true,
	}
	c.setName(in.Name)
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply overwrites the fields present in u and re-validates. The slug is
// re-derived whenever the name changes.
func (c *Category) Apply(u CategoryUpdate) error {
	if u.Name != nil {
		c.setName(*u.Name)
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Image != nil {
		c.Image = *u.Image
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	return c.Validate()
}

// Validate checks the category field rules.
func (c *Category) Validate() error {
	if err := checkStruct(c); err != nil {
		return err
	}
	if c.Slug == "" {
		return invalid("name", "name must contain at least one letter or digit")
	}
	return nil
}

func (c *Category) setName(name string) {
	c.Name = strings.TrimSpace(name)
	c.Slug = slug.Generate(c.Name)
}
