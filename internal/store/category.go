// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"lumira/internal/database"
	"lumira/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	coll *mongo.Collection
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *mongo.Database) *CategoryStore {
	return &CategoryStore{coll: db.Collection(database.CategoriesCollection)}
}

// List returns all categories, newest first.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return s.find(ctx, bson.D{})
}

// ListActive returns the categories visible on the storefront, newest first.
func (s *CategoryStore) ListActive(ctx context.Context) ([]models.Category, error) {
	return s.find(ctx, bson.D{{Key: "isActive", Value: true}})
}

func (s *CategoryStore) find(ctx context.Context, filter bson.D) ([]models.Category, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	items := []models.Category{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return items, nil
}

// FindByID retrieves a category by its hex id.
func (s *CategoryStore) FindByID(ctx context.Context, id string) (*models.Category, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// FindBySlug retrieves a category by its slug.
func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.findOne(ctx, bson.D{{Key: "slug", Value: slug}})
}

func (s *CategoryStore) findOne(ctx context.Context, filter bson.D) (*models.Category, error) {
	var c models.Category
	err := s.coll.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &c, nil
}

// Create assigns an id and timestamps and inserts the category.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	c.ID = bson.NewObjectID()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	if _, err := s.coll.InsertOne(ctx, c); err != nil {
		return writeErr("create category", err)
	}
	return nil
}

// Update replaces the stored category with c.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	c.UpdatedAt = now()

	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: c.ID}}, c)
	if err != nil {
		return writeErr("update category", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a category by id. Products referencing it are left alone.
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of categories.
func (s *CategoryStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}
