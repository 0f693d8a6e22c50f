// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"lumira/internal/database"
	"lumira/internal/models"
)

// ProductFilter narrows a product listing. Zero values mean "no constraint".
type ProductFilter struct {
	CategoryID bson.ObjectID
	Search     string
	ActiveOnly bool
	Limit      int
}

// ProductStats holds the product counters shown on the admin dashboard.
type ProductStats struct {
	TotalProducts    int64 `json:"totalProducts"`
	ActiveProducts   int64 `json:"activeProducts"`
	LowStockProducts int64 `json:"lowStockProducts"`
}

// ProductStore manages products in the database. Reads resolve each
// product's category name from the categories collection.
type ProductStore struct {
	coll       *mongo.Collection
	categories *mongo.Collection
}

// NewProductStore returns a new ProductStore.
func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{
		coll:       db.Collection(database.ProductsCollection),
		categories: db.Collection(database.CategoriesCollection),
	}
}

func (f ProductFilter) query() bson.D {
	q := bson.D{}
	if !f.CategoryID.IsZero() {
		q = append(q, bson.E{Key: "category", Value: f.CategoryID})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = append(q, bson.E{Key: "name", Value: bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}})
	}
	if f.ActiveOnly {
		q = append(q, bson.E{Key: "isActive", Value: true})
	}
	return q
}

// List returns the products matching f, newest first.
func (s *ProductStore) List(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	opts := options.Find().SetSort(newestFirst)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.coll.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := []models.Product{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	if err := s.populate(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID retrieves a product by its hex id.
func (s *ProductStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// FindBySlug retrieves a product by its slug.
func (s *ProductStore) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.findOne(ctx, bson.D{{Key: "slug", Value: slug}})
}

func (s *ProductStore) findOne(ctx context.Context, filter bson.D) (*models.Product, error) {
	var p models.Product
	err := s.coll.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}

	items := []models.Product{p}
	if err := s.populate(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Create assigns an id and timestamps, inserts the product with its
// variants and resolves its category name.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	p.ID = bson.NewObjectID()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	normalize(p)

	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		return writeErr("create product", err)
	}
	return s.populateOne(ctx, p)
}

// Update replaces the stored product, variants included, with p.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = now()
	normalize(p)

	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, p)
	if err != nil {
		return writeErr("update product", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return s.populateOne(ctx, p)
}

// Delete removes a product by id.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts all, active and low-stock products. A product is low on
// stock when any of its variants is at or below models.LowStockThreshold.
func (s *ProductStore) Stats(ctx context.Context) (ProductStats, error) {
	var st ProductStats
	var err error

	if st.TotalProducts, err = s.coll.CountDocuments(ctx, bson.D{}); err != nil {
		return st, fmt.Errorf("count products: %w", err)
	}
	if st.ActiveProducts, err = s.coll.CountDocuments(ctx, bson.D{{Key: "isActive", Value: true}}); err != nil {
		return st, fmt.Errorf("count active products: %w", err)
	}
	lowStock := bson.D{{Key: "variants.stock", Value: bson.D{{Key: "$lte", Value: models.LowStockThreshold}}}}
	if st.LowStockProducts, err = s.coll.CountDocuments(ctx, lowStock); err != nil {
		return st, fmt.Errorf("count low stock products: %w", err)
	}
	return st, nil
}

func (s *ProductStore) populateOne(ctx context.Context, p *models.Product) error {
	items := []models.Product{*p}
	if err := s.populate(ctx, items); err != nil {
		return err
	}
	p.Category = items[0].Category
	return nil
}

// populate fills Category on every product with one $in query. Orphaned
// references keep their id and get an empty name.
func (s *ProductStore) populate(ctx context.Context, items []models.Product) error {
	if len(items) == 0 {
		return nil
	}

	seen := make(map[bson.ObjectID]bool, len(items))
	ids := bson.A{}
	for _, p := range items {
		if !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			ids = append(ids, p.CategoryID)
		}
	}

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	opts := options.Find().SetProjection(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.categories.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("populate categories: %w", err)
	}

	var refs []models.CategoryRef
	if err := cursor.All(ctx, &refs); err != nil {
		return fmt.Errorf("decode category refs: %w", err)
	}

	names := make(map[bson.ObjectID]string, len(refs))
	for _, r := range refs {
		names[r.ID] = r.Name
	}
	for i := range items {
		id := items[i].CategoryID
		items[i].Category = &models.CategoryRef{ID: id, Name: names[id]}
	}
	return nil
}

// normalize stores empty lists as arrays rather than null.
func normalize(p *models.Product) {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Variants == nil {
		p.Variants = []models.Variant{}
	}
}
