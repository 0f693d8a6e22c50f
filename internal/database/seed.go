package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"lumira/internal/models"
)

// seedCategories are the collections the storefront launches with.
var seedCategories = []models.CategoryInput{
	{Name: "Niqabs", Description: "Soft, secure and breathable."},
	{Name: "Abayas", Description: "Timeless silhouettes."},
	{Name: "Hijabs", Description: "Feather-light and effortless."},
	{Name: "Prayer Dresses"},
	{Name: "Maxis"},
	{Name: "Perfumes"},
}

// Seed populates an empty catalog with the launch categories for local
// development. It is a no-op once any category exists.
func Seed(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(CategoriesCollection)

	count, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	now := time.Now().UTC()
	docs := make([]any, 0, len(seedCategories))
	for i, in := range seedCategories {
		c, err := models.NewCategory(in)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", in.Name, err)
		}
		c.ID = bson.NewObjectID()
		// Stagger timestamps so newest-first listing keeps the launch order.
		c.CreatedAt = now.Add(-time.Duration(i) * time.Second)
		c.UpdatedAt = c.CreatedAt
		docs = append(docs, c)
	}

	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seed insert categories: %w", err)
	}

	slog.Info("database seeded with launch categories", "count", len(docs))
	return nil
}
