// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if MongoDB is not available.
package store

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"lumira/internal/database"
	"lumira/internal/models"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB connects to the test database and ensures collections and indexes
// exist. If MongoDB is unavailable, the test is skipped. Both collections
// are emptied before and after the test.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := envOr("MONGO_URI", "mongodb://localhost:27017")
	client, db, err := database.Connect(ctx, uri, "lumira_test_store")
	if err != nil {
		t.Skipf("skipping integration test: MongoDB not reachable: %v", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		client.Disconnect(context.Background())
		t.Fatalf("failed to migrate: %v", err)
	}

	clean := func() {
		for _, name := range []string{database.CategoriesCollection, database.ProductsCollection} {
			db.Collection(name).DeleteMany(context.Background(), bson.D{})
		}
	}
	clean()

	t.Cleanup(func() {
		clean()
		client.Disconnect(context.Background())
	})
	return db
}

// mustCategory creates a category or fails the test.
func mustCategory(t *testing.T, s *CategoryStore, name string, active bool) *models.Category {
	t.Helper()

	c, err := models.NewCategory(models.CategoryInput{Name: name, IsActive: &active})
	if err != nil {
		t.Fatalf("NewCategory(%q): %v", name, err)
	}
	if err := s.Create(context.Background(), c); err != nil {
		t.Fatalf("Create category %q: %v", name, err)
	}
	return c
}

// mustProduct creates a product in category cat or fails the test.
func mustProduct(t *testing.T, s *ProductStore, name string, cat bson.ObjectID, stocks ...int) *models.Product {
	t.Helper()

	price := 450.0
	in := models.ProductInput{Name: name, Category: cat.Hex(), BasePrice: &price}
	for i, stock := range stocks {
		vp := price
		in.Variants = append(in.Variants, models.VariantInput{
			Name:  "Variant " + string(rune('A'+i)),
			Price: &vp,
			Stock: stock,
		})
	}

	p, err := models.NewProduct(in)
	if err != nil {
		t.Fatalf("NewProduct(%q): %v", name, err)
	}
	if err := s.Create(context.Background(), p); err != nil {
		t.Fatalf("Create product %q: %v", name, err)
	}
	return p
}
