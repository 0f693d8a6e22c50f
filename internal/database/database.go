// Package database handles MongoDB connection management and collection
// setup. Connect returns a ready-to-use client and database handle; Migrate
// installs the $jsonSchema validators and unique indexes the catalog relies on.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names.
const (
	CategoriesCollection = "categories"
	ProductsCollection   = "products"
)

// Connect opens a MongoDB client for the given URI and returns it together
// with the named database. It verifies the connection with a ping before
// returning.
func Connect(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("database connect: %w", err)
	}

	// Verify the connection is alive.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("database ping: %w", err)
	}

	slog.Info("database connected", "db", name)
	return client, client.Database(name), nil
}

// collectionSpec describes one collection's validator and indexes.
type collectionSpec struct {
	name      string
	validator bson.M
	indexes   []mongo.IndexModel
}

// Migrate creates the catalog collections with their schema validators, or
// refreshes the validators on existing collections, and ensures indexes.
// Safe to run on every start.
func Migrate(ctx context.Context, db *mongo.Database) error {
	for _, spec := range collectionSpecs() {
		if err := ensureCollection(ctx, db, spec); err != nil {
			return err
		}
	}

	slog.Info("database collections ready")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, spec collectionSpec) error {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: spec.name}})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if len(names) == 0 {
		opts := options.CreateCollection().SetValidator(spec.validator)
		if err := db.CreateCollection(ctx, spec.name, opts); err != nil {
			return fmt.Errorf("create collection %s: %w", spec.name, err)
		}
	} else {
		cmd := bson.D{
			{Key: "collMod", Value: spec.name},
			{Key: "validator", Value: spec.validator},
		}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("update validator %s: %w", spec.name, err)
		}
	}

	if _, err := db.Collection(spec.name).Indexes().CreateMany(ctx, spec.indexes); err != nil {
		return fmt.Errorf("create indexes %s: %w", spec.name, err)
	}
	return nil
}

var (
	numberTypes  = bson.A{"double", "int", "long", "decimal"}
	integerTypes = bson.A{"int", "long"}
)

func collectionSpecs() []collectionSpec {
	return []collectionSpec{
		{
			name: CategoriesCollection,
			validator: bson.M{"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"name", "slug", "isActive"},
				"properties": bson.M{
					"name":        bson.M{"bsonType": "string", "minLength": 1},
					"slug":        bson.M{"bsonType": "string", "minLength": 1},
					"description": bson.M{"bsonType": "string"},
					"image":       bson.M{"bsonType": "string"},
					"isActive":    bson.M{"bsonType": "bool"},
					"createdAt":   bson.M{"bsonType": "date"},
					"updatedAt":   bson.M{"bsonType": "date"},
				},
			}},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("name_unique")},
				{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true).SetName("slug_unique")},
				{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_desc")},
			},
		},
		{
			name: ProductsCollection,
			validator: bson.M{"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"name", "slug", "category", "basePrice", "isActive", "variants"},
				"properties": bson.M{
					"name":        bson.M{"bsonType": "string", "minLength": 1},
					"slug":        bson.M{"bsonType": "string", "minLength": 1},
					"description": bson.M{"bsonType": "string"},
					"category":    bson.M{"bsonType": "objectId"},
					"basePrice":   bson.M{"bsonType": numberTypes, "minimum": 0},
					"images":      bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
					"isActive":    bson.M{"bsonType": "bool"},
					"variants": bson.M{
						"bsonType": "array",
						"items": bson.M{
							"bsonType": "object",
							"required": bson.A{"_id", "name", "price"},
							"properties": bson.M{
								"_id":      bson.M{"bsonType": "objectId"},
								"name":     bson.M{"bsonType": "string", "minLength": 1},
								"price":    bson.M{"bsonType": numberTypes, "minimum": 0},
								"stock":    bson.M{"bsonType": integerTypes, "minimum": 0},
								"isActive": bson.M{"bsonType": "bool"},
							},
						},
					},
					"createdAt": bson.M{"bsonType": "date"},
					"updatedAt": bson.M{"bsonType": "date"},
				},
			}},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true).SetName("slug_unique")},
				{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("category_created")},
				{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_desc")},
				{Keys: bson.D{{Key: "variants.stock", Value: 1}}, Options: options.Index().SetName("variant_stock")},
			},
		},
	}
}
