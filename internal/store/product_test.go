package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"lumira/internal/models"
)

func TestProductStoreCRUD(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db)
	s := NewProductStore(db)
	ctx := context.Background()

	cat := mustCategory(t, cats, "Niqabs", true)
	p := mustProduct(t, s, "Saudi Niqab", cat.ID, 12, 3)

	if p.Slug != "saudi-niqab" {
		t.Errorf("slug: got %q, want %q", p.Slug, "saudi-niqab")
	}
	if p.Category == nil || p.Category.Name != "Niqabs" || p.Category.ID != cat.ID {
		t.Errorf("populated category after create: got %+v", p.Category)
	}

	found, err := s.FindByID(ctx, p.ID.Hex())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(found.Variants) != 2 || found.Variants[1].Stock != 3 {
		t.Errorf("variants: got %+v", found.Variants)
	}
	if found.TotalStock() != 15 {
		t.Errorf("TotalStock: got %d, want 15", found.TotalStock())
	}
	if found.Category == nil || found.Category.Name != "Niqabs" {
		t.Errorf("populated category: got %+v", found.Category)
	}

	bySlug, err := s.FindBySlug(ctx, "saudi-niqab")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if bySlug.ID != p.ID {
		t.Errorf("FindBySlug id: got %s, want %s", bySlug.ID.Hex(), p.ID.Hex())
	}

	price := 500.0
	variants := []models.VariantInput{{Name: "One Size", Price: &price, Stock: 20}}
	inactive := false
	if err := found.Apply(models.ProductUpdate{Variants: &variants, IsActive: &inactive}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Update(ctx, found); err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, err := s.FindByID(ctx, p.ID.Hex())
	if err != nil {
		t.Fatalf("FindByID after update: %v", err)
	}
	if len(updated.Variants) != 1 || updated.Variants[0].Name != "One Size" {
		t.Errorf("variants replaced: got %+v", updated.Variants)
	}
	if updated.IsActive {
		t.Error("expected product to be inactive after update")
	}

	if err := s.Delete(ctx, p.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.FindByID(ctx, p.ID.Hex()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID after delete: got %v, want ErrNotFound", err)
	}
}

func TestProductStoreDuplicateSlug(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db)
	s := NewProductStore(db)

	cat := mustCategory(t, cats, "Abayas", true)
	mustProduct(t, s, "Classic Abaya", cat.ID)

	price := 10.0
	dup, err := models.NewProduct(models.ProductInput{Name: "Classic  Abaya!", Category: cat.ID.Hex(), BasePrice: &price})
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	if err := s.Create(context.Background(), dup); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate slug: got %v, want ErrDuplicateKey", err)
	}
}

func TestProductStoreListFilters(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db)
	s := NewProductStore(db)
	ctx := context.Background()

	niqabs := mustCategory(t, cats, "Niqabs", true)
	abayas := mustCategory(t, cats, "Abayas", true)

	mustProduct(t, s, "Saudi Niqab", niqabs.ID)
	mustProduct(t, s, "Classic Egyptian NIQAB", niqabs.ID)
	mustProduct(t, s, "Black Abaya", abayas.ID)
	draft := mustProduct(t, s, "Draft Niqab", niqabs.ID)

	inactive := false
	if err := draft.Apply(models.ProductUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Update(ctx, draft); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{"all newest first", ProductFilter{}, []string{"Draft Niqab", "Black Abaya", "Classic Egyptian NIQAB", "Saudi Niqab"}},
		{"by category", ProductFilter{CategoryID: abayas.ID}, []string{"Black Abaya"}},
		{"search case-insensitive", ProductFilter{Search: "niqab"}, []string{"Draft Niqab", "Classic Egyptian NIQAB", "Saudi Niqab"}},
		{"search and category", ProductFilter{Search: "abaya", CategoryID: niqabs.ID}, nil},
		{"active only", ProductFilter{ActiveOnly: true, CategoryID: niqabs.ID}, []string{"Classic Egyptian NIQAB", "Saudi Niqab"}},
		{"regex characters are literal", ProductFilter{Search: "niq.b"}, nil},
		{"limit", ProductFilter{Limit: 2}, []string{"Draft Niqab", "Black Abaya"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got == nil {
				t.Fatal("List returned nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List length: got %d, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("List[%d]: got %q, want %q", i, got[i].Name, name)
				}
				if got[i].Category == nil {
					t.Errorf("List[%d]: category not populated", i)
				}
			}
		})
	}
}

func TestProductStoreOrphanedCategory(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db)
	s := NewProductStore(db)
	ctx := context.Background()

	cat := mustCategory(t, cats, "Prayer Dresses", true)
	p := mustProduct(t, s, "Two Piece Prayer Dress", cat.ID)

	if err := cats.Delete(ctx, cat.ID.Hex()); err != nil {
		t.Fatalf("delete referenced category: %v", err)
	}

	found, err := s.FindByID(ctx, p.ID.Hex())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.CategoryID != cat.ID {
		t.Errorf("category id: got %s, want %s", found.CategoryID.Hex(), cat.ID.Hex())
	}
	if found.Category == nil || found.Category.ID != cat.ID || found.Category.Name != "" {
		t.Errorf("orphaned category ref: got %+v", found.Category)
	}
}

func TestProductStoreStats(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db)
	s := NewProductStore(db)
	ctx := context.Background()

	cat := mustCategory(t, cats, "Hijabs", true)
	mustProduct(t, s, "Jersey Hijab", cat.ID, 20, 5)
	mustProduct(t, s, "Chiffon Hijab", cat.ID, 6, 30)
	mustProduct(t, s, "Silk Hijab", cat.ID)
	off := mustProduct(t, s, "Modal Hijab", cat.ID, 0)

	inactive := false
	off.Apply(models.ProductUpdate{IsActive: &inactive})
	if err := s.Update(ctx, off); err != nil {
		t.Fatalf("Update: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := ProductStats{TotalProducts: 4, ActiveProducts: 3, LowStockProducts: 2}
	if st != want {
		t.Errorf("Stats: got %+v, want %+v", st, want)
	}
}

func TestProductStoreNotFound(t *testing.T) {
	db := testDB(t)
	s := NewProductStore(db)
	ctx := context.Background()

	for _, id := range []string{"bogus", bson.NewObjectID().Hex()} {
		if _, err := s.FindByID(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByID(%q): got %v, want ErrNotFound", id, err)
		}
		if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete(%q): got %v, want ErrNotFound", id, err)
		}
	}

	if _, err := s.FindBySlug(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindBySlug: got %v, want ErrNotFound", err)
	}
}
