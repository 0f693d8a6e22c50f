// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// in-memory repositories that mirror the MongoDB stores' contract, a
// recording cache and uploader, and request helpers.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"lumira/internal/middleware"
	"lumira/internal/models"
	"lumira/internal/session"
	"lumira/internal/storage"
	"lumira/internal/store"
)

var errBackend = errors.New("backend unavailable")

// ---------- categories ----------

type fakeCategories struct {
	mu    sync.Mutex
	items []models.Category // insertion order
	calls int
	err   error
}

func (f *fakeCategories) touch() error {
	f.calls++
	return f.err
}

func (f *fakeCategories) List(context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return nil, err
	}
	out := []models.Category{}
	for i := len(f.items) - 1; i >= 0; i-- {
		out = append(out, f.items[i])
	}
	return out, nil
}

func (f *fakeCategories) ListActive(ctx context.Context) ([]models.Category, error) {
	all, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(c models.Category) bool { return !c.IsActive }), nil
}

func (f *fakeCategories) FindByID(_ context.Context, id string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return nil, err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	for _, c := range f.items {
		if c.ID == oid {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeCategories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return nil, err
	}
	for _, c := range f.items {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeCategories) conflicts(c *models.Category) bool {
	for _, o := range f.items {
		if o.ID != c.ID && (o.Name == c.Name || o.Slug == c.Slug) {
			return true
		}
	}
	return false
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	if f.conflicts(c) {
		return store.ErrDuplicateKey
	}
	c.ID = bson.NewObjectID()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	f.items = append(f.items, *c)
	return nil
}

func (f *fakeCategories) Update(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	if f.conflicts(c) {
		return store.ErrDuplicateKey
	}
	for i := range f.items {
		if f.items[i].ID == c.ID {
			c.UpdatedAt = time.Now().UTC()
			f.items[i] = *c
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeCategories) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	for i := range f.items {
		if f.items[i].ID == oid {
			f.items = slices.Delete(f.items, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeCategories) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return 0, err
	}
	return int64(len(f.items)), nil
}

func (f *fakeCategories) name(id bson.ObjectID) string {
	for _, c := range f.items {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// ---------- products ----------

type fakeProducts struct {
	mu    sync.Mutex
	items []models.Product // insertion order
	cats  *fakeCategories
	calls int
	err   error

	// beforeRead runs at the start of List and find, outside the lock.
	beforeRead func()
}

func (f *fakeProducts) touch() error {
	f.calls++
	return f.err
}

func (f *fakeProducts) resolve(p models.Product) models.Product {
	f.cats.mu.Lock()
	defer f.cats.mu.Unlock()
	p.Category = &models.CategoryRef{ID: p.CategoryID, Name: f.cats.name(p.CategoryID)}
	return p
}

func (f *fakeProducts) List(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	if f.beforeRead != nil {
		f.beforeRead()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return nil, err
	}
	out := []models.Product{}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for i := len(f.items) - 1; i >= 0; i-- {
		p := f.items[i]
		if !filter.CategoryID.IsZero() && p.CategoryID != filter.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, f.resolve(p))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeProducts) find(match func(models.Product) bool) (*models.Product, error) {
	if f.beforeRead != nil {
		f.beforeRead()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return nil, err
	}
	for _, p := range f.items {
		if match(p) {
			resolved := f.resolve(p)
			return &resolved, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeProducts) FindByID(_ context.Context, id string) (*models.Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	return f.find(func(p models.Product) bool { return p.ID == oid })
}

func (f *fakeProducts) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	return f.find(func(p models.Product) bool { return p.Slug == slug })
}

func (f *fakeProducts) conflicts(p *models.Product) bool {
	for _, o := range f.items {
		if o.ID != p.ID && o.Slug == p.Slug {
			return true
		}
	}
	return false
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	if f.conflicts(p) {
		return store.ErrDuplicateKey
	}
	p.ID = bson.NewObjectID()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.items = append(f.items, *p)
	*p = f.resolve(*p)
	return nil
}

func (f *fakeProducts) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	if f.conflicts(p) {
		return store.ErrDuplicateKey
	}
	for i := range f.items {
		if f.items[i].ID == p.ID {
			p.UpdatedAt = time.Now().UTC()
			f.items[i] = *p
			*p = f.resolve(*p)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	for i := range f.items {
		if f.items[i].ID == oid {
			f.items = slices.Delete(f.items, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeProducts) Stats(context.Context) (store.ProductStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return store.ProductStats{}, err
	}
	var st store.ProductStats
	for _, p := range f.items {
		st.TotalProducts++
		if p.IsActive {
			st.ActiveProducts++
		}
		if p.LowStock() {
			st.LowStockProducts++
		}
	}
	return st, nil
}

// ---------- cache ----------

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	version     int64
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Version(context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *fakeCache) Set(_ context.Context, version int64, key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return
	}
	c.entries[key] = body
}

func (c *fakeCache) InvalidateAll(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.version++
	c.invalidated++
}

// ---------- uploader ----------

type fakeUploader struct {
	stored      []string
	contentType string
	err         error
}

func (u *fakeUploader) Store(_ context.Context, data []byte, name, contentType string) (*storage.Stored, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.stored = append(u.stored, name)
	u.contentType = contentType
	return &storage.Stored{URL: "/uploads/1760000000000-abcd1234.png", Filename: "1760000000000-abcd1234.png"}, nil
}

// ---------- sessions ----------

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memRevoker) Revoke(_ context.Context, id string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = true
	return nil
}

func (m *memRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[id], nil
}

// ---------- environment ----------

const testPassword = "correct horse battery staple"

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	categories *fakeCategories
	products   *fakeProducts
	cache      *fakeCache
	uploader   *fakeUploader
	sessions   *session.Manager
	admin      *Admin
	auth       *Auth
	public     *Public
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithTOTP(t, "")
}

func newTestEnvWithTOTP(t *testing.T, totpSecret string) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	cats := &fakeCategories{}
	env := &testEnv{
		categories: cats,
		products:   &fakeProducts{cats: cats},
		cache:      newFakeCache(),
		uploader:   &fakeUploader{},
		sessions:   session.NewManager("handler-test-secret", &memRevoker{revoked: map[string]bool{}}, false),
	}
	env.admin = NewAdmin(env.categories, env.products, env.cache, env.uploader)
	env.auth = NewAuth(env.sessions, string(hash), totpSecret)
	env.public = NewPublic(env.categories, env.products, env.cache)
	return env
}

// router mounts the handlers the same way the application router does.
func (env *testEnv) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.LoadPrincipal(env.sessions))
		r.Post("/auth", env.auth.Login)
		r.Get("/auth", env.auth.Check)
		r.Delete("/auth", env.auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/auth/totp", env.auth.TOTPQRCode)
			r.Get("/dashboard", env.admin.Dashboard)
			r.Post("/upload", env.admin.Upload)
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", env.admin.CategoriesList)
				r.Post("/", env.admin.CategoryCreate)
				r.Get("/{id}", env.admin.CategoryGet)
				r.Put("/{id}", env.admin.CategoryUpdate)
				r.Delete("/{id}", env.admin.CategoryDelete)
			})
			r.Route("/products", func(r chi.Router) {
				r.Get("/", env.admin.ProductsList)
				r.Post("/", env.admin.ProductCreate)
				r.Get("/{id}", env.admin.ProductGet)
				r.Put("/{id}", env.admin.ProductUpdate)
				r.Delete("/{id}", env.admin.ProductDelete)
			})
		})
	})
	r.Get("/api/products", env.public.Products)
	r.Get("/api/products/{ref}", env.public.Product)
	r.Get("/api/categories", env.public.Categories)
	return r
}

// login performs POST /api/admin/auth and returns the session cookie.
func (env *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/api/admin/auth", map[string]string{"password": testPassword}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: got %d: %s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

// do sends a request through the test router. body is JSON-encoded unless
// it is already a string.
func (env *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	env.router().ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a JSON response body.
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

// errorMessage extracts the "error" field from a JSON error response.
func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rr)["error"]
}

// seedCategory inserts a category directly through the fake repository.
func (env *testEnv) seedCategory(t *testing.T, name string, active bool) *models.Category {
	t.Helper()
	c, err := models.NewCategory(models.CategoryInput{Name: name, IsActive: &active})
	if err != nil {
		t.Fatalf("NewCategory: %v", err)
	}
	if err := env.categories.Create(context.Background(), c); err != nil {
		t.Fatalf("Create category: %v", err)
	}
	return c
}

// seedProduct inserts a product directly through the fake repository.
func (env *testEnv) seedProduct(t *testing.T, name string, cat bson.ObjectID, active bool, stocks ...int) *models.Product {
	t.Helper()
	price := 450.0
	in := models.ProductInput{Name: name, Category: cat.Hex(), BasePrice: &price, IsActive: &active}
	for _, s := range stocks {
		vp := price
		in.Variants = append(in.Variants, models.VariantInput{Name: "Standard", Price: &vp, Stock: s})
	}
	p, err := models.NewProduct(in)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	if err := env.products.Create(context.Background(), p); err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return p
}
