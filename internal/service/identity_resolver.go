package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Placeholder contact data for suppliers created from an import row.
const (
	placeholderPhone   = "00000"
	placeholderAddress = "Not provided"
	placeholderDomain  = "supplier.local"
)

// NameCache memoizes name -> id lookups for one import batch. Create one per
// batch; never share it between concurrent imports.
type NameCache struct {
	mu  sync.Mutex
	ids map[string]uuid.UUID
}

func NewNameCache() *NameCache {
	return &NameCache{ids: make(map[string]uuid.UUID)}
}

func (c *NameCache) get(key string) (uuid.UUID, bool) {
	if c == nil {
		return uuid.Nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[key]
	return id, ok
}

func (c *NameCache) put(key string, id uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ids[key] = id
	c.mu.Unlock()
}

// Len is the number of distinct names resolved so far.
func (c *NameCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// IdentityResolver turns a category or supplier name into its id, creating
// the entity the first time the name is seen.
type IdentityResolver struct {
	categories repository.CategoryRepository
	suppliers  repository.SupplierRepository
	cache      *NameCache
	actor      string
	log        *slog.Logger
}

// NewIdentityResolver binds a resolver to cache. A nil cache disables memoization.
func NewIdentityResolver(categories repository.CategoryRepository, suppliers repository.SupplierRepository, cache *NameCache, actor string, log *slog.Logger) *IdentityResolver {
	if log == nil {
		log = slog.Default()
	}
	return &IdentityResolver{
		categories: categories,
		suppliers:  suppliers,
		cache:      cache,
		actor:      actor,
		log:        log,
	}
}

func cacheKey(kind model.CatalogKind, name string) string {
	return string(kind) + ":" + cases.Fold().String(name)
}

// Resolve looks name up case-insensitively and creates it when absent.
// A create that loses a uniqueness race to another batch returns ErrDuplicateName.
func (r *IdentityResolver) Resolve(ctx context.Context, kind model.CatalogKind, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, fmt.Errorf("%s name is empty", kind)
	}

	key := cacheKey(kind, name)
	if id, ok := r.cache.get(key); ok {
		return id, nil
	}

	id, err := r.find(ctx, kind, name)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		id, err = r.create(ctx, kind, name)
		if err != nil {
			return uuid.Nil, err
		}
		r.log.Info("catalog entity auto-created", "kind", kind, "name", name, "id", id)
	default:
		return uuid.Nil, fmt.Errorf("lookup %s %q: %w", kind, name, err)
	}

	r.cache.put(key, id)
	return id, nil
}

func (r *IdentityResolver) find(ctx context.Context, kind model.CatalogKind, name string) (uuid.UUID, error) {
	switch kind {
	case model.KindCategory:
		c, err := r.categories.FindByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return c.ID, nil
	case model.KindSupplier:
		s, err := r.suppliers.FindByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return s.ID, nil
	}
	return uuid.Nil, fmt.Errorf("unknown catalog kind %q", kind)
}

func (r *IdentityResolver) create(ctx context.Context, kind model.CatalogKind, name string) (uuid.UUID, error) {
	var (
		id  uuid.UUID
		err error
	)
	switch kind {
	case model.KindCategory:
		c := &model.Category{Name: name}
		c.CreatedBy, c.UpdatedBy = r.actor, r.actor
		err = r.categories.Create(ctx, c)
		id = c.ID
	case model.KindSupplier:
		email := Slugify(name) + "@" + placeholderDomain
		s := &model.Supplier{
			Name:    name,
			Phone:   placeholderPhone,
			Address: placeholderAddress,
			Email:   &email,
		}
		s.CreatedBy, s.UpdatedBy = r.actor, r.actor
		err = r.suppliers.Create(ctx, s)
		id = s.ID
	default:
		return uuid.Nil, fmt.Errorf("unknown catalog kind %q", kind)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return uuid.Nil, fmt.Errorf("%s %q: %w", kind, name, ErrDuplicateName)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("create %s %q: %w", kind, name, err)
	}
	return id, nil
}

// Slugify lowercases name, strips accents and joins the remaining
// alphanumeric runs with dashes.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "supplier"
	}
	return slug
}
