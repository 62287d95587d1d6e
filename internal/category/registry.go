package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/madalinagriza/flashfinance/internal/core"
	"github.com/madalinagriza/flashfinance/internal/docstore"
	"github.com/madalinagriza/flashfinance/internal/log"
)

// nameClaim materializes the (owner, name) unique index as a document.
// Claiming a name is an atomic Insert on its key, so two racing creates
// for the same name resolve to one winner.
type nameClaim struct {
	CategoryID core.CategoryID `json:"category_id"`
}

// Registry owns category identity: creation, renaming, deletion, and
// per-owner name uniqueness.
type Registry struct {
	store  docstore.Store
	logger *log.Logger
}

func NewRegistry(store docstore.Store, logger *log.Logger) *Registry {
	return &Registry{store: store, logger: logger.WithComponent("category-registry")}
}

// Create generates a fresh id and inserts the category. The name claim
// is taken first; if the category insert then fails the claim is
// released, so a failed create leaves no residue.
func (r *Registry) Create(ctx context.Context, owner core.OwnerID, name string) (core.Category, error) {
	if err := owner.Validate(); err != nil {
		return core.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, fmt.Errorf("category name is empty: %w", core.ErrInvalidID)
	}

	cat := core.Category{OwnerID: owner, ID: core.NewCategoryID(), Name: name}

	nameKey := core.CategoryNameKey(owner, name)
	if err := r.store.Insert(ctx, collCategoryNames, nameKey, nameClaim{CategoryID: cat.ID}); err != nil {
		if errors.Is(err, docstore.ErrKeyExists) {
			return core.Category{}, fmt.Errorf("owner %q already has a category named %q: %w", owner, name, core.ErrDuplicateName)
		}
		return core.Category{}, fmt.Errorf("claim category name: %w", err)
	}

	if err := r.store.Insert(ctx, collCategories, core.CategoryKey(owner, cat.ID), cat); err != nil {
		if _, derr := r.store.Delete(ctx, collCategoryNames, nameKey); derr != nil {
			r.logger.ErrorContext(ctx, "failed to release name claim after create failure",
				log.FieldOwner, owner, "name", name, log.FieldError, derr)
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	r.logger.InfoContext(ctx, "category created",
		log.FieldOwner, owner, log.FieldCategory, cat.ID, "name", name)
	return cat, nil
}

// Rename changes a category's display name. Renaming never touches the
// ledger. Giving the current name back is a no-op success.
func (r *Registry) Rename(ctx context.Context, owner core.OwnerID, id core.CategoryID, newName string) (core.Category, error) {
	if err := owner.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := id.Validate(); err != nil {
		return core.Category{}, err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return core.Category{}, fmt.Errorf("category name is empty: %w", core.ErrInvalidID)
	}

	cat, err := r.Get(ctx, owner, id)
	if err != nil {
		return core.Category{}, err
	}
	if cat.Name == newName {
		return cat, nil
	}

	newKey := core.CategoryNameKey(owner, newName)
	if err := r.store.Insert(ctx, collCategoryNames, newKey, nameClaim{CategoryID: id}); err != nil {
		if errors.Is(err, docstore.ErrKeyExists) {
			return core.Category{}, fmt.Errorf("owner %q already has a category named %q: %w", owner, newName, core.ErrDuplicateName)
		}
		return core.Category{}, fmt.Errorf("claim category name: %w", err)
	}

	oldName := cat.Name
	cat.Name = newName
	if err := r.store.Put(ctx, collCategories, core.CategoryKey(owner, id), cat); err != nil {
		if _, derr := r.store.Delete(ctx, collCategoryNames, newKey); derr != nil {
			r.logger.ErrorContext(ctx, "failed to release name claim after rename failure",
				log.FieldOwner, owner, "name", newName, log.FieldError, derr)
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}

	// The rename is committed; a leftover claim on the old name only
	// blocks reuse of that name, so failure here is logged, not raised.
	if _, err := r.store.Delete(ctx, collCategoryNames, core.CategoryNameKey(owner, oldName)); err != nil {
		r.logger.WarnContext(ctx, "failed to release old name claim after rename",
			log.FieldOwner, owner, "name", oldName, log.FieldError, err)
	}

	r.logger.InfoContext(ctx, "category renamed",
		log.FieldOwner, owner, log.FieldCategory, id, "from", oldName, "to", newName)
	return cat, nil
}

// Delete removes an empty category together with its name claim and its
// (necessarily empty) ledger bucket. The reserved Trash category is not
// deletable.
func (r *Registry) Delete(ctx context.Context, owner core.OwnerID, id core.CategoryID) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		return err
	}
	if id == core.TrashCategoryID {
		return fmt.Errorf("category %q is reserved and cannot be deleted", id)
	}

	cat, err := r.Get(ctx, owner, id)
	if err != nil {
		return err
	}

	bucketKey := core.CategoryKey(owner, id)
	raw, err := r.store.Get(ctx, collLedgerBuckets, bucketKey)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("check ledger bucket: %w", err)
	}
	if err == nil {
		var bucket bucketDoc
		if uerr := bucket.unmarshal(raw); uerr != nil {
			return uerr
		}
		if len(bucket.Entries) > 0 {
			return fmt.Errorf("category %q has %d ledger entries: %w", id, len(bucket.Entries), core.ErrCategoryNotEmpty)
		}
	}

	if _, err := r.store.Delete(ctx, collCategories, core.CategoryKey(owner, id)); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if _, err := r.store.Delete(ctx, collCategoryNames, core.CategoryNameKey(owner, cat.Name)); err != nil {
		r.logger.WarnContext(ctx, "failed to release name claim on delete",
			log.FieldOwner, owner, "name", cat.Name, log.FieldError, err)
	}
	if _, err := r.store.Delete(ctx, collLedgerBuckets, bucketKey); err != nil {
		r.logger.WarnContext(ctx, "failed to remove empty ledger bucket on delete",
			log.FieldOwner, owner, log.FieldCategory, id, log.FieldError, err)
	}

	r.logger.InfoContext(ctx, "category deleted",
		log.FieldOwner, owner, log.FieldCategory, id, "name", cat.Name)
	return nil
}

// Get loads one category owned by owner.
func (r *Registry) Get(ctx context.Context, owner core.OwnerID, id core.CategoryID) (core.Category, error) {
	cat, err := docstore.Load[core.Category](ctx, r.store, collCategories, core.CategoryKey(owner, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return core.Category{}, fmt.Errorf("category %q for owner %q: %w", id, owner, core.ErrCategoryNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("load category: %w", err)
	}
	return cat, nil
}

// NameByID resolves a category id to its display name.
func (r *Registry) NameByID(ctx context.Context, owner core.OwnerID, id core.CategoryID) (string, error) {
	cat, err := r.Get(ctx, owner, id)
	if err != nil {
		return "", err
	}
	return cat.Name, nil
}

// List returns every (id, name) pair owned by owner, ordered by id.
func (r *Registry) List(ctx context.Context, owner core.OwnerID) ([]core.CategoryRef, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	docs, err := r.store.List(ctx, collCategories, core.OwnerPrefix(owner))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	refs := make([]core.CategoryRef, 0, len(docs))
	for _, doc := range docs {
		var cat core.Category
		if err := doc.Unmarshal(&cat); err != nil {
			return nil, fmt.Errorf("decode category %q: %w", doc.Key, err)
		}
		refs = append(refs, core.CategoryRef{ID: cat.ID, Name: cat.Name})
	}
	return refs, nil
}

// ListAll returns every category across all owners. Administrative use
// only.
func (r *Registry) ListAll(ctx context.Context) ([]core.Category, error) {
	docs, err := r.store.List(ctx, collCategories, "")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	cats := make([]core.Category, 0, len(docs))
	for _, doc := range docs {
		var cat core.Category
		if err := doc.Unmarshal(&cat); err != nil {
			return nil, fmt.Errorf("decode category %q: %w", doc.Key, err)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}
