package categories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/siver-b2b-backend/pkg/db"
	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

// Service exposes the category tree.
type Service interface {
	Tree(ctx context.Context, includeHidden bool) ([]Node, error)
	Descendants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	Create(ctx context.Context, input CreateInput) (*Node, error)
}

// Node is a category with its children in display order.
type Node struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	IsVisiblePublic bool       `json:"is_visible_public"`
	SortOrder       int        `json:"sort_order"`
	Children        []Node     `json:"children"`
}

// CreateInput is the minimal payload used to seed categories.
type CreateInput struct {
	Name            string
	Slug            string
	ParentID        *uuid.UUID
	IsVisiblePublic *bool
	SortOrder       int
}

type categoryStore interface {
	ListAll(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
}

type service struct {
	repo categoryStore
	logg *logger.Logger
}

// NewService constructs the category service.
func NewService(repo categoryStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

// Tree returns the root nodes. Hidden categories are pruned with their whole
// subtree unless includeHidden is set.
func (s *service) Tree(ctx context.Context, includeHidden bool) ([]Node, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}

	byParent := make(map[uuid.UUID][]models.Category, len(rows))
	known := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		known[row.ID] = struct{}{}
	}
	var roots []models.Category
	for _, row := range rows {
		if row.ParentID == nil {
			roots = append(roots, row)
			continue
		}
		if _, ok := known[*row.ParentID]; !ok {
			// dangling parent reference; surface as a root
			roots = append(roots, row)
			continue
		}
		byParent[*row.ParentID] = append(byParent[*row.ParentID], row)
	}

	var build func(list []models.Category) []Node
	build = func(list []models.Category) []Node {
		nodes := make([]Node, 0, len(list))
		for _, row := range list {
			if !row.IsVisiblePublic && !includeHidden {
				continue
			}
			nodes = append(nodes, Node{
				ID:              row.ID,
				Name:            row.Name,
				Slug:            row.Slug,
				ParentID:        row.ParentID,
				IsVisiblePublic: row.IsVisiblePublic,
				SortOrder:       row.SortOrder,
				Children:        build(byParent[row.ID]),
			})
		}
		return nodes
	}
	return build(roots), nil
}

// Descendants returns id followed by every category beneath it.
func (s *service) Descendants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}

	children := make(map[uuid.UUID][]uuid.UUID, len(rows))
	found := false
	for _, row := range rows {
		if row.ID == id {
			found = true
		}
		if row.ParentID != nil {
			children[*row.ParentID] = append(children[*row.ParentID], row.ID)
		}
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}

	out := []uuid.UUID{id}
	seen := map[uuid.UUID]struct{}{id: {}}
	for i := 0; i < len(out); i++ {
		for _, child := range children[out[i]] {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			out = append(out, child)
		}
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Node, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category slug is required")
	}

	if input.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
	}

	visible := true
	if input.IsVisiblePublic != nil {
		visible = *input.IsVisiblePublic
	}
	category := &models.Category{
		Name:            name,
		Slug:            slug,
		ParentID:        input.ParentID,
		IsVisiblePublic: visible,
		SortOrder:       input.SortOrder,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("category slug %s already exists", slug))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert category")
	}

	s.logg.Info(s.logg.WithField(ctx, "category_slug", slug), "category created")
	return &Node{
		ID:              category.ID,
		Name:            category.Name,
		Slug:            category.Slug,
		ParentID:        category.ParentID,
		IsVisiblePublic: category.IsVisiblePublic,
		SortOrder:       category.SortOrder,
		Children:        []Node{},
	}, nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases, strips diacritics and joins the remaining words with hyphens.
func Slugify(value string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), strings.ToLower(value))
	if err != nil {
		stripped = strings.ToLower(value)
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(stripped, "-"), "-")
}
