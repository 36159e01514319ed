package categories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siver-b2b-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

func TestTreePrunesHiddenBranches(t *testing.T) {
	store := &memoryStore{}
	root := store.add("Electronics", nil, true, 0)
	phones := store.add("Phones", &root, true, 1)
	store.add("Accessories", &root, true, 0)
	hidden := store.add("Clearance", &root, false, 2)
	store.add("Old Phones", &hidden, true, 0)
	store.add("Garden", nil, true, 1)
	store.add("Android", &phones, true, 0)

	svc, err := NewService(store, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	tree, err := svc.Tree(context.Background(), false)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 2 || tree[0].Name != "Electronics" || tree[1].Name != "Garden" {
		t.Fatalf("unexpected roots %+v", tree)
	}
	children := tree[0].Children
	if len(children) != 2 {
		t.Fatalf("expected hidden branch pruned, got %d children", len(children))
	}
	if children[0].Name != "Accessories" || children[1].Name != "Phones" {
		t.Fatalf("expected children ordered by sort_order, got %s, %s", children[0].Name, children[1].Name)
	}
	if len(children[1].Children) != 1 || children[1].Children[0].Name != "Android" {
		t.Fatalf("expected nested grandchild, got %+v", children[1].Children)
	}

	full, err := svc.Tree(context.Background(), true)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(full[0].Children) != 3 {
		t.Fatalf("expected hidden branch for admins, got %d children", len(full[0].Children))
	}
	if len(full[0].Children[2].Children) != 1 {
		t.Fatalf("expected hidden branch to keep its subtree")
	}
}

func TestDescendants(t *testing.T) {
	store := &memoryStore{}
	root := store.add("A", nil, true, 0)
	child := store.add("B", &root, true, 0)
	grandchild := store.add("C", &child, false, 0)
	other := store.add("D", nil, true, 0)

	svc, _ := NewService(store, nil)
	ids, err := svc.Descendants(context.Background(), root)
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	want := map[uuid.UUID]bool{root: true, child: true, grandchild: true}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	if ids[0] != root {
		t.Fatalf("expected root first")
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected id %s", id)
		}
		if id == other {
			t.Fatalf("unrelated category included")
		}
	}

	if _, err := svc.Descendants(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	store := &memoryStore{}
	svc, _ := NewService(store, nil)
	ctx := context.Background()

	node, err := svc.Create(ctx, CreateInput{Name: "Ropa de Niños"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if node.Slug != "ropa-de-ninos" {
		t.Fatalf("expected derived slug, got %q", node.Slug)
	}
	if !node.IsVisiblePublic {
		t.Fatalf("categories are public by default")
	}

	hidden := false
	child, err := svc.Create(ctx, CreateInput{Name: "Bebés", ParentID: &node.ID, IsVisiblePublic: &hidden})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != node.ID || child.IsVisiblePublic {
		t.Fatalf("unexpected child %+v", child)
	}

	missing := uuid.New()
	if _, err := svc.Create(ctx, CreateInput{Name: "Orphan", ParentID: &missing}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing parent, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "Other", Slug: "Ropa de Niños"}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate slug, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "  "}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Electrónica & Hogar": "electronica-hogar",
		"  --Zapatos--  ":     "zapatos",
		"ÀÉÎÕÜ 2025":          "aeiou-2025",
		"!!!":                 "",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

type memoryStore struct {
	rows []models.Category
}

func (m *memoryStore) add(name string, parent *uuid.UUID, visible bool, order int) uuid.UUID {
	id := uuid.New()
	m.rows = append(m.rows, models.Category{ID: id, Name: name, Slug: Slugify(name), ParentID: parent, IsVisiblePublic: visible, SortOrder: order})
	return id
}

func (m *memoryStore) ListAll(ctx context.Context) ([]models.Category, error) {
	out := append([]models.Category(nil), m.rows...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func less(a, b models.Category) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.Name < b.Name
}

func (m *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			row := m.rows[i]
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryStore) Create(ctx context.Context, category *models.Category) error {
	for _, row := range m.rows {
		if row.Slug == category.Slug {
			return errors.New("UNIQUE constraint failed: categories.slug")
		}
	}
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	m.rows = append(m.rows, *category)
	return nil
}
