package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeBackend struct {
	calls  []string
	nextID uint
	failOn string
}

func (f *fakeBackend) record(call string) (uint, error) {
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return 0, fmt.Errorf("backend refused %s", call)
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeBackend) CreateCategory(_ context.Context, c CategoryDraft) (uint, error) {
	return f.record("category:" + c.Name)
}

func (f *fakeBackend) CreateSubcategory(_ context.Context, categoryID uint, s SubcategoryDraft) (uint, error) {
	return f.record(fmt.Sprintf("subcategory:%s@%d", s.Name, categoryID))
}

func (f *fakeBackend) CreateProduct(_ context.Context, subcategoryID uint, p ProductDraft) (uint, error) {
	return f.record(fmt.Sprintf("product:%s@%d", p.Name, subcategoryID))
}

func (f *fakeBackend) DeleteCategory(_ context.Context, id uint) error {
	f.calls = append(f.calls, fmt.Sprintf("delete-category:%d", id))
	return nil
}

func (f *fakeBackend) DeleteSubcategory(_ context.Context, id uint) error {
	f.calls = append(f.calls, fmt.Sprintf("delete-subcategory:%d", id))
	return nil
}

func (f *fakeBackend) DeleteProduct(_ context.Context, id uint) error {
	f.calls = append(f.calls, fmt.Sprintf("delete-product:%d", id))
	return nil
}

func sampleDraft() Draft {
	return Draft{
		Category:      CategoryDraft{Name: "Bebidas"},
		Subcategories: []SubcategoryDraft{{Name: "Calientes"}, {Name: "Frías"}},
		Products: []ProductDraft{
			{Subcategory: 0, Name: "Espresso", Price: decimal.RequireFromString("2.50")},
			{Subcategory: 1, Name: "Limonada", Price: decimal.RequireFromString("3.00")},
		},
	}
}

func TestSubmitOrdersCallsAndPropagatesIDs(t *testing.T) {
	b := &fakeBackend{}
	created, err := Submit(context.Background(), b, sampleDraft())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	want := []string{
		"category:Bebidas",
		"subcategory:Calientes@1",
		"subcategory:Frías@1",
		"product:Espresso@2",
		"product:Limonada@3",
	}
	if !reflect.DeepEqual(b.calls, want) {
		t.Errorf("calls = %v, want %v", b.calls, want)
	}
	if created.CategoryID != 1 || !reflect.DeepEqual(created.ProductIDs, []uint{4, 5}) {
		t.Errorf("created = %+v", created)
	}
}

func TestSubmitCompensatesOnFailure(t *testing.T) {
	b := &fakeBackend{failOn: "product:Limonada@3"}
	_, err := Submit(context.Background(), b, sampleDraft())
	if err == nil {
		t.Fatal("Submit() expected error")
	}
	want := []string{
		"category:Bebidas",
		"subcategory:Calientes@1",
		"subcategory:Frías@1",
		"product:Espresso@2",
		"product:Limonada@3",
		"delete-product:4",
		"delete-subcategory:3",
		"delete-subcategory:2",
		"delete-category:1",
	}
	if !reflect.DeepEqual(b.calls, want) {
		t.Errorf("calls = %v, want %v", b.calls, want)
	}
}

func TestSubmitCategoryFailureCreatesNothing(t *testing.T) {
	b := &fakeBackend{failOn: "category:Bebidas"}
	if _, err := Submit(context.Background(), b, sampleDraft()); err == nil {
		t.Fatal("Submit() expected error")
	}
	if len(b.calls) != 1 {
		t.Errorf("calls = %v, want only the failed category create", b.calls)
	}
}

func TestSubmitRejectsIncompleteDraft(t *testing.T) {
	b := &fakeBackend{}
	d := sampleDraft()
	d.Products[0].Subcategory = 7
	_, err := Submit(context.Background(), b, d)
	if !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("Submit() error = %v, want ErrStepIncomplete", err)
	}
	if len(b.calls) != 0 {
		t.Errorf("no backend call expected, got %v", b.calls)
	}
}

func TestWizardGating(t *testing.T) {
	w := NewWizard()
	if err := w.Back(); !errors.Is(err, ErrFirstStep) {
		t.Errorf("Back() at first step = %v", err)
	}
	if err := w.Next(); !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("Next() with empty name = %v, want ErrStepIncomplete", err)
	}

	w.Draft.Category.Name = "Postres"
	if err := w.Next(); err != nil {
		t.Fatalf("Next() = %v", err)
	}
	if w.Step() != StepSubcategories {
		t.Fatalf("step = %s, want subcategories", w.Step())
	}

	w.Draft.Subcategories = []SubcategoryDraft{{Name: " "}}
	if err := w.Next(); !errors.Is(err, ErrStepIncomplete) {
		t.Errorf("Next() with blank subcategory = %v", err)
	}
	w.Draft.Subcategories[0].Name = "Helados"
	for _, want := range []Step{StepProducts, StepSummary, StepSubmit} {
		if err := w.Next(); err != nil {
			t.Fatalf("Next() towards %s = %v", want, err)
		}
		if w.Step() != want {
			t.Fatalf("step = %s, want %s", w.Step(), want)
		}
	}
	if err := w.Next(); !errors.Is(err, ErrLastStep) {
		t.Errorf("Next() past submit = %v", err)
	}
	if err := w.Back(); err != nil || w.Step() != StepSummary {
		t.Errorf("Back() = %v, step %s", err, w.Step())
	}
}
