// Package catalog holds the category creation wizard and the icon/description heuristics
// used when catalog records are created without them.
package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Step int

const (
	StepCategory Step = iota
	StepSubcategories
	StepProducts
	StepSummary
	StepSubmit
)

var stepNames = map[Step]string{
	StepCategory:      "category",
	StepSubcategories: "subcategories",
	StepProducts:      "products",
	StepSummary:       "summary",
	StepSubmit:        "submit",
}

func (s Step) String() string {
	return stepNames[s]
}

var (
	ErrStepIncomplete = errors.New("step incomplete")
	ErrFirstStep      = errors.New("already at first step")
	ErrLastStep       = errors.New("already at last step")
)

type CategoryDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type SubcategoryDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProductDraft references its subcategory by index into Draft.Subcategories.
type ProductDraft struct {
	Subcategory int             `json:"subcategory"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Available   *bool           `json:"available"`
}

// Draft is everything the wizard collects before submission.
type Draft struct {
	Category      CategoryDraft      `json:"category"`
	Subcategories []SubcategoryDraft `json:"subcategories"`
	Products      []ProductDraft     `json:"products"`
}

// Problems lists what blocks the given step, empty when it is complete.
func (d *Draft) Problems(step Step) []string {
	var out []string
	switch step {
	case StepCategory:
		if strings.TrimSpace(d.Category.Name) == "" {
			out = append(out, "category name is required")
		}
	case StepSubcategories:
		if len(d.Subcategories) == 0 {
			out = append(out, "at least one subcategory is required")
		}
		for i, s := range d.Subcategories {
			if strings.TrimSpace(s.Name) == "" {
				out = append(out, "subcategory "+strconv.Itoa(i+1)+" needs a name")
			}
		}
	case StepProducts:
		for i, p := range d.Products {
			if strings.TrimSpace(p.Name) == "" {
				out = append(out, "product "+strconv.Itoa(i+1)+" needs a name")
			}
			if p.Price.IsNegative() {
				out = append(out, "product "+strconv.Itoa(i+1)+" has a negative price")
			}
			if p.Subcategory < 0 || p.Subcategory >= len(d.Subcategories) {
				out = append(out, "product "+strconv.Itoa(i+1)+" references an unknown subcategory")
			}
		}
	}
	return out
}

// Validate checks every data step; used by the server before a transactional create.
func (d *Draft) Validate() error {
	var all []string
	for _, s := range []Step{StepCategory, StepSubcategories, StepProducts} {
		all = append(all, d.Problems(s)...)
	}
	if len(all) > 0 {
		return errors.Wrap(ErrStepIncomplete, strings.Join(all, "; "))
	}
	return nil
}

// Wizard is the linear step controller around a Draft. State lives only in memory.
type Wizard struct {
	Draft Draft
	step  Step
}

func NewWizard() *Wizard {
	return &Wizard{}
}

func (w *Wizard) Step() Step {
	return w.step
}

// Next advances when the current step has no problems.
func (w *Wizard) Next() error {
	if w.step >= StepSubmit {
		return ErrLastStep
	}
	if p := w.Draft.Problems(w.step); len(p) > 0 {
		return errors.Wrap(ErrStepIncomplete, strings.Join(p, "; "))
	}
	w.step++
	return nil
}

func (w *Wizard) Back() error {
	if w.step == StepCategory {
		return ErrFirstStep
	}
	w.step--
	return nil
}

// Backend is the set of remote calls Submit needs. Each Create returns the new id.
type Backend interface {
	CreateCategory(ctx context.Context, c CategoryDraft) (uint, error)
	CreateSubcategory(ctx context.Context, categoryID uint, s SubcategoryDraft) (uint, error)
	CreateProduct(ctx context.Context, subcategoryID uint, p ProductDraft) (uint, error)
	DeleteCategory(ctx context.Context, id uint) error
	DeleteSubcategory(ctx context.Context, id uint) error
	DeleteProduct(ctx context.Context, id uint) error
}

// Created records the ids produced by a successful Submit.
type Created struct {
	CategoryID     uint   `json:"category_id"`
	SubcategoryIDs []uint `json:"subcategory_ids"`
	ProductIDs     []uint `json:"product_ids"`
}

// Submit creates the category, then each subcategory, then each product, in
// that order, feeding each returned id into the next call. If any call fails,
// everything already created is deleted in reverse order.
func Submit(ctx context.Context, b Backend, d Draft) (*Created, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var undo []func(context.Context) error
	rollback := func(cause error) error {
		// compensation must run even when ctx was cancelled
		cctx := context.WithoutCancel(ctx)
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](cctx); err != nil {
				zap.L().Error("wizard compensation failed", zap.Error(err))
			}
		}
		return cause
	}

	out := &Created{}
	catID, err := b.CreateCategory(ctx, d.Category)
	if err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	out.CategoryID = catID
	undo = append(undo, func(c context.Context) error { return b.DeleteCategory(c, catID) })

	for _, s := range d.Subcategories {
		id, err := b.CreateSubcategory(ctx, catID, s)
		if err != nil {
			return nil, rollback(errors.Wrapf(err, "create subcategory %q", s.Name))
		}
		out.SubcategoryIDs = append(out.SubcategoryIDs, id)
		undo = append(undo, func(c context.Context) error { return b.DeleteSubcategory(c, id) })
	}

	for _, p := range d.Products {
		id, err := b.CreateProduct(ctx, out.SubcategoryIDs[p.Subcategory], p)
		if err != nil {
			return nil, rollback(errors.Wrapf(err, "create product %q", p.Name))
		}
		out.ProductIDs = append(out.ProductIDs, id)
		undo = append(undo, func(c context.Context) error { return b.DeleteProduct(c, id) })
	}
	return out, nil
}
