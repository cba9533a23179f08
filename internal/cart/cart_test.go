package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/model"
)

func coffee() model.Product {
	return model.Product{
		ID:       "p1",
		Name:     "Coffee",
		Price:    decimal.NewFromInt(100),
		Category: "Beverages",
		Stock:    1,
		Variants: []model.VariantGroup{
			{
				ID:   "size",
				Name: "Size",
				Options: []model.VariantOption{
					{ID: "s", Name: "Small", PriceModifier: decimal.NewFromInt(-20)},
					{ID: "l", Name: "Large", PriceModifier: decimal.NewFromInt(30)},
				},
			},
			{
				ID:   "milk",
				Name: "Milk",
				Options: []model.VariantOption{
					{ID: "reg", Name: "Regular"},
					{ID: "oat", Name: "Oat", PriceModifier: decimal.NewFromInt(15)},
				},
			},
		},
	}
}

func TestKeySelectionOrderIrrelevant(t *testing.T) {
	a := Key("p1", map[string]model.VariantOption{
		"size": {ID: "l"},
		"milk": {ID: "oat"},
	})
	b := Key("p1", map[string]model.VariantOption{
		"milk": {ID: "oat"},
		"size": {ID: "l"},
	})
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "p1_milk:oat|size:l" {
		t.Errorf("key = %q", a)
	}
}

func TestAddMergesSameSignature(t *testing.T) {
	c := New()
	p := coffee()
	sel, err := ResolveSelection(p, map[string]string{"size": "l", "milk": "oat"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	c.Add(p, sel, "")
	c.Add(p, sel, "")
	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("lines = %d, want 1", len(items))
	}
	if items[0].Qty != 2 {
		t.Errorf("qty = %d, want 2", items[0].Qty)
	}
	// 100 + 30 (Large) + 15 (Oat)
	if !items[0].UnitPrice.Equal(decimal.NewFromInt(145)) {
		t.Errorf("unit price = %s, want 145", items[0].UnitPrice)
	}
	if items[0].Name != "Coffee (Large, Oat)" {
		t.Errorf("name = %q", items[0].Name)
	}
}

func TestAddDistinctSelectionsStaySeparate(t *testing.T) {
	c := New()
	p := coffee()
	large, _ := ResolveSelection(p, map[string]string{"size": "l", "milk": "reg"})
	small, _ := ResolveSelection(p, map[string]string{"size": "s", "milk": "reg"})

	c.Add(p, large, "")
	c.Add(p, small, "")
	if got := len(c.Items()); got != 2 {
		t.Fatalf("lines = %d, want 2", got)
	}
	if !c.Subtotal().Equal(decimal.NewFromInt(210)) { // 130 + 80
		t.Errorf("subtotal = %s, want 210", c.Subtotal())
	}
}

func TestPriceLockedAtAddTime(t *testing.T) {
	c := New()
	p := model.Product{ID: "p2", Name: "Tea", Price: decimal.NewFromInt(50), Stock: 1}
	key := c.Add(p, nil, "")

	p.Price = decimal.NewFromInt(500)
	c.Add(p, nil, "") // same signature merges, price unchanged

	items := c.Items()
	if len(items) != 1 || !items[0].UnitPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("locked price violated: %+v", items)
	}
	c.SetQuantity(key, 3)
	if !c.Subtotal().Equal(decimal.NewFromInt(150)) {
		t.Errorf("subtotal = %s, want 150", c.Subtotal())
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	c := New()
	key := c.Add(model.Product{ID: "p3", Name: "Cake", Price: decimal.NewFromInt(90)}, nil, "")
	c.SetQuantity(key, 0)
	if !c.Empty() {
		t.Error("cart should be empty after zeroing the only line")
	}
}

func TestQuantityReportsCurrentCount(t *testing.T) {
	c := New()
	key := c.Add(model.Product{ID: "p3", Name: "Cake", Price: decimal.NewFromInt(90)}, nil, "")
	c.SetQuantity(key, 4)
	if got := c.Quantity(key); got != 4 {
		t.Errorf("quantity = %d, want 4", got)
	}
	if got := c.Quantity("ghost"); got != 0 {
		t.Errorf("unknown key quantity = %d, want 0", got)
	}
}

func TestAddKeepsBothNotes(t *testing.T) {
	c := New()
	p := model.Product{ID: "p3", Name: "Cake", Price: decimal.NewFromInt(90)}
	key := c.Add(p, nil, "no sugar")
	c.Add(p, nil, "candle on top")
	c.Add(p, nil, "candle on top")
	if got := c.Items()[0].Notes; got != "no sugar; candle on top" {
		t.Errorf("notes = %q, want both kept without repeats", got)
	}
	if got := c.Quantity(key); got != 3 {
		t.Errorf("quantity = %d, want 3", got)
	}
}

func TestResolveSelectionValidation(t *testing.T) {
	p := coffee()

	if _, err := ResolveSelection(p, map[string]string{"size": "l"}); !errors.Is(err, ErrVariantRequired) {
		t.Errorf("missing group: err = %v", err)
	}
	if _, err := ResolveSelection(p, map[string]string{"size": "xl", "milk": "reg"}); !errors.Is(err, ErrUnknownVariantOption) {
		t.Errorf("bad option: err = %v", err)
	}
	plain := model.Product{ID: "p4", Name: "Water", Price: decimal.NewFromInt(20)}
	if _, err := ResolveSelection(plain, map[string]string{"size": "s"}); !errors.Is(err, ErrUnknownVariantGroup) {
		t.Errorf("selection on plain product: err = %v", err)
	}
}
