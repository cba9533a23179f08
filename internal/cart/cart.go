// Package cart holds the pre-dispatch order lines for one table. Lines
// merge by product-and-variant signature, and unit prices are locked at
// add time so catalog edits never reprice an in-flight cart.
package cart

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/model"
)

var (
	ErrUnknownVariantGroup  = errors.New("cart: unknown variant group")
	ErrUnknownVariantOption = errors.New("cart: unknown variant option")
	ErrVariantRequired      = errors.New("cart: variant selection required")
)

// Key derives the merge signature for a product and variant selection.
// Plain products use the product id; variant products append the
// selected pairs sorted by group id so selection order never matters.
func Key(productID string, sel map[string]model.VariantOption) string {
	if len(sel) == 0 {
		return productID
	}
	parts := make([]string, 0, len(sel))
	for groupID, opt := range sel {
		parts = append(parts, groupID+":"+opt.ID)
	}
	sort.Strings(parts)
	return productID + "_" + strings.Join(parts, "|")
}

// ResolveSelection validates a raw group-to-option choice against the
// product's variant groups and resolves it to full options. Every group
// the product declares must be chosen exactly once.
func ResolveSelection(p model.Product, choice map[string]string) (map[string]model.VariantOption, error) {
	if len(p.Variants) == 0 {
		if len(choice) != 0 {
			return nil, fmt.Errorf("%w: product %s has no variants", ErrUnknownVariantGroup, p.ID)
		}
		return nil, nil
	}

	sel := make(map[string]model.VariantOption, len(p.Variants))
	for _, group := range p.Variants {
		optID, ok := choice[group.ID]
		if !ok {
			return nil, fmt.Errorf("%w: group %q on product %s", ErrVariantRequired, group.Name, p.ID)
		}
		found := false
		for _, opt := range group.Options {
			if opt.ID == optID {
				sel[group.ID] = opt
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: option %q in group %q", ErrUnknownVariantOption, optID, group.Name)
		}
	}
	if len(choice) != len(p.Variants) {
		return nil, fmt.Errorf("%w: product %s", ErrUnknownVariantGroup, p.ID)
	}
	return sel, nil
}

// Cart is an ordered set of lines keyed by variant signature. Not safe
// for concurrent use; callers serialize per table.
type Cart struct {
	order []string
	lines map[string]*model.CartItem
}

func New() *Cart {
	return &Cart{lines: make(map[string]*model.CartItem)}
}

// Add puts one unit of the product with the given resolved selection
// into the cart, merging into an existing line with the same signature.
// The locked unit price is base price plus the variant deltas.
func (c *Cart) Add(p model.Product, sel map[string]model.VariantOption, notes string) string {
	key := Key(p.ID, sel)
	if line, ok := c.lines[key]; ok {
		line.Qty++
		line.Notes = mergeNotes(line.Notes, notes)
		return key
	}

	price := p.Price
	for _, opt := range sel {
		price = price.Add(opt.PriceModifier)
	}
	c.lines[key] = &model.CartItem{
		ProductID:        p.ID,
		Name:             displayName(p, sel),
		Category:         p.Category,
		IsVeg:            p.IsVeg,
		UnitPrice:        price,
		Qty:              1,
		Notes:            notes,
		SelectedVariants: cloneSelection(sel),
	}
	c.order = append(c.order, key)
	return key
}

// mergeNotes keeps both lines' kitchen notes when they differ,
// without repeating a note that is already on the line.
func mergeNotes(existing, incoming string) string {
	if incoming == "" {
		return existing
	}
	if existing == "" {
		return incoming
	}
	for _, part := range strings.Split(existing, "; ") {
		if part == incoming {
			return existing
		}
	}
	return existing + "; " + incoming
}

// Quantity returns the line's current quantity, zero when absent.
func (c *Cart) Quantity(key string) int {
	if line, ok := c.lines[key]; ok {
		return line.Qty
	}
	return 0
}

// SetQuantity pins a line to an absolute quantity. Zero or less removes
// the line.
func (c *Cart) SetQuantity(key string, qty int) {
	line, ok := c.lines[key]
	if !ok {
		return
	}
	if qty <= 0 {
		c.Remove(key)
		return
	}
	line.Qty = qty
}

// Remove drops the line entirely.
func (c *Cart) Remove(key string) {
	if _, ok := c.lines[key]; !ok {
		return
	}
	delete(c.lines, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.order = nil
	c.lines = make(map[string]*model.CartItem)
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Items returns copies of the lines in insertion order.
func (c *Cart) Items() []model.CartItem {
	items := make([]model.CartItem, 0, len(c.order))
	for _, key := range c.order {
		items = append(items, *c.lines[key])
	}
	return items
}

// Subtotal sums the line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, key := range c.order {
		sum = sum.Add(c.lines[key].LineTotal())
	}
	return sum
}

func displayName(p model.Product, sel map[string]model.VariantOption) string {
	if len(sel) == 0 {
		return p.Name
	}
	names := make([]string, 0, len(sel))
	for _, group := range p.Variants {
		if opt, ok := sel[group.ID]; ok {
			names = append(names, opt.Name)
		}
	}
	return p.Name + " (" + strings.Join(names, ", ") + ")"
}

func cloneSelection(sel map[string]model.VariantOption) map[string]model.VariantOption {
	if sel == nil {
		return nil
	}
	out := make(map[string]model.VariantOption, len(sel))
	for k, v := range sel {
		out[k] = v
	}
	return out
}
