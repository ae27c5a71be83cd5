package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one cart line. Lines are unique by (ProductID, Size, Color, Fabric).
type Item struct {
	CartItemID uuid.UUID       `json:"cartItemId"`
	ProductID  uuid.UUID       `json:"productId"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Size       string          `json:"size,omitempty"`
	Color      string          `json:"color,omitempty"`
	Fabric     string          `json:"fabric,omitempty"`
	Category   string          `json:"category,omitempty"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"imageUrl,omitempty"`
}

func (i Item) sameLine(other Item) bool {
	return i.ProductID == other.ProductID &&
		i.Size == other.Size &&
		i.Color == other.Color &&
		i.Fabric == other.Fabric
}

// LineTotal returns price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the ordered list of lines for one cart session.
type Cart struct {
	Items []Item
}

// Add merges item into an existing line with the same key, or appends it with a fresh id.
func (c *Cart) Add(item Item) {
	for idx := range c.Items {
		if c.Items[idx].sameLine(item) {
			c.Items[idx].Quantity += item.Quantity
			return
		}
	}
	if item.CartItemID == uuid.Nil {
		item.CartItemID = uuid.New()
	}
	c.Items = append(c.Items, item)
}

// LineQuantity returns the quantity already held on the line item would merge into.
func (c Cart) LineQuantity(item Item) int {
	for _, existing := range c.Items {
		if existing.sameLine(item) {
			return existing.Quantity
		}
	}
	return 0
}

// QuantityOf sums quantities across every line of productID.
func (c Cart) QuantityOf(productID uuid.UUID) int {
	n := 0
	for _, item := range c.Items {
		if item.ProductID == productID {
			n += item.Quantity
		}
	}
	return n
}

// LinesOf counts the lines holding productID.
func (c Cart) LinesOf(productID uuid.UUID) int {
	n := 0
	for _, item := range c.Items {
		if item.ProductID == productID {
			n++
		}
	}
	return n
}

// UpdateQuantity sets qty on every line of productID. Non-positive qty leaves the cart untouched.
// It reports whether any line changed.
func (c *Cart) UpdateQuantity(productID uuid.UUID, qty int) bool {
	if qty <= 0 {
		return false
	}
	changed := false
	for idx := range c.Items {
		if c.Items[idx].ProductID == productID && c.Items[idx].Quantity != qty {
			c.Items[idx].Quantity = qty
			changed = true
		}
	}
	return changed
}

// Remove drops the line with cartItemID and reports whether it existed.
func (c *Cart) Remove(cartItemID uuid.UUID) bool {
	kept := c.Items[:0]
	removed := false
	for _, item := range c.Items {
		if item.CartItemID == cartItemID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return removed
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Total is the sum of price times quantity over all lines.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Count is the sum of quantities, shown as the cart badge.
func (c Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
