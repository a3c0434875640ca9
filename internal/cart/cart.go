// Package cart implements the shopping cart feeding the quote-request
// flow: a mutable collection of line items keyed by product id, persisted
// per user in Redis between requests.
package cart

// Item is one cart line. Name, type and price are snapshotted from the
// product when it is added so a later catalog edit does not silently change
// a cart the customer already reviewed.
type Item struct {
	ProductID  uint64 `json:"product_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	PriceCents uint32 `json:"price_cents"`
	Quantity   uint32 `json:"quantity"`
}

// Cart is an ordered collection of items. Adding a product that is already
// present merges into the existing line by incrementing its quantity rather
// than duplicating it.
type Cart struct {
	Items []Item `json:"items"`
}

// Add merges the item into the cart. A zero quantity counts as one so a
// bare "add to cart" click always does something.
func (c *Cart) Add(it Item) {
	if it.Quantity == 0 {
		it.Quantity = 1
	}
	for i := range c.Items {
		if c.Items[i].ProductID == it.ProductID {
			c.Items[i].Quantity += it.Quantity
			return
		}
	}
	c.Items = append(c.Items, it)
}

// Remove deletes the line for a product id, if present.
func (c *Cart) Remove(productID uint64) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets the quantity on an existing line. A quantity of zero
// removes the line.
func (c *Cart) UpdateQuantity(productID uint64, qty uint32) {
	if qty == 0 {
		c.Remove(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// TotalCents is the sum of price times quantity over all lines.
func (c *Cart) TotalCents() uint64 {
	var total uint64
	for _, it := range c.Items {
		total += uint64(it.PriceCents) * uint64(it.Quantity)
	}
	return total
}

// Count is the total number of units across all lines.
func (c *Cart) Count() uint32 {
	var n uint32
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
