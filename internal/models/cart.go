package models

// CartItem is a denormalized snapshot of a product taken when it was first added.
type CartItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    Amount   `json:"price"`
	Quantity int      `json:"quantity"`
	Images   []string `json:"images"`
	Category string   `json:"category"`
}

func (c CartItem) LineTotal() Amount {
	return c.Price * Amount(c.Quantity)
}

func NewCartItem(p Product, quantity int) CartItem {
	return CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: quantity,
		Images:   append([]string(nil), p.Images...),
		Category: p.Category,
	}
}

func CloneCart(in []CartItem) []CartItem {
	out := make([]CartItem, len(in))
	for i, item := range in {
		item.Images = append([]string(nil), item.Images...)
		out[i] = item
	}
	return out
}

// CheckoutResult reports the outcome of a stock reconciliation.
type CheckoutResult struct {
	Success         bool     `json:"success"`
	OutOfStockItems []string `json:"outOfStockItems,omitempty"`
}
