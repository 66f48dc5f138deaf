package domain

import "time"

// MaxCartLines caps the number of distinct lines in one cart.
const MaxCartLines = 50

// Cart is one user's cart. Version increases on every successful write.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Version   int        `json:"version"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is a cart line. Price is the catalog price when the line was added.
type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"`
	AddedAt   time.Time `json:"added_at"`
}

// LineTotal is price times quantity.
func (i *CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// TotalPrice sums every line.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].LineTotal()
	}
	return total
}

// ItemCount is the total quantity across lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// FindLine returns the index of the line for productID and color, or -1.
func (c *Cart) FindLine(productID, color string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Color == color {
			return i
		}
	}
	return -1
}

// FindItem returns the index of the line with the given id, or -1.
func (c *Cart) FindItem(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// RemoveItem drops the line with the given id and reports whether it existed.
func (c *Cart) RemoveItem(itemID string) bool {
	i := c.FindItem(itemID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}
