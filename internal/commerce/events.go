// Package commerce forwards product and custom events, user identity
// changes and creative triggers to the upstream tracker
package commerce

import (
	"strconv"
	"strings"
)

// Event types as reported upstream
const (
	TypeProductView = "product_view"
	TypeAddToCart   = "add_to_cart"
	TypePurchase    = "purchase"
	TypeCustom      = "custom"
)

// Item is a product line. Price is a decimal string and Currency an ISO 4217 code.
type Item struct {
	ProductID        string `json:"productId"`
	ProductVariantID string `json:"productVariantId"`
	Price            string `json:"price"`
	Currency         string `json:"currency"`
	ProductImage     string `json:"productImage,omitempty"`
	Name             string `json:"name,omitempty"`
	Quantity         int    `json:"quantity,omitempty"`
	Category         string `json:"category,omitempty"`
}

// Valid reports whether the item carries every required field and a parseable price
func (i Item) Valid() bool {
	if i.ProductID == "" || i.ProductVariantID == "" || i.Currency == "" {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(i.Price), 64)
	return err == nil
}

func (i Item) attributes() map[string]interface{} {
	attrs := map[string]interface{}{
		"productId":        i.ProductID,
		"productVariantId": i.ProductVariantID,
		"price":            i.Price,
		"currency":         i.Currency,
	}
	if i.ProductImage != "" {
		attrs["productImage"] = i.ProductImage
	}
	if i.Name != "" {
		attrs["name"] = i.Name
	}
	if i.Quantity != 0 {
		attrs["quantity"] = i.Quantity
	}
	if i.Category != "" {
		attrs["category"] = i.Category
	}
	return attrs
}

// details is the debug view of the first item of an event
func (i Item) details() map[string]interface{} {
	details := map[string]interface{}{
		"productId":        i.ProductID,
		"productVariantId": i.ProductVariantID,
		"quantity":         i.Quantity,
	}
	if i.Name != "" {
		details["name"] = i.Name
	}
	if i.ProductImage != "" {
		details["productImage"] = i.ProductImage
	}
	if i.Category != "" {
		details["category"] = i.Category
	}
	return details
}

// ValidItems drops items missing a product id, variant id, price or currency
func ValidItems(items []Item) []Item {
	valid := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Valid() {
			valid = append(valid, item)
		}
	}
	return valid
}

func itemAttributes(items []Item) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, item.attributes())
	}
	return out
}

// ProductView is a product detail page view
type ProductView struct {
	Items    []Item `json:"items"`
	Deeplink string `json:"deeplink,omitempty"`
}

// AddToCart is an item added to the cart
type AddToCart struct {
	Items    []Item `json:"items"`
	Deeplink string `json:"deeplink,omitempty"`
}

// Purchase is a completed order
type Purchase struct {
	Items      []Item `json:"items"`
	OrderID    string `json:"orderId"`
	CartID     string `json:"cartId,omitempty"`
	CartCoupon string `json:"cartCoupon,omitempty"`
}

// Custom is an application-defined event
type Custom struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}
