package model

// Product is the copy of an externally fetched catalog product that a
// line item owns. Only ID and Price are required by the cart.
type Product struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Image  string  `json:"image,omitempty"`
	Vendor string  `json:"vendor,omitempty"`
}
