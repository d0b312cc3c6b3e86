package entity

import "time"

type Product struct {
	ID        string    `json:"id" firestore:"id"`
	SellerID  string    `json:"seller_id,omitempty" firestore:"sellerId,omitempty"`
	Title     string    `json:"title" firestore:"title"`
	Images    []string  `json:"images,omitempty" firestore:"images,omitempty"`
	Price     float64   `json:"price,omitempty" firestore:"price,omitempty"`
	Status    string    `json:"status,omitempty" firestore:"status,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Thumbnail returns the primary image, or empty when the product has none.
func (p *Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
