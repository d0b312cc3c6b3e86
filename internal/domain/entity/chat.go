package entity

import "time"

// Chat covers both historical document shapes: older documents carry only
// sellerId/buyerId, newer ones also carry a participants array. Readers must
// tolerate either.
type Chat struct {
	ID              string         `json:"id" firestore:"id"`
	Participants    []string       `json:"participants,omitempty" firestore:"participants,omitempty"`
	SellerID        string         `json:"seller_id,omitempty" firestore:"sellerId,omitempty"`
	BuyerID         string         `json:"buyer_id,omitempty" firestore:"buyerId,omitempty"`
	ProductID       string         `json:"product_id,omitempty" firestore:"productId,omitempty"`
	ProductTitle    string         `json:"product_title,omitempty" firestore:"productTitle,omitempty"`
	ProductImage    string         `json:"product_image,omitempty" firestore:"productImage,omitempty"`
	LastMessage     string         `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageTime time.Time      `json:"last_message_time,omitempty" firestore:"lastMessageTime,omitempty"`
	UnreadCount     map[string]int `json:"unread_count,omitempty" firestore:"unreadCount,omitempty"`
	LeftBy          []string       `json:"left_by,omitempty" firestore:"leftBy,omitempty"`
	CreatedAt       time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time      `json:"updated_at" firestore:"updatedAt"`
}

// SortKey returns the instant used to order the chat list, in milliseconds.
// lastMessageTime wins over updatedAt; documents with neither sort to the
// epoch.
func (c *Chat) SortKey() int64 {
	if !c.LastMessageTime.IsZero() {
		return c.LastMessageTime.UnixMilli()
	}
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt.UnixMilli()
	}
	return 0
}

// Counterpart resolves the other participant for userID, preferring the
// explicit seller/buyer pair and falling back to the participants array.
func (c *Chat) Counterpart(userID string) string {
	if c.SellerID != "" || c.BuyerID != "" {
		if c.SellerID == userID {
			return c.BuyerID
		}
		return c.SellerID
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether userID takes part in the chat under either
// document shape.
func (c *Chat) HasParticipant(userID string) bool {
	if c.SellerID == userID || c.BuyerID == userID {
		return true
	}
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// LeftByUser reports whether userID has exited the chat.
func (c *Chat) LeftByUser(userID string) bool {
	for _, u := range c.LeftBy {
		if u == userID {
			return true
		}
	}
	return false
}

// UnreadFor returns the unread counter for userID, zero when the map or the
// entry is absent.
func (c *Chat) UnreadFor(userID string) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}
