package entity

import "time"

type Message struct {
	ID         string    `json:"id" firestore:"id"`
	ChatID     string    `json:"chat_id" firestore:"chatId"`
	SenderID   string    `json:"sender_id" firestore:"senderId"`
	SenderName string    `json:"sender_name,omitempty" firestore:"senderName,omitempty"`
	Content    string    `json:"content" firestore:"text"`
	ImageURL   string    `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	Type       string    `json:"type" firestore:"type"` // "text", "image", "system"
	Deleted    bool      `json:"deleted,omitempty" firestore:"deleted,omitempty"`
	ReadBy     []string  `json:"read_by" firestore:"readBy"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
