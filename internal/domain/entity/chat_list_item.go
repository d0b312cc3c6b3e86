package entity

// ChatListItem is the derived view model the chat list UI consumes. It is
// recomputed from the merged chat documents on every update and never
// persisted.
type ChatListItem struct {
	ChatID        string `json:"chat_id"`
	OtherUserID   string `json:"other_user_id,omitempty"`
	OtherName     string `json:"other_name"`
	OtherAvatar   string `json:"other_avatar"`
	ProductTitle  string `json:"product_title,omitempty"`
	ProductThumb  string `json:"product_thumb,omitempty"`
	LastMessage   string `json:"last_message,omitempty"`
	LastActivity  int64  `json:"last_activity"`
	LastTimeLabel string `json:"last_time_label,omitempty"`
	Unread        int    `json:"unread"`
}

// SearchKey is the string the free-text filter matches against.
func (i *ChatListItem) SearchKey() string {
	return i.OtherName + " " + i.ProductTitle
}
