package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserBestName(t *testing.T) {
	u := &User{DisplayName: "Display", Username: "user", Nickname: "nick", Email: "a@b.c"}
	assert.Equal(t, "Display", u.BestName())

	u.DisplayName = ""
	assert.Equal(t, "user", u.BestName())

	u.Username = ""
	assert.Equal(t, "nick", u.BestName())

	u.Nickname = ""
	assert.Equal(t, "a@b.c", u.BestName())

	assert.Equal(t, "", (&User{}).BestName())
}

func TestUserBestAvatar(t *testing.T) {
	u := &User{ProfileImage: "profile.png", PhotoURL: "photo.png"}
	assert.Equal(t, "profile.png", u.BestAvatar())

	u.ProfileImage = ""
	assert.Equal(t, "photo.png", u.BestAvatar())

	assert.Equal(t, "", (&User{}).BestAvatar())
}

func TestUserNotificationsEnabled(t *testing.T) {
	enabled := true
	disabled := false

	assert.True(t, (&User{}).NotificationsEnabled())
	assert.True(t, (&User{NotificationEnabled: &enabled}).NotificationsEnabled())
	assert.False(t, (&User{NotificationEnabled: &disabled}).NotificationsEnabled())
}

func TestProductThumbnail(t *testing.T) {
	assert.Equal(t, "", (&Product{}).Thumbnail())
	assert.Equal(t, "a.png", (&Product{Images: []string{"a.png", "b.png"}}).Thumbnail())
}

func TestChatListItemSearchKey(t *testing.T) {
	item := &ChatListItem{OtherName: "Bob", ProductTitle: "Monstera"}
	assert.Equal(t, "Bob Monstera", item.SearchKey())
}
