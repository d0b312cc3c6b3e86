package entity

import "time"

type User struct {
	ID           string `json:"id" firestore:"id"`
	Email        string `json:"email" firestore:"email"`
	Username     string `json:"username,omitempty" firestore:"username,omitempty"`
	Nickname     string `json:"nickname,omitempty" firestore:"nickname,omitempty"`
	DisplayName  string `json:"display_name,omitempty" firestore:"displayName,omitempty"`
	ProfileImage string `json:"profile_image,omitempty" firestore:"profileImage,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`

	FCMTokens []string `json:"fcm_tokens,omitempty" firestore:"fcmTokens,omitempty"`
	// Absent means enabled; only an explicit false disables notifications.
	NotificationEnabled *bool `json:"notification_enabled,omitempty" firestore:"notificationEnabled,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// BestName returns the first non-empty display candidate.
func (u *User) BestName() string {
	for _, candidate := range []string{u.DisplayName, u.Username, u.Nickname, u.Email} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// BestAvatar returns the first non-empty avatar candidate, or empty when the
// caller should substitute a default.
func (u *User) BestAvatar() string {
	if u.ProfileImage != "" {
		return u.ProfileImage
	}
	return u.PhotoURL
}

// NotificationsEnabled reports whether pushes may be sent to this user.
func (u *User) NotificationsEnabled() bool {
	return u.NotificationEnabled == nil || *u.NotificationEnabled
}
