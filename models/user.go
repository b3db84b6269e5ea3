package models

// User represents a registered account. Passwords are stored as bcrypt
// hashes only; the hash is never serialized to clients.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password;size:255;not null" json:"-"`
	Username     string `gorm:"size:64;not null" json:"username"`
	AvatarURL    string `gorm:"size:512" json:"avatarUrl"`
	Posts        []Post `json:"-"`
}
