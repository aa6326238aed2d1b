package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID          int64     `gorm:"primaryKey"`
	Email       string    `gorm:"uniqueIndex;not null"`
	Password    string    `gorm:"not null"`
	PhoneNumber string
	CreatedAt   time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type PostModel struct {
	ID        int64     `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Content   string    `gorm:"not null"`
	Published bool      `gorm:"not null;default:true"`
	UserID    int64     `gorm:"not null;index"`
	User      UserModel `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"not null"`
}

func (PostModel) TableName() string { return "posts" }

// VoteModel has no surrogate id; the (user_id, post_id) pair is the
// primary key, which enforces at most one vote per user per post.
type VoteModel struct {
	UserID int64     `gorm:"primaryKey;autoIncrement:false"`
	PostID int64     `gorm:"primaryKey;autoIncrement:false"`
	User   UserModel `gorm:"constraint:OnDelete:CASCADE"`
	Post   PostModel `gorm:"constraint:OnDelete:CASCADE"`
}

func (VoteModel) TableName() string { return "votes" }
