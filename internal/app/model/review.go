package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	MaxReviewTitleLength   = 200
	MaxReviewCommentLength = 2000
)

// ProductReview is a rating left by a user on a product.
type ProductReview struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"-"`
	UserID    uint     `gorm:"not null;index" json:"user_id"`
	User      *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Rating    int      `gorm:"not null" json:"rating"` // 1-5
	Title     string   `gorm:"type:varchar(200)" json:"title"`
	Comment   string   `gorm:"type:text" json:"comment"`

	IsVerifiedPurchase bool `gorm:"default:false" json:"is_verified_purchase"`
	HelpfulCount       int  `gorm:"default:0" json:"helpful_count"`
	IsApproved         bool `gorm:"default:true" json:"is_approved"`
}

func (ProductReview) TableName() string {
	return "product_reviews"
}

// ReviewHelpfulVote records that a user found a review helpful, once per user.
type ReviewHelpfulVote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ReviewID uint `gorm:"not null;index:idx_review_user_vote,unique" json:"review_id"`
	UserID   uint `gorm:"not null;index:idx_review_user_vote,unique" json:"user_id"`
}

func (ReviewHelpfulVote) TableName() string {
	return "review_helpful_votes"
}
