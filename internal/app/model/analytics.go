package model

import (
	"time"
)

type RecommendationType string

const (
	RecommendationSimilar       RecommendationType = "similar"
	RecommendationTrending      RecommendationType = "trending"
	RecommendationPersonalized  RecommendationType = "personalized"
	RecommendationCategoryBased RecommendationType = "category_based"
)

func (t RecommendationType) Valid() bool {
	switch t {
	case RecommendationSimilar, RecommendationTrending, RecommendationPersonalized, RecommendationCategoryBased:
		return true
	}
	return false
}

// ProductView is one recorded visit to a product detail page.
type ProductView struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent string    `gorm:"type:varchar(500)" json:"user_agent"`
	ViewedAt  time.Time `gorm:"not null;index" json:"viewed_at"`
}

func (ProductView) TableName() string {
	return "product_views"
}

type ProductRecommendation struct {
	ID        uint               `gorm:"primarykey" json:"id"`
	UserID    uint               `gorm:"not null;index" json:"user_id"`
	ProductID uint               `gorm:"not null;index" json:"product_id"`
	Type      RecommendationType `gorm:"type:varchar(30);not null;index" json:"type"`
	Score     float64            `gorm:"not null;default:0" json:"score"` // 0..1
	Reason    string             `gorm:"type:varchar(255)" json:"reason"`
	IsViewed  bool               `gorm:"default:false" json:"is_viewed"`
	IsClicked bool               `gorm:"default:false" json:"is_clicked"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (ProductRecommendation) TableName() string {
	return "product_recommendations"
}
