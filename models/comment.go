package models

import (
	"time"

	"github.com/google/uuid"
)

type PageComment struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_page_comments_order_status,priority:1" json:"orderId"`
	PageNumber       int            `gorm:"not null" json:"pageNumber"`
	Body             string         `gorm:"type:text;not null" json:"body"`
	Status           CommentStatus  `gorm:"type:varchar(32);not null;index:idx_page_comments_order_status,priority:2" json:"status"`
	AuthorID         uuid.UUID      `gorm:"type:uuid;not null" json:"authorId"`
	AuthorRole       Role           `gorm:"type:varchar(20);not null" json:"authorRole"`
	ResolvedAt       *time.Time     `json:"resolvedAt,omitempty"`
	ResolvedByUserID *uuid.UUID     `gorm:"type:uuid" json:"resolvedByUserId,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	Replies          []CommentReply `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"replies,omitempty"`
}

type CommentReply struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CommentID  uuid.UUID `gorm:"type:uuid;not null;index" json:"commentId"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	AuthorID   uuid.UUID `gorm:"type:uuid;not null" json:"authorId"`
	AuthorRole Role      `gorm:"type:varchar(20);not null" json:"authorRole"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
