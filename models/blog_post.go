package models

import "time"

// BlogPost is an article on the public site. CoverImage holds an upload path such as "uploads/blog/x.png".
type BlogPost struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Slug         string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Excerpt      string     `gorm:"size:512" json:"excerpt"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	CoverImage   string     `gorm:"size:1024" json:"coverImage"`
	Author       string     `gorm:"size:128" json:"author"`
	LanguageCode string     `gorm:"size:16;index;default:'en'" json:"languageCode"`
	Published    bool       `gorm:"index;default:false" json:"published"`
	PublishedAt  *time.Time `json:"publishedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
