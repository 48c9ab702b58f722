package models

import "time"

// Language is a locale the site is translated into.
type Language struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Code       string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	Name       string    `gorm:"size:64;not null" json:"name"`
	NativeName string    `gorm:"size:64" json:"nativeName"`
	IsDefault  bool      `gorm:"default:false" json:"isDefault"`
	IsActive   bool      `gorm:"not null" json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Translation is one dictionary entry for a language.
type Translation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LanguageCode string    `gorm:"size:16;not null;uniqueIndex:idx_translation_lang_key" json:"languageCode"`
	Key          string    `gorm:"column:translation_key;size:255;not null;uniqueIndex:idx_translation_lang_key" json:"key"`
	Value        string    `gorm:"type:text" json:"value"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
