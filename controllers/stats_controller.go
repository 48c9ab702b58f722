package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/agencysite/models"
	"github.com/cppla/agencysite/uploads"
	"github.com/cppla/agencysite/utils"
)

// StatsController provides dashboard counters for the admin panel.
type StatsController struct {
	db  *gorm.DB
	svc *uploads.Service
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, svc *uploads.Service) *StatsController {
	return &StatsController{db: db, svc: svc}
}

// GetStats returns content and inbox counts plus the number of images per upload type.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var published, drafts, newContacts, contacts, languages, translations int64

	// A failing counter reports 0 instead of failing the whole dashboard.
	count := func(dst *int64, q *gorm.DB) {
		if err := q.Count(dst).Error; err != nil {
			utils.Logger.Warn("stats count failed", zap.Error(err))
			*dst = 0
		}
	}
	count(&published, s.db.Model(&models.BlogPost{}).Where("published = ?", true))
	count(&drafts, s.db.Model(&models.BlogPost{}).Where("published = ?", false))
	count(&contacts, s.db.Model(&models.Contact{}))
	count(&newContacts, s.db.Model(&models.Contact{}).Where("status = ?", models.ContactStatusNew))
	count(&languages, s.db.Model(&models.Language{}))
	count(&translations, s.db.Model(&models.Translation{}))

	images := gin.H{}
	for _, t := range []string{uploads.TypeBlog, uploads.TypeAvatar} {
		files, err := s.svc.List(ctx.Request.Context(), t)
		if err != nil {
			utils.Logger.Warn("stats list uploads failed", zap.String("type", t), zap.Error(err))
			images[t] = gin.H{"count": 0, "bytes": 0}
			continue
		}
		var bytes int64
		for _, f := range files {
			bytes += f.Size
		}
		images[t] = gin.H{"count": len(files), "bytes": bytes}
	}

	utils.Success(ctx, gin.H{
		"posts":        gin.H{"published": published, "drafts": drafts},
		"contacts":     gin.H{"total": contacts, "new": newContacts},
		"languages":    languages,
		"translations": translations,
		"uploads":      images,
	})
}
