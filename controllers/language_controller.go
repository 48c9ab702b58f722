package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/agencysite/models"
	"github.com/cppla/agencysite/utils"
)

// LanguageController manages the site's locales. At most one language is the default.
type LanguageController struct {
	db    *gorm.DB
	cache *utils.Cache
}

// NewLanguageController builds a LanguageController.
func NewLanguageController(db *gorm.DB, cache *utils.Cache) *LanguageController {
	return &LanguageController{db: db, cache: cache}
}

type languageRequest struct {
	Code       *string `json:"code"`
	Name       *string `json:"name"`
	NativeName *string `json:"nativeName"`
	IsDefault  *bool   `json:"isDefault"`
	IsActive   *bool   `json:"isActive"`
}

// ListLanguages returns active languages, or every language with ?all=true.
func (l *LanguageController) ListLanguages(ctx *gin.Context) {
	query := l.db.Model(&models.Language{})
	if ctx.Query("all") != "true" {
		query = query.Where("is_active = ?", true)
	}
	languages := make([]models.Language, 0)
	if err := query.Order("is_default DESC").Order("code ASC").Find(&languages).Error; err != nil {
		l.fail(ctx, "list languages", err)
		return
	}
	utils.SuccessList(ctx, languages, int64(len(languages)))
}

// CreateLanguage adds a language. New languages are active unless isActive is false.
func (l *LanguageController) CreateLanguage(ctx *gin.Context) {
	var req languageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	lang := models.Language{IsActive: true}
	applyLanguageRequest(&lang, req)
	if lang.Code == "" || lang.Name == "" {
		utils.Error(ctx, http.StatusBadRequest, "Code and name are required")
		return
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureCodeFree(tx, lang.Code, 0); err != nil {
			return err
		}
		if lang.IsDefault {
			if err := clearDefault(tx); err != nil {
				return err
			}
		}
		return tx.Create(&lang).Error
	})
	if err != nil {
		l.fail(ctx, "create language", err)
		return
	}
	utils.Created(ctx, lang)
}

// UpdateLanguage applies the fields present in the body to language :id.
func (l *LanguageController) UpdateLanguage(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return
	}
	var req languageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}

	var lang models.Language
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lang, id).Error; err != nil {
			return err
		}
		oldCode := lang.Code
		applyLanguageRequest(&lang, req)
		if lang.Code == "" || lang.Name == "" {
			return errLanguageFieldsRequired
		}
		if lang.Code != oldCode {
			if err := ensureCodeFree(tx, lang.Code, lang.ID); err != nil {
				return err
			}
			if err := tx.Model(&models.Translation{}).Where("language_code = ?", oldCode).
				Update("language_code", lang.Code).Error; err != nil {
				return err
			}
		}
		if lang.IsDefault {
			if err := clearDefault(tx); err != nil {
				return err
			}
		}
		return tx.Save(&lang).Error
	})
	if err != nil {
		l.fail(ctx, "update language", err)
		return
	}
	l.cache.InvalidateByPrefix(translationCachePrefix)
	utils.Success(ctx, lang)
}

// DeleteLanguage removes language :id together with its translations.
func (l *LanguageController) DeleteLanguage(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return
	}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var lang models.Language
		if err := tx.First(&lang, id).Error; err != nil {
			return err
		}
		if err := tx.Where("language_code = ?", lang.Code).Delete(&models.Translation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&lang).Error
	})
	if err != nil {
		l.fail(ctx, "delete language", err)
		return
	}
	l.cache.InvalidateByPrefix(translationCachePrefix)
	utils.Success(ctx, nil)
}

var (
	errLanguageCodeTaken      = errors.New("language code taken")
	errLanguageFieldsRequired = errors.New("language code and name required")
)

func (l *LanguageController) fail(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(ctx, http.StatusNotFound, "Language not found")
	case errors.Is(err, errLanguageCodeTaken):
		utils.Error(ctx, http.StatusConflict, "Language code already exists")
	case errors.Is(err, errLanguageFieldsRequired):
		utils.Error(ctx, http.StatusBadRequest, "Code and name are required")
	default:
		utils.Logger.Error(op+" failed", zap.Error(err), zap.String("request_id", ctx.GetString(utils.RequestIDKey)))
		utils.Error(ctx, http.StatusInternalServerError, utils.InternalErrorMessage)
	}
}

func ensureCodeFree(tx *gorm.DB, code string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Language{}).Where("code = ?", code)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errLanguageCodeTaken
	}
	return nil
}

func clearDefault(tx *gorm.DB) error {
	return tx.Model(&models.Language{}).Where("is_default = ?", true).Update("is_default", false).Error
}

func applyLanguageRequest(lang *models.Language, req languageRequest) {
	if req.Code != nil {
		lang.Code = normalizeLanguageCode(*req.Code)
	}
	if req.Name != nil {
		lang.Name = strings.TrimSpace(utils.SanitizePlain(*req.Name))
	}
	if req.NativeName != nil {
		lang.NativeName = strings.TrimSpace(utils.SanitizePlain(*req.NativeName))
	}
	if req.IsDefault != nil {
		lang.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		lang.IsActive = *req.IsActive
	}
}

func normalizeLanguageCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
