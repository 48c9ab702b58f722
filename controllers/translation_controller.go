package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/agencysite/models"
	"github.com/cppla/agencysite/utils"
)

const translationCachePrefix = "cache:translations:"

var (
	errLanguageMissing = errors.New("language missing")
	errTranslationKey  = errors.New("translation key taken")
)

// TranslationController serves per-language dictionaries and their admin CRUD.
type TranslationController struct {
	db    *gorm.DB
	cache *utils.Cache
}

// NewTranslationController builds a TranslationController.
func NewTranslationController(db *gorm.DB, cache *utils.Cache) *TranslationController {
	return &TranslationController{db: db, cache: cache}
}

// Dictionary returns every key of language :lang as a flat key/value object.
func (t *TranslationController) Dictionary(ctx *gin.Context) {
	code := normalizeLanguageCode(ctx.Param("lang"))
	cacheKey := translationCachePrefix + code
	if cached, ok := t.cache.GetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
		return
	}

	if err := languageExists(t.db, code); err != nil {
		t.fail(ctx, "load language", err)
		return
	}
	var rows []models.Translation
	if err := t.db.Where("language_code = ?", code).Order("translation_key ASC").Find(&rows).Error; err != nil {
		t.fail(ctx, "load dictionary", err)
		return
	}
	dict := make(map[string]string, len(rows))
	for _, row := range rows {
		dict[row.Key] = row.Value
	}

	t.cache.SetJSON(cacheKey, utils.JSONResponse{Success: true, Data: dict}, time.Hour)
	utils.Success(ctx, dict)
}

// ListTranslations returns translation rows, filtered by ?lang and ?search.
func (t *TranslationController) ListTranslations(ctx *gin.Context) {
	query := t.db.Model(&models.Translation{})
	if code := normalizeLanguageCode(ctx.Query("lang")); code != "" {
		query = query.Where("language_code = ?", code)
	}
	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		like := likePattern(search)
		query = query.Where("translation_key LIKE ? ESCAPE '!' OR value LIKE ? ESCAPE '!'", like, like)
	}
	rows := make([]models.Translation, 0)
	if err := query.Order("language_code ASC").Order("translation_key ASC").Find(&rows).Error; err != nil {
		t.fail(ctx, "list translations", err)
		return
	}
	utils.SuccessList(ctx, rows, int64(len(rows)))
}

// CreateTranslation adds a key to an existing language.
func (t *TranslationController) CreateTranslation(ctx *gin.Context) {
	var req struct {
		LanguageCode string `json:"languageCode" binding:"required"`
		Key          string `json:"key" binding:"required"`
		Value        string `json:"value"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Language code and key are required")
		return
	}
	row := models.Translation{
		LanguageCode: normalizeLanguageCode(req.LanguageCode),
		Key:          strings.TrimSpace(req.Key),
		Value:        req.Value,
	}
	if row.Key == "" {
		utils.Error(ctx, http.StatusBadRequest, "Language code and key are required")
		return
	}

	err := t.db.Transaction(func(tx *gorm.DB) error {
		if err := languageExists(tx, row.LanguageCode); err != nil {
			return err
		}
		if err := ensureKeyFree(tx, row.LanguageCode, row.Key, 0); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		t.fail(ctx, "create translation", err)
		return
	}
	t.cache.InvalidateByPrefix(translationCachePrefix + row.LanguageCode)
	utils.Created(ctx, row)
}

// UpdateTranslation changes the key or value of translation :id.
func (t *TranslationController) UpdateTranslation(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return
	}
	var req struct {
		Key   *string `json:"key"`
		Value *string `json:"value"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}

	var row models.Translation
	err := t.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return err
		}
		if req.Key != nil {
			key := strings.TrimSpace(*req.Key)
			if key == "" {
				return errTranslationKeyRequired
			}
			if key != row.Key {
				if err := ensureKeyFree(tx, row.LanguageCode, key, row.ID); err != nil {
					return err
				}
			}
			row.Key = key
		}
		if req.Value != nil {
			row.Value = *req.Value
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		t.fail(ctx, "update translation", err)
		return
	}
	t.cache.InvalidateByPrefix(translationCachePrefix + row.LanguageCode)
	utils.Success(ctx, row)
}

// DeleteTranslation removes translation :id.
func (t *TranslationController) DeleteTranslation(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return
	}
	var row models.Translation
	if err := t.db.First(&row, id).Error; err != nil {
		t.fail(ctx, "load translation", err)
		return
	}
	if err := t.db.Delete(&row).Error; err != nil {
		t.fail(ctx, "delete translation", err)
		return
	}
	t.cache.InvalidateByPrefix(translationCachePrefix + row.LanguageCode)
	utils.Success(ctx, nil)
}

var errTranslationKeyRequired = errors.New("translation key required")

func (t *TranslationController) fail(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, errLanguageMissing):
		utils.Error(ctx, http.StatusNotFound, "Language not found")
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(ctx, http.StatusNotFound, "Translation not found")
	case errors.Is(err, errTranslationKey):
		utils.Error(ctx, http.StatusConflict, "Translation key already exists")
	case errors.Is(err, errTranslationKeyRequired):
		utils.Error(ctx, http.StatusBadRequest, "Language code and key are required")
	default:
		utils.Logger.Error(op+" failed", zap.Error(err), zap.String("request_id", ctx.GetString(utils.RequestIDKey)))
		utils.Error(ctx, http.StatusInternalServerError, utils.InternalErrorMessage)
	}
}

func languageExists(db *gorm.DB, code string) error {
	var count int64
	if err := db.Model(&models.Language{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errLanguageMissing
	}
	return nil
}

func ensureKeyFree(tx *gorm.DB, code, key string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Translation{}).Where("language_code = ? AND translation_key = ?", code, key)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errTranslationKey
	}
	return nil
}
