package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/agencysite/middleware"
	"github.com/cppla/agencysite/models"
	"github.com/cppla/agencysite/utils"
)

const blogCachePrefix = "cache:blog:"

// BlogController manages blog posts. Anonymous readers only see published posts.
type BlogController struct {
	db    *gorm.DB
	cache *utils.Cache
}

// NewBlogController builds a BlogController; cache may be disabled.
func NewBlogController(db *gorm.DB, cache *utils.Cache) *BlogController {
	return &BlogController{db: db, cache: cache}
}

type blogPostRequest struct {
	Title        *string `json:"title"`
	Slug         *string `json:"slug"`
	Excerpt      *string `json:"excerpt"`
	Content      *string `json:"content"`
	CoverImage   *string `json:"coverImage"`
	Author       *string `json:"author"`
	LanguageCode *string `json:"languageCode"`
	Published    *bool   `json:"published"`
}

// ListPosts returns a page of posts. ?search, ?language and, for admins, ?published filter it.
func (b *BlogController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("pageSize"))
	search := strings.TrimSpace(ctx.Query("search"))
	language := strings.TrimSpace(ctx.Query("language"))
	admin := middleware.IsAuthenticated(ctx)

	// Only anonymous, unsearched pages are cached to bound the key space.
	cacheable := !admin && search == ""
	cacheKey := fmt.Sprintf("%slist:lang=%s:page=%d:size=%d", blogCachePrefix, language, page, pageSize)
	if cacheable {
		if cached, ok := b.cache.GetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			return
		}
	}

	query := b.db.Model(&models.BlogPost{})
	if !admin {
		query = query.Where("published = ?", true)
	} else if v := ctx.Query("published"); v == "true" || v == "false" {
		query = query.Where("published = ?", v == "true")
	}
	if language != "" {
		query = query.Where("language_code = ?", language)
	}
	if search != "" {
		like := likePattern(search)
		query = query.Where("title LIKE ? ESCAPE '!' OR excerpt LIKE ? ESCAPE '!' OR content LIKE ? ESCAPE '!'", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		b.internal(ctx, "count posts", err)
		return
	}
	posts := make([]models.BlogPost, 0, pageSize)
	if err := query.Order("published_at DESC").Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		b.internal(ctx, "list posts", err)
		return
	}

	if cacheable {
		b.cache.SetJSON(cacheKey, utils.JSONResponse{Success: true, Data: posts, Total: &total}, time.Hour)
	}
	utils.SuccessList(ctx, posts, total)
}

// GetPost returns one post by slug.
func (b *BlogController) GetPost(ctx *gin.Context) {
	slug := ctx.Param("slug")
	admin := middleware.IsAuthenticated(ctx)
	cacheKey := blogCachePrefix + "detail:" + slug
	if !admin {
		if cached, ok := b.cache.GetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			return
		}
	}

	query := b.db.Where("slug = ?", slug)
	if !admin {
		query = query.Where("published = ?", true)
	}
	var post models.BlogPost
	if err := query.First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "Blog post not found")
			return
		}
		b.internal(ctx, "load post", err)
		return
	}

	if !admin {
		b.cache.SetJSON(cacheKey, utils.JSONResponse{Success: true, Data: post}, time.Hour)
	}
	utils.Success(ctx, post)
}

// CreatePost stores a new post. The slug is derived from the title when absent.
func (b *BlogController) CreatePost(ctx *gin.Context) {
	var req blogPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" || req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		utils.Error(ctx, http.StatusBadRequest, "Title and content are required")
		return
	}

	var post models.BlogPost
	applyBlogRequest(&post, req)
	if req.Slug == nil || strings.TrimSpace(*req.Slug) == "" {
		post.Slug = utils.Slugify(post.Title)
	}
	if post.Slug == "" {
		utils.Error(ctx, http.StatusBadRequest, "Invalid slug")
		return
	}
	if post.Author == "" {
		post.Author = ctx.GetString(middleware.ContextUsernameKey)
	}
	if post.LanguageCode == "" {
		post.LanguageCode = "en"
	}

	taken, err := b.slugTaken(post.Slug, 0)
	if err != nil {
		b.internal(ctx, "check slug", err)
		return
	}
	if taken {
		utils.Error(ctx, http.StatusConflict, "Slug already exists")
		return
	}

	if err := b.db.Create(&post).Error; err != nil {
		b.internal(ctx, "create post", err)
		return
	}
	b.cache.InvalidateByPrefix(blogCachePrefix)
	utils.Created(ctx, post)
}

// UpdatePost applies the fields present in the body to post :id.
func (b *BlogController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return
	}
	var req blogPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}

	var post models.BlogPost
	if err := b.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "Blog post not found")
			return
		}
		b.internal(ctx, "load post", err)
		return
	}

	applyBlogRequest(&post, req)
	if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Content) == "" {
		utils.Error(ctx, http.StatusBadRequest, "Title and content are required")
		return
	}
	if post.Slug == "" {
		utils.Error(ctx, http.StatusBadRequest, "Invalid slug")
		return
	}
	taken, err := b.slugTaken(post.Slug, post.ID)
	if err != nil {
		b.internal(ctx, "check slug", err)
		return
	}
	if taken {
		utils.Error(ctx, http.StatusConflict, "Slug already exists")
		return
	}

	if err := b.db.Save(&post).Error; err != nil {
		b.internal(ctx, "update post", err)
		return
	}
	b.cache.InvalidateByPrefix(blogCachePrefix)
	utils.Success(ctx, post)
}

// DeletePost removes post :id.
func (b *BlogController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return
	}
	res := b.db.Delete(&models.BlogPost{}, id)
	if res.Error != nil {
		b.internal(ctx, "delete post", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "Blog post not found")
		return
	}
	b.cache.InvalidateByPrefix(blogCachePrefix)
	utils.Success(ctx, nil)
}

func (b *BlogController) slugTaken(slug string, exceptID uint) (bool, error) {
	var count int64
	q := b.db.Model(&models.BlogPost{}).Where("slug = ?", slug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (b *BlogController) internal(ctx *gin.Context, op string, err error) {
	utils.Logger.Error("blog "+op+" failed", zap.Error(err), zap.String("request_id", ctx.GetString(utils.RequestIDKey)))
	utils.Error(ctx, http.StatusInternalServerError, utils.InternalErrorMessage)
}

// applyBlogRequest copies present fields onto post. Content is sanitized HTML; the rest is plain text.
func applyBlogRequest(post *models.BlogPost, req blogPostRequest) {
	if req.Title != nil {
		post.Title = strings.TrimSpace(utils.SanitizePlain(*req.Title))
	}
	if req.Slug != nil {
		post.Slug = utils.Slugify(*req.Slug)
	}
	if req.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(utils.SanitizePlain(*req.Excerpt))
	}
	if req.Content != nil {
		post.Content = utils.Sanitize(*req.Content)
	}
	if req.CoverImage != nil {
		post.CoverImage = strings.TrimSpace(*req.CoverImage)
	}
	if req.Author != nil {
		post.Author = strings.TrimSpace(utils.SanitizePlain(*req.Author))
	}
	if req.LanguageCode != nil {
		post.LanguageCode = strings.ToLower(strings.TrimSpace(*req.LanguageCode))
	}
	if req.Published != nil {
		if *req.Published && (!post.Published || post.PublishedAt == nil) {
			now := time.Now()
			post.PublishedAt = &now
		}
		post.Published = *req.Published
	}
}
