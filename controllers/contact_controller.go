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

// ContactController stores contact form submissions and lets admins triage them.
type ContactController struct {
	db *gorm.DB
}

// NewContactController builds a ContactController.
func NewContactController(db *gorm.DB) *ContactController {
	return &ContactController{db: db}
}

// Submit accepts a public contact form submission.
func (c *ContactController) Submit(ctx *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required,max=128"`
		Email   string `json:"email" binding:"required,email,max=255"`
		Company string `json:"company" binding:"max=255"`
		Phone   string `json:"phone" binding:"max=64"`
		Service string `json:"service" binding:"max=128"`
		Message string `json:"message" binding:"required,max=5000"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Name, a valid email and a message are required")
		return
	}

	contact := models.Contact{
		Name:    strings.TrimSpace(utils.SanitizePlain(req.Name)),
		Email:   strings.TrimSpace(req.Email),
		Company: strings.TrimSpace(utils.SanitizePlain(req.Company)),
		Phone:   strings.TrimSpace(utils.SanitizePlain(req.Phone)),
		Service: strings.TrimSpace(utils.SanitizePlain(req.Service)),
		Message: strings.TrimSpace(utils.SanitizePlain(req.Message)),
		Status:  models.ContactStatusNew,
		IP:      ctx.ClientIP(),
	}
	if contact.Name == "" || contact.Message == "" {
		utils.Error(ctx, http.StatusBadRequest, "Name, a valid email and a message are required")
		return
	}

	if err := c.db.Create(&contact).Error; err != nil {
		c.internal(ctx, "create contact", err)
		return
	}
	utils.Logger.Info("contact submitted", zap.Uint("id", contact.ID), zap.String("ip", contact.IP))
	utils.Created(ctx, contact)
}

// ListContacts returns a page of submissions, newest first.
func (c *ContactController) ListContacts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("pageSize"))

	query := c.db.Model(&models.Contact{})
	if status := strings.TrimSpace(ctx.Query("status")); status != "" {
		if !models.ValidContactStatus(status) {
			utils.Error(ctx, http.StatusBadRequest, "Invalid status")
			return
		}
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		like := likePattern(search)
		query = query.Where("name LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!' OR company LIKE ? ESCAPE '!' OR message LIKE ? ESCAPE '!'", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.internal(ctx, "count contacts", err)
		return
	}
	contacts := make([]models.Contact, 0, pageSize)
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&contacts).Error; err != nil {
		c.internal(ctx, "list contacts", err)
		return
	}
	utils.SuccessList(ctx, contacts, total)
}

// GetContact returns submission :id.
func (c *ContactController) GetContact(ctx *gin.Context) {
	contact, ok := c.load(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, contact)
}

// UpdateStatus moves submission :id to another status.
func (c *ContactController) UpdateStatus(ctx *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || !models.ValidContactStatus(req.Status) {
		utils.Error(ctx, http.StatusBadRequest, "Invalid status")
		return
	}
	contact, ok := c.load(ctx)
	if !ok {
		return
	}
	if err := c.db.Model(&contact).Update("status", req.Status).Error; err != nil {
		c.internal(ctx, "update contact", err)
		return
	}
	contact.Status = req.Status
	utils.Success(ctx, contact)
}

// DeleteContact removes submission :id.
func (c *ContactController) DeleteContact(ctx *gin.Context) {
	contact, ok := c.load(ctx)
	if !ok {
		return
	}
	if err := c.db.Delete(&contact).Error; err != nil {
		c.internal(ctx, "delete contact", err)
		return
	}
	utils.Success(ctx, nil)
}

func (c *ContactController) load(ctx *gin.Context) (models.Contact, bool) {
	var contact models.Contact
	id, ok := parseID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "Invalid id")
		return contact, false
	}
	if err := c.db.First(&contact, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "Contact not found")
			return contact, false
		}
		c.internal(ctx, "load contact", err)
		return contact, false
	}
	return contact, true
}

func (c *ContactController) internal(ctx *gin.Context, op string, err error) {
	utils.Logger.Error("contact "+op+" failed", zap.Error(err), zap.String("request_id", ctx.GetString(utils.RequestIDKey)))
	utils.Error(ctx, http.StatusInternalServerError, utils.InternalErrorMessage)
}
