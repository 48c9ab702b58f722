package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/agencysite/uploads"
	"github.com/cppla/agencysite/utils"
)

// ConfigController serves read-only settings the admin panel needs before uploading.
type ConfigController struct {
	maxUploadBytes int64
}

func NewConfigController(maxUploadBytes int64) *ConfigController {
	return &ConfigController{maxUploadBytes: maxUploadBytes}
}

// GetUploadConfig returns the size limit, accepted extensions and public URL prefix.
func (c *ConfigController) GetUploadConfig(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"maxSize":    c.maxUploadBytes,
		"extensions": uploads.AllowedExtensions(),
		"types":      []string{uploads.TypeBlog, uploads.TypeAvatar},
		"urlPrefix":  "/" + uploads.PathPrefix,
	})
}
