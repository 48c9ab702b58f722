package controllers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/agencysite/uploads"
	"github.com/cppla/agencysite/utils"
)

// multipartSlack covers the multipart envelope on top of the file itself.
const multipartSlack = 1 << 20

// UploadController exposes the image upload subsystem over HTTP.
type UploadController struct {
	svc *uploads.Service
}

// NewUploadController builds an UploadController.
func NewUploadController(svc *uploads.Service) *UploadController {
	return &UploadController{svc: svc}
}

// Upload accepts a single multipart file in the "image" field.
func (u *UploadController) Upload(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, u.svc.MaxSize()+multipartSlack)

	header, err := ctx.FormFile("image")
	if err != nil {
		if isBodyTooLarge(err) {
			u.fail(ctx, uploads.ErrFileTooLarge)
			return
		}
		u.fail(ctx, uploads.ErrNoFile)
		return
	}

	file, err := header.Open()
	if err != nil {
		u.fail(ctx, err)
		return
	}
	defer file.Close()

	res, err := u.svc.Upload(ctx.Request.Context(), uploads.UploadInput{
		FieldName:    "image",
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
		Body:         file,
		Type:         ctx.PostForm("type"),
		CustomPath:   ctx.PostForm("customPath"),
	})
	if err != nil {
		u.fail(ctx, err)
		return
	}

	utils.Logger.Info("image uploaded",
		zap.String("path", res.Path),
		zap.Int64("size", res.Size),
		zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
	)
	utils.Success(ctx, res)
}

// ListFiles lists the images of ?type=, defaulting to blog.
func (u *UploadController) ListFiles(ctx *gin.Context) {
	files, err := u.svc.List(ctx.Request.Context(), ctx.Query("type"))
	if err != nil {
		u.fail(ctx, err)
		return
	}
	utils.SuccessList(ctx, files, int64(len(files)))
}

// RenameFile renames :filename inside the directory of the requested type.
func (u *UploadController) RenameFile(ctx *gin.Context) {
	var req struct {
		NewFilename string `json:"newFilename"`
		Type        string `json:"type"`
	}
	if !bindOptionalJSON(ctx, &req) {
		return
	}
	uploadType := req.Type
	if uploadType == "" {
		uploadType = ctx.Query("type")
	}

	res, err := u.svc.Rename(ctx.Request.Context(), uploadType, ctx.Param("filename"), req.NewFilename)
	if err != nil {
		u.fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// DeleteFile removes :filename. The type comes from the JSON body or ?type=.
func (u *UploadController) DeleteFile(ctx *gin.Context) {
	var req struct {
		Type string `json:"type"`
	}
	if !bindOptionalJSON(ctx, &req) {
		return
	}
	uploadType := req.Type
	if uploadType == "" {
		uploadType = ctx.Query("type")
	}

	if err := u.svc.Delete(ctx.Request.Context(), uploadType, ctx.Param("filename")); err != nil {
		u.fail(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

// ServeFile streams a stored object for backends that have no local directory to mount.
func (u *UploadController) ServeFile(ctx *gin.Context) {
	key := strings.TrimPrefix(ctx.Param("filepath"), "/")
	rc, obj, err := u.svc.Open(ctx.Request.Context(), key)
	if err != nil {
		if errors.Is(err, uploads.ErrFileNotFound) || errors.Is(err, uploads.ErrInvalidPath) {
			utils.Error(ctx, http.StatusNotFound, "Not found")
			return
		}
		u.fail(ctx, err)
		return
	}
	defer rc.Close()

	ctx.Header("Cache-Control", "public, max-age=86400")
	ctx.DataFromReader(http.StatusOK, obj.Size, uploads.MimeTypeFor(path.Base(key)), rc, nil)
}

// RequireServableUpload guards the /uploads mount. Only image files are served; hidden entries, which
// include in-flight ".part" files, and anything without an image extension get a 404.
func RequireServableUpload(ctx *gin.Context) {
	key := strings.TrimPrefix(ctx.Param("filepath"), "/")
	for _, seg := range strings.Split(key, "/") {
		if strings.HasPrefix(seg, ".") {
			utils.Error(ctx, http.StatusNotFound, "Not found")
			ctx.Abort()
			return
		}
	}
	if !uploads.IsImageFile(key) {
		utils.Error(ctx, http.StatusNotFound, "Not found")
		ctx.Abort()
		return
	}
	ctx.Next()
}

func (u *UploadController) fail(ctx *gin.Context, err error) {
	switch {
	case uploads.IsValidation(err):
		utils.Error(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, uploads.ErrFileNotFound):
		utils.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, uploads.ErrFileExists):
		utils.Error(ctx, http.StatusConflict, err.Error())
	default:
		utils.Logger.Error("upload request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, utils.InternalErrorMessage)
	}
}

// bindOptionalJSON decodes a JSON body when one is present. It writes a 400 and
// returns false on malformed input.
func bindOptionalJSON(ctx *gin.Context, dst interface{}) bool {
	if ctx.Request.Body == nil || ctx.Request.ContentLength == 0 {
		return true
	}
	if err := ctx.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
