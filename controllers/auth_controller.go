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

// AuthController handles admin panel sign in and sign out.
type AuthController struct {
	db        *gorm.DB
	issuer    *utils.TokenIssuer
	blacklist *utils.TokenBlacklist
	guard     *utils.LoginGuard
}

// NewAuthController builds an AuthController. guard may be nil.
func NewAuthController(db *gorm.DB, issuer *utils.TokenIssuer, blacklist *utils.TokenBlacklist, guard *utils.LoginGuard) *AuthController {
	return &AuthController{db: db, issuer: issuer, blacklist: blacklist, guard: guard}
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	ip := ctx.ClientIP()
	if a.guard.Banned(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, loginLockedMessage)
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Username and password are required")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Logger.Error("load user failed", zap.Error(err))
		}
		a.rejectLogin(ctx, ip)
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		a.rejectLogin(ctx, ip)
		return
	}
	a.guard.Reset(ip)

	token, expiresAt, err := a.issuer.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		utils.Logger.Error("sign token failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, utils.InternalErrorMessage)
		return
	}

	now := time.Now()
	if err := a.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		utils.Logger.Warn("record last login failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	utils.Success(ctx, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      user,
	})
}

const loginLockedMessage = "Too many failed login attempts, please try again later"

func (a *AuthController) rejectLogin(ctx *gin.Context, ip string) {
	if a.guard.RecordFailure(ip) {
		utils.Logger.Warn("login locked out", zap.String("ip", ip))
		utils.Error(ctx, http.StatusTooManyRequests, loginLockedMessage)
		return
	}
	utils.Error(ctx, http.StatusUnauthorized, "Invalid username or password")
}

// Logout revokes the presented token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(24 * time.Hour)
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	a.blacklist.Revoke(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "Logged out"})
}

// Me returns the current authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	userID := ctx.GetUint(middleware.ContextUserIDKey)
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "User not found")
		return
	}
	utils.Success(ctx, user)
}

// EnsureAdmin creates the seed admin account when no user with that name exists.
// An existing account is left untouched so a changed password survives restarts.
func EnsureAdmin(db *gorm.DB, username, password, email string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("count admin users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user := models.User{Username: username, Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	utils.Logger.Info("seeded admin user", zap.String("username", username))
	return nil
}
