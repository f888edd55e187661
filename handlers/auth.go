package handlers

import (
	"net/http"
	"strings"

	"restaurant-pos-api/config"
	"restaurant-pos-api/middleware"
	"restaurant-pos-api/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	Current string `json:"current_password" binding:"required"`
	New     string `json:"new_password" binding:"required,min=6"`
}

func userSummary(u *models.User) gin.H {
	return gin.H{"id": u.ID, "name": u.Name, "email": u.Email, "role": u.Role}
}

// Login checks staff credentials and returns a bearer token
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := config.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		zap.L().Info("login refused", zap.String("email", req.Email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !user.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		zap.L().Error("token signing failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	ts := now()
	if err := config.DB.Model(&user).UpdateColumn("last_login_at", ts).Error; err != nil {
		zap.L().Warn("could not record login time", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	zap.L().Info("user logged in", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      token,
		"expires_in": int(middleware.TokenTTL.Seconds()),
		"user":       userSummary(&user),
	})
}

func GetProfile(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, middleware.GetUserID(c)).Error; err != nil {
		dbError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ChangePassword replaces the caller's password after checking the current one
func ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var user models.User
	if err := config.DB.First(&user, middleware.GetUserID(c)).Error; err != nil {
		dbError(c, err, "User")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Current)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is wrong"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	if err := config.DB.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		dbError(c, err, "User")
		return
	}
	zap.L().Info("password changed", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
