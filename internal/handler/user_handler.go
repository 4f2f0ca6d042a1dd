package handler

import (
	"errors"
	"mood-diary-go/internal/service"
	"mood-diary-go/pkg/log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理所有与普通用户相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest 定义了用户注册 API 的请求体结构。
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 处理用户注册请求。
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：用户名不能为空，密码至少 6 位")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			log.Warnf("Register: username '%s' already taken", req.Username)
			fail(c, http.StatusConflict, err.Error())
			return
		}
		log.Errorf("Register: User registration failed for '%s', error: %v", req.Username, err)
		fail(c, http.StatusInternalServerError, "注册失败")
		return
	}

	log.Infof("User '%s' registered successfully", user.Username)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "User registered successfully",
		"data":    user,
	})
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载：用户名和密码不能为空")
		return
	}

	accessToken, refreshToken, err := h.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warnf("Login: User authentication failed for '%s'", req.Username)
			fail(c, http.StatusUnauthorized, "无效的凭证")
			return
		}
		log.Errorf("Login: unexpected error for '%s': %v", req.Username, err)
		fail(c, http.StatusInternalServerError, "登录失败")
		return
	}

	log.Infof("User '%s' logged in successfully", req.Username)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Login successful",
		"data": gin.H{
			"token":        accessToken,
			"refreshToken": refreshToken,
		},
	})
}

// GetProfile 获取当前登录用户的个人信息。
// 用户信息已经由 AuthMiddleware 注入到上下文中。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	success(c, user)
}

// Logout 处理用户登出逻辑。
func (h *UserHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	if err := h.userService.Logout(c.Request.Context(), tokenString); err != nil {
		log.Error("Logout: Failed to logout", err)
		fail(c, http.StatusInternalServerError, "登出失败")
		return
	}

	log.Infof("User '%s' logged out successfully", user.Username)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "登出成功",
	})
}
