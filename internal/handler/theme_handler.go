package handler

import (
	"net/http"

	"support-chat-go/internal/service"
	"support-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ThemeHandler 暴露主题偏好。
type ThemeHandler struct {
	theme service.ThemeService
}

func NewThemeHandler(theme service.ThemeService) *ThemeHandler {
	return &ThemeHandler{theme: theme}
}

func (h *ThemeHandler) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.themeData()})
}

func (h *ThemeHandler) ToggleTheme(c *gin.Context) {
	if err := h.theme.ToggleTheme(c.Request.Context()); err != nil {
		log.Error("切换主题失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "主题已切换但保存失败", "data": h.themeData()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.themeData()})
}

func (h *ThemeHandler) themeData() gin.H {
	return gin.H{"theme": h.theme.Theme(), "is_dark_mode": h.theme.IsDarkMode()}
}
