package service

import (
	"context"
	"fmt"
	"sync"

	"support-chat-go/internal/repository"
	"support-chat-go/pkg/log"

	"github.com/muesli/termenv"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// DarkModeDetector 返回系统是否偏好深色模式。
type DarkModeDetector func() bool

// SystemPrefersDark 根据终端背景色判断系统偏好。
func SystemPrefersDark() bool {
	return termenv.HasDarkBackground()
}

// ThemeService 定义了主题偏好的接口。
type ThemeService interface {
	IsDarkMode() bool
	// Theme 返回 "dark" 或 "light"。
	Theme() string
	// ToggleTheme 切换主题并持久化新值。
	ToggleTheme(ctx context.Context) error
	// InitTheme 优先使用已保存的偏好，否则使用系统偏好。
	// 读取存储失败时仍会回退到系统偏好，同时返回该错误。
	InitTheme(ctx context.Context) error
}

type themeService struct {
	repo   repository.ThemeRepository
	detect DarkModeDetector

	mu         sync.RWMutex
	isDarkMode bool
}

// NewThemeService 创建一个新的 ThemeService。detect 为 nil 时使用 SystemPrefersDark。
func NewThemeService(repo repository.ThemeRepository, detect DarkModeDetector) ThemeService {
	if detect == nil {
		detect = SystemPrefersDark
	}
	return &themeService{repo: repo, detect: detect}
}

func (s *themeService) IsDarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isDarkMode
}

func (s *themeService) Theme() string {
	if s.IsDarkMode() {
		return ThemeDark
	}
	return ThemeLight
}

func (s *themeService) ToggleTheme(ctx context.Context) error {
	s.mu.Lock()
	s.isDarkMode = !s.isDarkMode
	value := ThemeLight
	if s.isDarkMode {
		value = ThemeDark
	}
	s.mu.Unlock()

	if err := s.repo.Set(ctx, value); err != nil {
		return fmt.Errorf("failed to persist theme %q: %w", value, err)
	}
	log.Infow("主题已切换", "theme", value)
	return nil
}

func (s *themeService) InitTheme(ctx context.Context) error {
	saved, ok, err := s.repo.Get(ctx)
	if err != nil {
		log.Warnw("读取主题偏好失败，使用系统偏好", "error", err)
		s.set(s.detect())
		return fmt.Errorf("failed to load theme preference: %w", err)
	}
	if ok && saved != "" {
		s.set(saved == ThemeDark)
		return nil
	}
	s.set(s.detect())
	return nil
}

func (s *themeService) set(dark bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isDarkMode = dark
}
