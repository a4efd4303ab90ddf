// Package main 是客服聊天客户端的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support-chat-go/internal/cli"
	"support-chat-go/internal/config"
	"support-chat-go/internal/handler"
	"support-chat-go/internal/repository"
	"support-chat-go/internal/service"
	"support-chat-go/pkg/chatapi"
	"support-chat-go/pkg/database"
	"support-chat-go/pkg/events"
	"support-chat-go/pkg/log"
	"support-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

// app 汇总一次运行所需的服务。
type app struct {
	cfg         config.Config
	redis       *redis.Client
	client      chatapi.Client
	broadcaster *events.Broadcaster
	store       service.ConversationStore
	tickets     service.TicketService
	theme       service.ThemeService
}

func main() {
	root := &cobra.Command{
		Use:           "support-chat",
		Short:         "客服聊天客户端：终端聊天与本地 UI 网关",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			config.Conf = cfg
			log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "配置文件路径，为空时只使用默认值与环境变量")

	root.AddCommand(newChatCmd(), newServeCmd(), newThemeCmd(), newTokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

// newApp 按配置组装服务。Redis 不可用时偏好与工单台账退回内存存储。
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		log.Warnf("Redis 不可用，改用内存存储: %v", err)
		rdb = nil
	}

	var (
		themeRepo  repository.ThemeRepository
		ticketRepo repository.TicketRepository
	)
	if rdb != nil {
		themeRepo = repository.NewThemeRepository(rdb, cfg.Redis.KeyPrefix+cfg.Theme.Key)
		ticketRepo = repository.NewTicketRepository(rdb, cfg.Redis.KeyPrefix+"tickets")
	} else {
		themeRepo = repository.NewMemoryThemeRepository()
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	theme := service.NewThemeService(themeRepo, service.SystemPrefersDark)
	if err := theme.InitTheme(ctx); err != nil {
		log.Warnf("读取主题偏好失败，使用系统设置: %v", err)
	}

	client := chatapi.NewClient(cfg.Backend)
	broadcaster := events.NewBroadcaster()
	store := service.NewConversationStore(client, broadcaster)

	return &app{
		cfg:         cfg,
		redis:       rdb,
		client:      client,
		broadcaster: broadcaster,
		store:       store,
		tickets:     service.NewTicketService(store, client, ticketRepo),
		theme:       theme,
	}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warnf("关闭 Redis 连接失败: %v", err)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "在终端中与客服助手对话",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, config.Conf)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s. Type /help for commands.\n", a.cfg.Backend.BaseURL)
			return cli.NewREPL(a.store, a.tickets, a.theme, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动本地 UI 网关（REST + WebSocket 状态推送）",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx, config.Conf)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	secret := cfg.UI.Secret
	if secret == "" {
		// 未配置密钥时 /api/v1 不鉴权，stream token 仍需签名
		secret = token.GenerateRandomString(32)
	}
	jwtManager := token.NewJWTManager(secret, cfg.UI.TokenExpireHours, cfg.UI.StreamTokenTTL)

	gin.SetMode(cfg.UI.Mode)
	r := handler.NewRouter(handler.RouterDeps{
		Store:       a.store,
		Tickets:     a.tickets,
		Theme:       a.theme,
		Broadcaster: a.broadcaster,
		JWTManager:  jwtManager,
		RequireAuth: cfg.UI.Secret != "",
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%s", cfg.UI.Port),
		Handler: r,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Infof("UI 网关启动于 %s，后端 %s", srv.Addr, cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务监听失败: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info("接收到停机信号，正在关闭服务...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP 服务器关闭失败: %w", err)
		}
		log.Info("服务已优雅关闭")
		return nil
	})
	return eg.Wait()
}

func newThemeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "查看当前主题",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), config.Conf)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), a.theme.Theme())
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "切换深色/浅色主题并保存",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), config.Conf)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.theme.ToggleTheme(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.theme.Theme())
			return nil
		},
	})
	return cmd
}

func newTokenCmd() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "为 UI 网关签发访问令牌（需要配置 ui.secret）",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Conf
			if cfg.UI.Secret == "" {
				return errors.New("ui.secret 未配置，网关不需要令牌")
			}
			jwtManager := token.NewJWTManager(cfg.UI.Secret, cfg.UI.TokenExpireHours, cfg.UI.StreamTokenTTL)
			tok, err := jwtManager.GenerateUIToken(subject)
			if err != nil {
				return fmt.Errorf("签发令牌失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ui", "令牌主体")
	return cmd
}
