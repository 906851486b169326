package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ajeu-backend/internal/core/auth"
	"ajeu-backend/internal/core/cache"
	"ajeu-backend/internal/core/config"
	"ajeu-backend/internal/core/database"
	"ajeu-backend/internal/core/storage"
	"ajeu-backend/internal/queue"
	"ajeu-backend/internal/service"
	"ajeu-backend/internal/transport/http/handler"
	"ajeu-backend/internal/transport/http/router"
)

// App 进程内共享的依赖；cmd/api 与 cmd/admin 都从这里组装
type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	JWT   *auth.JWTer
	Cache *cache.Cache

	Auth          *service.AuthService
	Matricules    *service.MatriculeService
	Members       *service.MemberService
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Users         *service.UserService
	Admin         *service.AdminService

	pub *queue.AMQPPublisher
}

// New 组装服务；redis 关闭时 Cache 为 nil，读路径直接回源
func New(cfg *config.Config, log *zap.Logger, db *gorm.DB) *App {
	a := &App{
		Cfg: cfg,
		Log: log,
		DB:  db,
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		},
	}
	if cfg.Redis.Enabled {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTLSec)*time.Second)
	}

	codes := service.NewCodeAllocator(cfg.Code.Prefix, cfg.Code.MaxAttempts)
	store := &storage.Local{
		Dir:          cfg.Uploads.Dir,
		PublicPrefix: cfg.Uploads.PublicPrefix,
		MaxBytes:     cfg.Uploads.MaxAvatarBytes,
	}
	refreshTTL := time.Duration(cfg.JWT.RefreshTokenTTLDay) * 24 * time.Hour

	a.Auth = service.NewAuthService(db, a.JWT, codes, a.Cache, refreshTTL, log)
	a.Matricules = service.NewMatriculeService(db, codes, a.Cache, log)
	a.Members = service.NewMemberService(db, codes, a.Cache, store, cfg.App.BaseURL, log)
	a.Conversations = service.NewConversationService(db)
	a.Messages = service.NewMessageService(db)
	a.Users = service.NewUserService(db)
	a.Admin = service.NewAdminService(db, codes, a.Cache, log)
	return a
}

// Migrate 按配置建表
func (a *App) Migrate() error {
	if err := database.Migrate(a.DB); err != nil {
		return err
	}
	a.Log.Info("automigrate done")
	return nil
}

func (a *App) routerOptions() router.Options {
	return router.Options{
		UploadsDir:    a.Cfg.Uploads.Dir,
		UploadsPrefix: a.Cfg.Uploads.PublicPrefix,
		Timeout:       time.Duration(a.Cfg.App.HTTP.WriteTimeoutSec) * time.Second,
	}
}

func (a *App) APIEngine() *gin.Engine {
	reg := &router.Registry{}
	reg.Register(
		handler.NewAuthHandler(a.Auth),
		handler.NewConversationHandler(a.Conversations, a.Messages),
		handler.NewMatriculeHandler(a.Matricules),
		handler.NewMemberHandler(a.Members),
		handler.NewUserHandler(a.Users, a.Auth),
	)
	return router.NewAPIEngine(a.Log, a.JWT, reg, a.routerOptions())
}

func (a *App) AdminEngine() *gin.Engine {
	reg := &router.Registry{}
	reg.Register(handler.NewAdminHandler(a.Admin))
	return router.NewAdminEngine(a.Log, a.JWT, reg, a.routerOptions())
}

// StartRelay amqp 开启时在后台跑 outbox 投递，直到 ctx 结束
func (a *App) StartRelay(ctx context.Context) {
	if !a.Cfg.AMQP.Enabled {
		a.Log.Info("amqp disabled, outbox rows stay pending")
		return
	}
	a.pub = queue.NewAMQPPublisher(a.Cfg.AMQP.URL)
	r := &queue.Relay{
		DB:       a.DB,
		Pub:      a.pub,
		Log:      a.Log.Named("relay"),
		Interval: time.Duration(a.Cfg.AMQP.PollSec) * time.Second,
		Batch:    a.Cfg.AMQP.Batch,
	}
	go r.Run(ctx)
}

// Close 释放 redis / amqp 连接
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Warn("redis close", zap.Error(err))
		}
	}
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.Log.Warn("amqp close", zap.Error(err))
		}
	}
}

// OpenDB 按配置连库
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
}
