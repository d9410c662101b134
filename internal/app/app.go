package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamvkosarev/ye-chat/config"
	"github.com/iamvkosarev/ye-chat/internal/model"
	in_memory "github.com/iamvkosarev/ye-chat/internal/storage/in-memory"
	key_value "github.com/iamvkosarev/ye-chat/internal/storage/key-value"
	"github.com/iamvkosarev/ye-chat/internal/usecase"
	"github.com/iamvkosarev/ye-chat/internal/web"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	StorageInMemory = "in-memory"
	StorageRedis    = "redis"

	shutdownTimeout = 10 * time.Second
)

var (
	ErrNoSurface          = errors.New("neither web nor telegram surface is enabled")
	ErrUnknownStorageKind = errors.New("unknown storage kind")
)

// Run wires the chat controller to its storage, the Gemini client and the
// enabled surfaces, and blocks until ctx is cancelled or a surface fails.
func Run(ctx context.Context, cfg *config.Config, apiKey string, logger *zap.Logger) error {
	if !cfg.Web.Enabled && !cfg.Telegram.Enabled {
		return ErrNoSurface
	}

	storage, closeStorage, err := newTranscriptStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	gemini, err := usecase.NewGeminiUsecase(ctx, apiKey, cfg.Gemini, logger.Named("gemini"))
	if err != nil {
		return err
	}

	chat := usecase.NewChatUsecase(
		usecase.ChatUsecaseDeps{
			TranscriptStorage: storage,
			Generator:         gemini,
			Logger:            logger.Named("chat"),
		}, model.Ye,
	)

	var telegram *usecase.TelegramUsecase
	if cfg.Telegram.Enabled {
		bot, err := api.NewBotAPI(cfg.Telegram.TelegramAPIToken)
		if err != nil {
			return fmt.Errorf("failed to create new bot: %w", err)
		}
		logger.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

		telegram, err = usecase.NewTelegramUsecase(
			cfg.Telegram, usecase.TelegramUsecaseDeps{
				Chat:   chat,
				Bot:    bot,
				Logger: logger.Named("telegram"),
			},
		)
		if err != nil {
			return fmt.Errorf("failed to create telegram usecase: %w", err)
		}
	}

	var server *http.Server
	if cfg.Web.Enabled {
		handler := web.NewChatHandler(chat, cfg.Web.SecureCookie, logger.Named("web"))
		server = &http.Server{
			Addr:        cfg.Web.Addr,
			Handler:     web.NewRouter(cfg.Web, handler, logger.Named("http")),
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 120 * time.Second,
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	wg := conc.NewWaitGroup()
	if telegram != nil {
		wg.Go(
			func() {
				if err := telegram.Run(runCtx); err != nil {
					errs <- fmt.Errorf("telegram: %w", err)
				}
				cancel()
			},
		)
	}
	if server != nil {
		wg.Go(
			func() {
				logger.Info("web server listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errs <- fmt.Errorf("web server: %w", err)
				}
				cancel()
			},
		)
		wg.Go(
			func() {
				<-runCtx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Warn("web server graceful shutdown failed", zap.Error(err))
				}
			},
		)
	}
	wg.Wait()
	close(errs)

	var runErr error
	for err := range errs {
		runErr = errors.Join(runErr, err)
	}
	logger.Info("stopped")
	return runErr
}

func newTranscriptStorage(
	ctx context.Context,
	cfg config.Storage,
	logger *zap.Logger,
) (usecase.TranscriptStorage, func(), error) {
	switch cfg.Kind {
	case StorageInMemory, "":
		return in_memory.NewTranscriptStorage(), func() {}, nil
	case StorageRedis:
		rdb := redis.NewClient(
			&redis.Options{
				Addr: cfg.RedisAddr,
			},
		)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to ping redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("using redis transcript storage", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.SessionTTL))
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.Error(err))
			}
		}
		return key_value.NewTranscriptStorage(rdb, cfg.SessionTTL), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStorageKind, cfg.Kind)
	}
}
