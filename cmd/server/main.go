package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Tyrowin/linechat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	config := server.NewConfigFromEnv()
	if err := server.SetupLogging(config.LogLevel, config.LogFormat, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("invalid logging configuration")
	}
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn().Err(envErr).Msg("ignoring unreadable .env file")
	}

	srv := server.New(*config)
	if err := srv.Listen(); err != nil {
		log.Fatal().Err(err).Msg("cannot bind; is another process using the port?")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"chat-server": func(ctx context.Context) error {
				log.Info().Msg("graceful shutdown initiated")
				defer cancel()
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("code", exitCode).Msg("server exited")
	os.Exit(exitCode)
}
