package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yz4230/forgehost/internal/config"
	"github.com/yz4230/forgehost/internal/server"
)

var serveFlags struct {
	port int
	root string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the forgehost HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cmd.Flags().Changed("port") {
			cfg.Port = serveFlags.port
		}
		if cmd.Flags().Changed("root") {
			cfg.DataRoot = serveFlags.root
		}

		srv := server.New(cfg, log.Logger)
		chSignal := make(chan os.Signal, 1)
		signal.Notify(chSignal, os.Interrupt, syscall.SIGTERM)

		wg := &sync.WaitGroup{}
		wg.Go(func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server error")
			}
		})

		sig := <-chSignal
		log.Info().Str("signal", sig.String()).Msg("shutting down server...")
		if err := srv.Stop(context.Background()); err != nil {
			log.Error().Err(err).Msg("error during server shutdown")
		}

		wg.Wait()
		log.Info().Msg("server stopped")
	},
}

func init() {
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVarP(&serveFlags.root, "root", "r", "./data", "Data root directory")
}
