package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dataforge/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP ingestion API",
	RunE: func(cmd *cobra.Command, args []string) error {
		stk, err := buildStack(true)
		if err != nil {
			return err
		}
		defer stk.close()

		addr := viper.GetString("server.addr")
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: api.NewServer(stk.proc, stk.snaps, DB).Router(),
		}

		errCh := make(chan error, 1)
		go func() {
			log.Printf("Listening on %s", addr)
			errCh <- srv.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-stop:
			log.Println("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	viper.SetDefault("server.addr", ":8080")
}
