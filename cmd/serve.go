package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kayz/inkwright/internal/logger"
	"github.com/kayz/inkwright/internal/schedule"
	"github.com/kayz/inkwright/internal/studio"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local studio server",
	Long: `Run the HTTP server a desktop shell connects to. Exposes project
browsing, prompt rendering, and batch summarization control, with run
progress streamed over a websocket at /ws/runs. Scheduled summarization
jobs run while the server is up.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	w, err := openWorkspace()
	if err != nil {
		return err
	}
	defer w.Close()

	hub := studio.NewHub()
	defer hub.Close()

	orch, err := w.orchestrator(hub.Broadcast)
	if err != nil {
		return err
	}

	scheduleStore, err := schedule.NewStore(w.store.DB())
	if err != nil {
		return err
	}
	scheduler := schedule.NewScheduler(scheduleStore, w.store, orch)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	port := servePort
	if port == 0 {
		port = w.cfg.Serve.Port
	}

	server := studio.NewServer(w.store, w.scenes, w.registry, orch, hub)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("studio listening on http://127.0.0.1:%d", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	orch.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
