package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillflow/agent-core/cancel"
	"github.com/quillflow/agent-core/httpapi"
	"github.com/quillflow/agent-core/replay"
	"github.com/quillflow/agent-core/session"
)

var (
	serveListen    string
	serveRecording string
	serveDocument  string
	serveRequestID string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cancellation and event-stream control API",
	Long: `Serve exposes the control surface over HTTP: POST
/operations/{id}/cancel, GET /operations/{id}, and a WebSocket event
stream at /sessions/{id}/events. With --recording it also starts a
replay session whose events the stream endpoint serves, so a UI can be
driven end-to-end from a recorded run.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default :8787)")
	serveCmd.Flags().StringVarP(&serveRecording, "recording", "r", "", "Frame recording to replay as a live session")
	serveCmd.Flags().StringVarP(&serveDocument, "document", "d", "", "Document file the replayed session edits")
	serveCmd.Flags().StringVar(&serveRequestID, "request-id", "replay", "Request id for the replayed session")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	listen := serveListen
	if listen == "" {
		listen = cfg.Listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := cancel.NewRegistry()
	api := httpapi.NewServer(registry)

	if serveRecording != "" {
		if err := startReplaySession(ctx, registry, api, cfg); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:    listen,
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	registry.AbortAll("shutdown")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// startReplaySession tails the recording as a live frame source and
// registers the session's event stream with the API under its request
// id.
func startReplaySession(ctx context.Context, registry *cancel.Registry, api *httpapi.Server, cfg fileConfig) error {
	docPath := serveDocument
	if docPath == "" {
		docPath = cfg.Document
	}
	docText := ""
	if docPath != "" {
		data, err := os.ReadFile(docPath)
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		docText = string(data)
	}

	source, err := replay.Tail(ctx, serveRecording)
	if err != nil {
		return err
	}

	sess := session.New(registry,
		session.WithRequestID(serveRequestID),
		session.WithDocument(cfg.DocumentID, docText),
	)
	api.RegisterSession(sess.ID(), sess.Events())

	go func() {
		outcome := sess.Run(ctx, source)
		slog.Info("replay session finished",
			"request_id", sess.ID(), "status", outcome.Status, "patches", len(outcome.Patches))
	}()
	return nil
}
