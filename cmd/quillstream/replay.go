package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quillflow/agent-core/cancel"
	"github.com/quillflow/agent-core/replay"
	"github.com/quillflow/agent-core/session"
)

var (
	replayRecording string
	replayDocument  string
	replayRequestID string
	replayFollow    bool
	replayOutput    string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded frame stream against a document",
	Long: `Replay feeds a JSON-lines frame recording through a full session:
text deltas stream to stdout as they arrive, document updates carried by
tool results run through the patch engine, and the final document text
can be written back out with --output.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayRecording, "recording", "r", "", "Frame recording (JSON lines), - for stdin")
	replayCmd.Flags().StringVarP(&replayDocument, "document", "d", "", "Document file the updates apply against")
	replayCmd.Flags().StringVar(&replayRequestID, "request-id", "", "Operation id for cancellation (generated when empty)")
	replayCmd.Flags().BoolVarP(&replayFollow, "follow", "f", false, "Follow the recording as it grows")
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", "", "Write the final document text to this file")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	recording := replayRecording
	if recording == "" {
		recording = cfg.Recording
	}
	docPath := replayDocument
	if docPath == "" {
		docPath = cfg.Document
	}
	if recording == "" {
		return fmt.Errorf("no recording given (use --recording or the config file)")
	}

	docText := ""
	if docPath != "" {
		data, err := os.ReadFile(docPath)
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		docText = string(data)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := openSource(ctx, recording, replayFollow)
	if err != nil {
		return err
	}

	registry := cancel.NewRegistry()
	sess := session.New(registry,
		session.WithRequestID(replayRequestID),
		session.WithDocument(cfg.DocumentID, docText),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		printEvents(sess.Events())
	}()

	outcome := sess.Run(ctx, source)
	<-done

	fmt.Println()
	printSummary(os.Stdout, outcome)

	if replayOutput != "" && outcome.Status == session.StatusCompleted {
		if err := os.WriteFile(replayOutput, []byte(outcome.DocumentText), 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Printf("wrote %s\n", replayOutput)
	}

	if outcome.Status == session.StatusFailed {
		return outcome.Err
	}
	return nil
}

// printSummary reports the terminal state of a replayed session.
func printSummary(w io.Writer, outcome *session.Outcome) {
	fmt.Fprintf(w, "status: %s\n", outcome.Status)
	if outcome.Err != nil {
		fmt.Fprintf(w, "error: %v\n", outcome.Err)
	}
	fmt.Fprintf(w, "turns: %d, patches: %d\n", len(outcome.Transcript), len(outcome.Patches))
	for _, issue := range outcome.Issues {
		fmt.Fprintf(w, "issue: %s: %s\n", issue.Kind, issue.Detail)
	}
}

// openSource builds the frame source for a recording path. "-" reads a
// complete recording from stdin; --follow tails a file as it grows.
func openSource(ctx context.Context, path string, follow bool) (*replay.Source, error) {
	if path == "-" {
		return replay.New(os.Stdin), nil
	}
	if follow {
		return replay.Tail(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	// The source drains the file fully; closing early would truncate it.
	return replay.New(f), nil
}

// printEvents renders session events for the terminal: deltas stream
// inline, patches print a one-line summary.
func printEvents(events <-chan session.Event) {
	for event := range events {
		switch e := event.(type) {
		case session.DeltaEvent:
			fmt.Print(e.Delta.Text)
		case session.PatchEvent:
			if e.Response.Success {
				fmt.Printf("\n[patch %s applied, %d hunks]\n", e.Response.UpdateType, len(e.Preview))
			} else {
				fmt.Printf("\n[patch %s failed: %s]\n", e.Response.UpdateType, e.Response.Error.Message)
			}
		}
	}
}
