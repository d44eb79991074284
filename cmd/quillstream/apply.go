package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillflow/agent-core/patch"
	"github.com/quillflow/agent-core/protocol"
)

var (
	applyDocument string
	applyWrite    bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <payload.json>",
	Short: "Apply a single document-update payload to a file",
	Long: `Apply runs one update payload (the JSON a tool result would carry)
through the patch engine against a document on disk, prints the diff,
and with --write saves the result back to the file.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyDocument, "document", "d", "", "Document file to patch")
	applyCmd.Flags().BoolVarP(&applyWrite, "write", "w", false, "Write the patched text back to the document")
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	docPath := applyDocument
	if docPath == "" {
		docPath = cfg.Document
	}
	if docPath == "" {
		return fmt.Errorf("no document given (use --document or the config file)")
	}

	payload, err := readPayload(args[0])
	if err != nil {
		return err
	}
	update, err := protocol.ParseUpdateRequest(payload)
	if err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	req, err := patch.FromUpdateRequest(update)
	if err != nil {
		return err
	}

	docData, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	newText, err := patch.Apply(string(docData), req)
	if err != nil {
		if pe, ok := patch.AsError(err); ok {
			return fmt.Errorf("%s: %s", pe.Kind, pe.Message)
		}
		return err
	}

	printHunks(patch.Preview(string(docData), newText))

	if applyWrite {
		if err := os.WriteFile(docPath, []byte(newText), 0o644); err != nil {
			return fmt.Errorf("writing document: %w", err)
		}
		fmt.Printf("wrote %s\n", docPath)
	}
	return nil
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return data, nil
}

func printHunks(hunks []patch.Hunk) {
	for i, hunk := range hunks {
		if i > 0 {
			fmt.Println("...")
		}
		for _, line := range hunk.Lines {
			switch line.Kind {
			case patch.LineAdded:
				fmt.Printf("+ %s\n", line.Text)
			case patch.LineRemoved:
				fmt.Printf("- %s\n", line.Text)
			default:
				fmt.Printf("  %s\n", line.Text)
			}
		}
	}
}
