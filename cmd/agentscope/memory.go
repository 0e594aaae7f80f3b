package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/agentscope/internal/render"
	"github.com/youssefsiam38/agentscope/memory"
	"github.com/youssefsiam38/agentscope/token"
	"github.com/youssefsiam38/agentscope/types"
)

var (
	exportFormat string
	exportOutput string
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and export a session's memory",
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the messages, marks and summary of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, logger := setupLogger(cmd.Context())
		e, err := openEnv(ctx, logger)
		if err != nil {
			return err
		}
		defer e.close()
		if err := loadSession(ctx, e); err != nil {
			return err
		}

		msgs, marks, summary, err := snapshot(cmd, e.memory)
		if err != nil {
			return err
		}
		uncompressed, err := e.memory.GetMemory(ctx,
			memory.WithExcludeMark(memory.MarkCompressed),
			memory.WithPrependSummary(false))
		if err != nil {
			return err
		}
		tokens, err := token.NewCharCounter().Count(ctx, uncompressed)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session %s: %d messages, %d uncompressed (~%d tokens)\n",
			sessionID, len(msgs), len(uncompressed), tokens)
		if summary != "" {
			fmt.Fprintf(out, "\nsummary:\n%s\n", summary)
		}
		fmt.Fprintln(out)
		for _, msg := range msgs {
			printMsg(out, msg, marks[msg.ID])
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session's memory as JSON or HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, logger := setupLogger(cmd.Context())
		e, err := openEnv(ctx, logger)
		if err != nil {
			return err
		}
		defer e.close()
		if err := loadSession(ctx, e); err != nil {
			return err
		}

		msgs, marks, summary, err := snapshot(cmd, e.memory)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		switch exportFormat {
		case "html":
			return render.Write(w, render.Transcript{
				Title:   "Session " + sessionID,
				Summary: summary,
				Msgs:    msgs,
				Marks:   marks,
			})
		case "json":
			dicts := make([]map[string]any, 0, len(msgs))
			for _, msg := range msgs {
				d, err := msg.ToDict()
				if err != nil {
					return err
				}
				dicts = append(dicts, d)
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"session":  sessionID,
				"summary":  summary,
				"messages": dicts,
				"marks":    marks,
			})
		default:
			return fmt.Errorf("unknown format %q (json, html)", exportFormat)
		}
	},
}

// snapshot reads every message of mem with the marks the CLI knows about
func snapshot(cmd *cobra.Command, mem memory.Memory) ([]*types.Msg, map[string][]string, string, error) {
	ctx := cmd.Context()
	msgs, err := mem.GetMemory(ctx)
	if err != nil {
		return nil, nil, "", err
	}

	marks := make(map[string][]string)
	for _, mark := range []string{memory.MarkCompressed, memory.MarkHint} {
		marked, err := mem.GetMemory(ctx, memory.WithMark(mark))
		if err != nil {
			return nil, nil, "", err
		}
		for _, msg := range marked {
			marks[msg.ID] = append(marks[msg.ID], mark)
		}
	}
	if im, ok := mem.(*memory.InMemory); ok {
		for _, msg := range msgs {
			marks[msg.ID] = im.Marks(msg.ID)
		}
	}

	summary, err := mem.CompressedSummary(ctx)
	if err != nil {
		return nil, nil, "", err
	}
	return msgs, marks, summary, nil
}

func printMsg(w io.Writer, msg *types.Msg, marks []string) {
	tag := ""
	if len(marks) > 0 {
		sorted := slices.Sorted(slices.Values(marks))
		tag = fmt.Sprintf(" %v", sorted)
	}
	fmt.Fprintf(w, "%s  %-9s %-10s%s\n", msg.Timestamp, msg.Role, msg.Name, tag)
	if text := msg.GetTextContent(); text != "" {
		fmt.Fprintf(w, "    %s\n", text)
	}
	for _, b := range msg.GetContentBlocks(types.BlockToolUse, types.BlockToolResult) {
		fmt.Fprintf(w, "    [%s %s %s]\n", b.Type, b.Name, b.ID)
	}
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json or html")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file, - for stdout")
	memoryCmd.AddCommand(inspectCmd, exportCmd)
	rootCmd.AddCommand(memoryCmd)
}
