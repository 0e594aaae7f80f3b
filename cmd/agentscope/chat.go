package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/agentscope"
	"github.com/youssefsiam38/agentscope/compression"
	"github.com/youssefsiam38/agentscope/model"
	"github.com/youssefsiam38/agentscope/types"
)

var streamOutput bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent",
	Long: `Starts an interactive chat. Type /compress to compress memory now,
/stats to print compression statistics and /exit to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		ctx, logger := setupLogger(ctx)

		e, err := openEnv(ctx, logger)
		if err != nil {
			return err
		}
		defer e.close()
		if err := loadSession(ctx, e); err != nil {
			return err
		}

		var opts []agentscope.Option
		if streamOutput {
			printed := 0
			opts = append(opts, agentscope.WithStreamHandler(func(c *model.Chunk) {
				text := types.Blocks(c.Content...).JoinedText()
				if len(text) > printed {
					fmt.Print(text[printed:])
					printed = len(text)
				}
				if c.Done {
					printed = 0
				}
			}))
		}
		agent, err := newAgent(e.memory, logger, opts...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/exit", "/quit":
				return saveSession(ctx, e)
			case "/compress":
				compressNow(cmd, agent)
				continue
			case "/stats":
				printStats(cmd, agent)
				continue
			}

			reply, err := agent.Reply(ctx, types.NewUserMsg("user", line))
			if errors.Is(err, agentscope.ErrReplyInterrupted) {
				fmt.Fprintln(out, "(interrupted)")
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				logger.Error("reply failed", "error", err)
				continue
			}
			if streamOutput {
				fmt.Fprintln(out)
			} else {
				fmt.Fprintln(out, reply.GetTextContent())
			}
		}

		// Interrupted sessions are still saved.
		return saveSession(cmd.Context(), e)
	},
}

func compressNow(cmd *cobra.Command, agent *agentscope.Agent) {
	out := cmd.OutOrStdout()
	c := agent.Compressor()
	if c == nil {
		fmt.Fprintln(out, "compression is disabled; set AGENTSCOPE_TRIGGER_THRESHOLD")
		return
	}
	result, err := c.Compress(cmd.Context(), agent.Memory())
	if errors.Is(err, compression.ErrNothingToCompress) {
		fmt.Fprintln(out, "nothing to compress")
		return
	}
	if err != nil {
		fmt.Fprintf(out, "compression failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "compressed %d messages (%d -> %d tokens)\n",
		len(result.IDs), result.TokensBefore, result.TokensAfter)
}

func printStats(cmd *cobra.Command, agent *agentscope.Agent) {
	out := cmd.OutOrStdout()
	usage := agent.Usage()
	fmt.Fprintf(out, "tokens: %d in, %d out\n", usage.InputTokens, usage.OutputTokens)
	if c := agent.Compressor(); c != nil {
		s := c.Stats()
		fmt.Fprintf(out, "compression: %d runs, %d failures, %d messages, %d tokens saved\n",
			s.Runs, s.Failures, s.Compressed, s.TokensSaved)
	}
}

func init() {
	chatCmd.Flags().BoolVar(&streamOutput, "stream", false, "stream replies as they are generated")
	rootCmd.AddCommand(chatCmd)
}
