package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/youssefsiam38/agentscope/internal/config"
)

var (
	envFile   string
	sessionID string
	logLevel  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "agentscope",
	Short: "agentscope - a ReAct agent with compressed conversation memory",
	Long: `agentscope runs a conversational agent whose memory is folded into a
structured summary once it grows past a token threshold.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with environment variables")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "default", "session id")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}
