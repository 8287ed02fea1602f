package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/mcpserver"
	"github.com/sells-group/visibility-cli/internal/model"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analyze_transcript tool over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("mcp"); err != nil {
			return err
		}
		mode, err := model.ParseMode(cfg.Model.Mode)
		if err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		// Logs go to stderr; stdout carries the protocol.
		zap.L().Info("starting mcp server", zap.String("mode", string(mode)))
		return mcpserver.Serve(mcpserver.New(env.Pipeline, mcpserver.Defaults{Mode: mode}))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
