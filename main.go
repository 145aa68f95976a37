// Command curiogrid trains PPO agents with optional curiosity and safety
// planning on risk gridworlds, and compares the resulting learning curves
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "curiogrid",
		Short:        "Curiosity-driven PPO on risk gridworlds",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		trainCommand(),
		compareCommand(),
		renderCommand(),
		genmapCommand(),
	)
	return cmd
}
