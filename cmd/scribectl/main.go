// Command scribectl controls meeting recordings: it starts and stops them
// through the agent's command topic and reads meetings, transcripts and
// recordings from the shared store.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/scribe/version"
)

func main() {
	flags := &rootFlags{}
	if err := newRootCmd(flags, appRunner(flags)).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(flags *rootFlags, run runFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Start, stop and inspect recorded meetings",
		Version:       version.Get().String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file (default: ./cmd/scribectl/config.yml, ./config.yml)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file loaded before SCRIBE_* variables are bound")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "print results as JSON")

	root.AddCommand(
		newStartCmd(run),
		newStopCmd(run),
		newShowCmd(run),
		newListCmd(run),
		newDeleteCmd(run),
		newDownloadCmd(run),
		newStatusCmd(run),
	)
	return root
}
