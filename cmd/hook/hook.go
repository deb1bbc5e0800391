package hook

import "github.com/spf13/cobra"

// HookCmd groups the git hook entry points.
var HookCmd = &cobra.Command{Use: "hook"}

func init() {
	HookCmd.AddCommand(postReceiveCmd)
}
