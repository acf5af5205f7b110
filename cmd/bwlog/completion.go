package main

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Print a completion script for bwlog to stdout. Besides commands
and flags, it completes client names (--client), output formats
(--format) and notification kinds (--kinds).

Current shell only:
  bash        source <(bwlog completion bash)
  zsh         source <(bwlog completion zsh)
  fish        bwlog completion fish | source
  powershell  bwlog completion powershell | Out-String | Invoke-Expression

Every new shell:
  bash        bwlog completion bash > ~/.local/share/bash-completion/completions/bwlog
  zsh         bwlog completion zsh > "${fpath[1]}/_bwlog"   (needs compinit)
  fish        bwlog completion fish > ~/.config/fish/completions/bwlog.fish
  powershell  bwlog completion powershell > bwlog.ps1, sourced from $PROFILE
`,
	DisableFlagsInUseLine: true,
	// Completion must work even with a broken config file.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
	Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, out := cmd.Root(), cmd.OutOrStdout()
		switch args[0] {
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		default:
			return root.GenBashCompletionV2(out, true)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
