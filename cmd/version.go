package cmd

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of deckviz",
	Run: func(cmd *cobra.Command, args []string) {
		info, _ := debug.ReadBuildInfo()
		writeVersion(cmd.OutOrStdout(), info)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// writeVersion prints the release, falling back to the module version, plus
// the VCS revision and Go toolchain when the binary records them.
func writeVersion(w io.Writer, info *debug.BuildInfo) {
	version := Version
	if info == nil {
		fmt.Fprintf(w, "deckviz %s\n", version)
		return
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	fmt.Fprintf(w, "deckviz %s\n", version)

	var rev, modified string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	if rev != "" {
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if modified == "true" {
			rev += "-dirty"
		}
		fmt.Fprintf(w, "  commit: %s\n", rev)
	}
	if info.GoVersion != "" {
		fmt.Fprintf(w, "  go:     %s\n", info.GoVersion)
	}
}
