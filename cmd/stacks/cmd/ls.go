package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Long:  "List the directories and files directly under path, merged across all roots.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) (err error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	lib, err := openLibrary(false)
	if err != nil {
		return err
	}
	defer closeLibrary(lib, &err)

	dirs, err := lib.EnumerateDirectories(path)
	if err != nil {
		return err
	}
	files, err := lib.EnumerateFiles(path)
	if err != nil {
		return err
	}

	slices.Sort(dirs)
	slices.Sort(files)

	out := cmd.OutOrStdout()
	for _, d := range dirs {
		fmt.Fprintf(out, "%s/\n", d)
	}
	for _, f := range files {
		fmt.Fprintln(out, f)
	}

	if len(dirs)+len(files) == 0 {
		fmt.Fprintln(out, "(no entries)")
	}

	return nil
}
