package cmd

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the namespace as a tree",
	Long:  "Walk the namespace from path, descending into archives when archive traversal is enabled.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().IntP("depth", "L", 0, "maximum depth (0 for unlimited)")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) (err error) {
	start := "."
	if len(args) > 0 {
		start = strings.Trim(args[0], "/")
	}
	maxDepth, _ := cmd.Flags().GetInt("depth")

	lib, err := openLibrary(false)
	if err != nil {
		return err
	}
	defer closeLibrary(lib, &err)

	out := cmd.OutOrStdout()
	dirs, files := 0, 0

	err = fs.WalkDir(lib.FS(), start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == start {
			fmt.Fprintln(out, p)
			return nil
		}

		depth := strings.Count(strings.TrimPrefix(p, start+"/"), "/") + 1
		if start == "." {
			depth = strings.Count(p, "/") + 1
		}
		if maxDepth > 0 && depth > maxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			dirs++
			name += "/"
		} else {
			files++
		}
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), name)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d directories, %d files\n", dirs, files)
	return nil
}
