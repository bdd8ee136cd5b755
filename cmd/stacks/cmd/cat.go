package cmd

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/aweris/stacks"
	"github.com/aweris/stacks/loaders"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>...",
	Short: "Print files",
	Long:  "Resolve each path through the namespace and print the contents in argument order.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCat,
}

func init() {
	catCmd.Flags().IntP("concurrency", "j", 4, "number of files loaded in parallel")
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) (err error) {
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	lib, err := openLibrary(false)
	if err != nil {
		return err
	}
	defer closeLibrary(lib, &err)

	if err := stacks.RegisterLoader(lib, loaders.Bytes()); err != nil {
		return err
	}

	contents := make([][]byte, len(args))
	p := pool.New().WithMaxGoroutines(concurrency).WithContext(cmd.Context()).WithCancelOnError()

	for i, path := range args {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := stacks.Load[[]byte](lib, path)
			if err != nil {
				return fmt.Errorf("cat %s: %w", path, err)
			}
			contents[i] = data
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, data := range contents {
		if _, err := out.Write(data); err != nil {
			return err
		}
	}
	return nil
}
