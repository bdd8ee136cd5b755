package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aweris/stacks"
	"github.com/aweris/stacks/loaders"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Print a file and follow changes",
	Long:  "Print a file, then print it again every time it changes on disk. Only files in directory roots can change.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib, err := openLibrary(true)
	if err != nil {
		return err
	}
	defer closeLibrary(lib, &err)

	if err := stacks.RegisterLoader[*loaders.Live[string]](lib, loaders.LiveText()); err != nil {
		return err
	}

	text, err := stacks.Load[*loaders.Live[string]](lib, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "--- %s (v%d)\n%s", args[0], text.Version(), text.Get())

	text.OnChange(func(s string) {
		fmt.Fprintf(out, "--- %s (v%d)\n%s", args[0], text.Version(), s)
	})

	<-ctx.Done()
	return nil
}
