package main

import (
	"fmt"
	"io"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"weft/internal/timeline"
	"weft/internal/transcribe"
)

func newReadCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "read <container>",
		Short: "Transcribe a container into a timeline tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.convertOptions(cmd, &flags)
			if err != nil {
				return err
			}
			tl, diags, err := transcribe.ReadFile(args[0], opts)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := tl.Save(outPath); err != nil {
					return err
				}
			} else {
				data, err := timeline.Encode(tl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}
			reportDiagnostics(cmd.ErrOrStderr(), diags)
			return nil
		},
	}

	addConvertFlags(cmd, &flags)
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Timeline destination (stdout when omitted)")
	return cmd
}

func newWriteCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "write <timeline>",
		Short: "Transcribe a timeline tree into a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.convertOptions(cmd, &flags)
			if err != nil {
				return err
			}
			tl, err := timeline.Load(args[0])
			if err != nil {
				return err
			}
			diags, err := writeLocked(tl, outPath, opts)
			if err != nil {
				return err
			}
			reportDiagnostics(cmd.ErrOrStderr(), diags)
			return nil
		},
	}

	addConvertFlags(cmd, &flags)
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Container destination")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newRoundtripCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "roundtrip <container>",
		Short: "Read a container and write it back out, reporting every compromise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.convertOptions(cmd, &flags)
			if err != nil {
				return err
			}
			// Round trips keep the graph's structural nesting so the rebuilt
			// container mirrors the original.
			if !cmd.Flags().Changed("simplify") {
				opts.Simplify = false
			}
			tl, readDiags, err := transcribe.ReadFile(args[0], opts)
			if err != nil {
				return err
			}
			writeDiags, err := writeLocked(tl, outPath, opts)
			if err != nil {
				return err
			}
			reportDiagnostics(cmd.ErrOrStderr(), append(readDiags, writeDiags...))
			return nil
		},
	}

	addConvertFlags(cmd, &flags)
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Container destination")
	cmd.MarkFlagRequired("output")
	return cmd
}

// writeLocked serializes writers of the same destination through a sidecar
// lock file, so concurrent conversions cannot interleave their renames.
func writeLocked(tl *timeline.Timeline, path string, opts transcribe.Options) ([]transcribe.Diagnostic, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock destination %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("destination %s is being written by another process", path)
	}
	defer lock.Unlock()

	return transcribe.WriteFile(tl, path, opts)
}

func reportDiagnostics(w io.Writer, diags []transcribe.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(w, "%d compromise(s) recorded:\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
