package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"weft/internal/interchange"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var showSlots bool

	cmd := &cobra.Command{
		Use:   "inspect <container>",
		Short: "Summarize the mobs of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureLogger(); err != nil {
				return err
			}
			file, err := interchange.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pretty := isTerminal(out)
			renderMobTable(out, file, pretty)
			if showSlots {
				renderSlotTables(out, file, pretty)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSlots, "slots", false, "List each mob's slots")
	return cmd
}

var titler = cases.Title(language.English)

func renderMobTable(out io.Writer, file *interchange.File, pretty bool) {
	roots := make(map[interchange.MobID]bool)
	for _, m := range file.RootMobs() {
		roots[m.ID] = true
	}

	rows := make([][]string, 0, len(file.Mobs))
	for _, m := range file.Mobs {
		role := titler.String(m.Kind.String())
		if roots[m.ID] {
			role += " (root)"
		}
		rows = append(rows, []string{
			mobLabel(m),
			role,
			shortID(m.ID),
			strconv.Itoa(len(m.Slots)),
			strconv.FormatInt(mobLength(m), 10),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Mob", "Role", "ID", "Slots", "Frames"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		pretty,
	))
	fmt.Fprintf(out, "%d mob(s), %d root(s)\n", len(file.Mobs), len(roots))
}

func renderSlotTables(out io.Writer, file *interchange.File, pretty bool) {
	for _, m := range file.Mobs {
		rows := make([][]string, 0, len(m.Slots))
		for _, slot := range m.Slots {
			rows = append(rows, []string{
				strconv.Itoa(slot.ID),
				slot.Name,
				titler.String(slot.Media.String()),
				slot.EditRate.String(),
				segmentLabel(slot.Segment),
				strconv.Itoa(len(slot.Markers)),
			})
		}
		fmt.Fprintf(out, "\n%s\n", mobLabel(m))
		fmt.Fprintln(out, renderTable(
			[]string{"Slot", "Name", "Media", "Rate", "Segment", "Markers"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			pretty,
		))
	}
}

func mobLabel(m *interchange.Mob) string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	return "(unnamed)"
}

func mobLength(m *interchange.Mob) int64 {
	var longest int64
	for _, slot := range m.Slots {
		if slot.Segment == nil {
			continue
		}
		if _, ok := slot.Segment.(*interchange.Timecode); ok {
			continue
		}
		if n := slot.Segment.Length(); n > longest {
			longest = n
		}
	}
	return longest
}

func shortID(id interchange.MobID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func segmentLabel(seg interchange.Segment) string {
	switch s := seg.(type) {
	case nil:
		return "empty"
	case *interchange.Sequence:
		return fmt.Sprintf("sequence of %d", len(s.Items))
	case *interchange.SourceClip:
		return fmt.Sprintf("clip %d+%d", s.Start, s.Len)
	case *interchange.Filler:
		return fmt.Sprintf("filler %d", s.Len)
	case *interchange.Transition:
		return fmt.Sprintf("transition %d", s.Len)
	case *interchange.OperationGroup:
		return fmt.Sprintf("effect %q", s.Op.Name)
	case *interchange.Selector:
		return "selector"
	case *interchange.Timecode:
		return fmt.Sprintf("timecode @%d", s.Start)
	case *interchange.ScopeReference:
		return "scope reference"
	default:
		return "unknown"
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
