package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/skdltmxn/cscrape-go/cscrape"
	"github.com/spf13/cobra"
)

var sizeofMembers bool

var sizeofCmd = &cobra.Command{
	Use:   "sizeof <type> [source]...",
	Short: "Print the size and alignment of a type",
	Long: `Print the size and alignment of a fundamental type, a typedef, or a
struct/union tag ("struct packet").

Use --members to list the member offsets of a struct or union.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSizeof,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the shipped ABI profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range cscrape.Profiles() {
			fmt.Fprintln(output, name)
		}
		return nil
	},
}

func init() {
	sizeofCmd.Flags().BoolVarP(&sizeofMembers, "members", "m", false, "list struct and union members")
}

func runSizeof(cmd *cobra.Command, args []string) error {
	e, err := load(cmd.Context(), args[1:])
	if err != nil {
		return err
	}

	name := args[0]
	size, err := e.TypeSize(name)
	if err != nil {
		return err
	}
	align, err := e.TypeAlignment(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "%s: %d bits (%d bytes), align %d bits [%s]\n", name, size, size/8, align, e.ProfileName())

	if !sizeofMembers {
		return nil
	}
	td, ok := e.Typedef(name)
	if !ok || td.Kind == cscrape.TypedefSimple {
		return nil
	}

	w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tSIZE\tALIGN\tNAME\tTYPE")
	for _, el := range td.Elements {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", el.Offset, el.Size, el.Align, el.Name, typeString(el.Type, el.EnumName, el.Ptr, el.Array))
	}
	return w.Flush()
}
