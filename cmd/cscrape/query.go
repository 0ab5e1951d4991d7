package main

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/skdltmxn/cscrape-go/cscrape"
	"github.com/spf13/cobra"
)

// whereFlags binds the query filters shared by var, enum, enums and func.
func whereFlags(cmd *cobra.Command, w *cscrape.Where) {
	cmd.Flags().StringVarP(&w.File, "file", "f", cscrape.Any, "restrict to a defining file (basename or path)")
	cmd.Flags().StringVarP(&w.Function, "function", "F", cscrape.Any, "restrict to variables declared in a function")
	cmd.Flags().StringVarP(&w.Type, "type", "t", cscrape.Any, "restrict to a declared type")
}

// sourceArgs requires n leading arguments plus at least one C source,
// unless a snapshot supplies the records.
func sourceArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if snapshotIn != "" {
			return cobra.MinimumNArgs(n)(cmd, args)
		}
		return cobra.MinimumNArgs(n+1)(cmd, args)
	}
}

var (
	varWhere   cscrape.Where
	enumWhere  cscrape.Where
	enumsWhere cscrape.Where
	funcWhere  cscrape.Where
)

var varCmd = &cobra.Command{
	Use:   "var <name> [source]...",
	Short: "Look up a variable",
	Long: `Look up exactly one variable declaration and print its layout.

The name may be '*' to match any variable that passes the filters.
Inside functions only static variables are recorded. Sources may be
omitted when --snapshot is given.`,
	Args: sourceArgs(1),
	RunE: runVar,
}

var enumCmd = &cobra.Command{
	Use:   "enum <enumerator> [source]...",
	Short: "Print the value of an enumerator",
	Args:  sourceArgs(1),
	RunE:  runEnum,
}

var enumsCmd = &cobra.Command{
	Use:   "enums [source]...",
	Short: "Print every enumerator of one enumeration",
	Long: `Print every enumerator of the single enumeration selected by --type,
--file and --function.`,
	Args: sourceArgs(0),
	RunE: runEnums,
}

var funcCmd = &cobra.Command{
	Use:   "func <name> [source]...",
	Short: "Look up a function definition",
	Args:  sourceArgs(1),
	RunE:  runFunc,
}

func init() {
	whereFlags(varCmd, &varWhere)
	whereFlags(enumCmd, &enumWhere)
	whereFlags(enumsCmd, &enumsWhere)
	whereFlags(funcCmd, &funcWhere)
}

func runVar(cmd *cobra.Command, args []string) error {
	e, err := load(cmd.Context(), args[1:])
	if err != nil {
		return err
	}
	v, err := e.Var(args[0], varWhere)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Name: %s\n", v.Name)
	fmt.Fprintf(output, "Defined: %s\n", v.Site())
	if v.Function != "" {
		fmt.Fprintf(output, "Function: %s\n", v.Function)
	}
	fmt.Fprintf(output, "Type: %s\n", typeString(v.Type, v.EnumName, v.Ptr, v.Array))
	if v.Err != nil {
		fmt.Fprintf(output, "Error: %v\n", v.Err)
	} else {
		fmt.Fprintf(output, "Size: %d bits (%d bytes)\n", v.Size, v.Size/8)
	}
	if v.Addr != nil {
		fmt.Fprintf(output, "Address: 0x%08X\n", *v.Addr)
	}
	fmt.Fprintf(output, "Source: %s\n", v.Source)
	return nil
}

func runEnum(cmd *cobra.Command, args []string) error {
	e, err := load(cmd.Context(), args[1:])
	if err != nil {
		return err
	}
	v, err := e.Enum(args[0], enumWhere)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "%s = %d\n", args[0], v)
	return nil
}

func runEnums(cmd *cobra.Command, args []string) error {
	e, err := load(cmd.Context(), args)
	if err != nil {
		return err
	}
	values, err := e.EnumType(enumsWhere)
	if err != nil {
		return err
	}

	// source order
	names := slices.SortedFunc(maps.Keys(values), func(a, b string) int {
		return cmp.Or(cmp.Compare(values[a].Line, values[b].Line), cmp.Compare(values[a].Value, values[b].Value))
	})

	for _, name := range names {
		ev := values[name]
		fmt.Fprintf(output, "%-32s %12d  line %d\n", name, ev.Value, ev.Line)
	}
	return nil
}

func runFunc(cmd *cobra.Command, args []string) error {
	e, err := load(cmd.Context(), args[1:])
	if err != nil {
		return err
	}
	f, err := e.Func(args[0], funcWhere)
	if err != nil {
		return err
	}

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = strings.TrimSpace(typeString(p.Type, "", p.Ptr, p.Array) + " " + p.Name)
	}
	fmt.Fprintf(output, "Name: %s\n", f.Name)
	fmt.Fprintf(output, "Defined: %s\n", f.Site())
	fmt.Fprintf(output, "Signature: %s %s(%s)\n", typeString(f.Type, "", f.Ptr, nil), f.Name, strings.Join(params, ", "))
	if f.Err != nil {
		fmt.Fprintf(output, "Error: %v\n", f.Err)
	}
	if f.Addr != nil {
		fmt.Fprintf(output, "Address: 0x%08X\n", *f.Addr)
		fmt.Fprintf(output, "Code Size: %d bytes\n", f.ByteSize)
	}
	return nil
}

func typeString(typ, enumName string, ptr int, dims []int64) string {
	var sb strings.Builder
	sb.WriteString(typ)
	if enumName != "" {
		sb.WriteString(" " + enumName)
	}
	sb.WriteString(strings.Repeat("*", ptr))
	for _, d := range dims {
		fmt.Fprintf(&sb, "[%d]", d)
	}
	return sb.String()
}
