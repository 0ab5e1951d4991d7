package main

import (
	"fmt"
	"strings"

	"github.com/skdltmxn/cscrape-go/cscrape"
	"github.com/spf13/cobra"
)

var (
	symbolsKind  string
	symbolsLimit int
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <readelf-dump>",
	Short: "List FUNC and OBJECT symbols from a readelf -s dump",
	Long: `List the symbols cscrape keeps from a readelf -s dump.

LOCAL symbols carry the source file named by the preceding FILE entry.
Use --kind to filter (func, object).`,
	Args: cobra.ExactArgs(1),
	RunE: runSymbols,
}

func init() {
	symbolsCmd.Flags().StringVarP(&symbolsKind, "kind", "k", "", "filter by symbol kind (func, object)")
	symbolsCmd.Flags().IntVarP(&symbolsLimit, "limit", "n", 0, "limit number of symbols shown (0 = unlimited)")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	e, err := cscrape.New(cscrape.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := e.ParseSymbolsFile(args[0]); err != nil {
		return err
	}

	var want cscrape.SymbolKind
	if symbolsKind != "" {
		if err := want.UnmarshalText([]byte(strings.ToUpper(symbolsKind))); err != nil {
			return fmt.Errorf("unknown symbol kind: %s", symbolsKind)
		}
	}

	count := 0
	for _, sym := range e.Symbols() {
		if want != 0 && sym.Kind != want {
			continue
		}
		if symbolsLimit > 0 && count >= symbolsLimit {
			break
		}
		file := sym.File
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(output, "0x%08X %6d %-6s %-24s %s\n", sym.Addr, sym.Size, sym.Kind, file, sym.Name)
		count++
	}
	fmt.Fprintf(output, "\nTotal: %d symbols\n", count)
	return nil
}
