package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
)

var dumpQuery string

var dumpCmd = &cobra.Command{
	Use:   "dump <source>...",
	Short: "Dump every parsed record as a JSON snapshot",
	Long: `Parse the sources and write everything the engine knows as a JSON
snapshot: the profile, fundamental types, typedefs, variables, enums,
functions and symbols. The snapshot can be reloaded with --snapshot.

Use --jq to filter the snapshot, for example:
  cscrape dump --jq '.variables[] | select(.size > 64) | .name' foo.c`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpQuery, "jq", "q", "", "filter the snapshot through a jq expression")
}

func runDump(cmd *cobra.Command, args []string) error {
	e, err := load(cmd.Context(), args)
	if err != nil {
		return err
	}

	if dumpQuery == "" {
		return e.Export(output)
	}

	q, err := gojq.Parse(dumpQuery)
	if err != nil {
		return fmt.Errorf("invalid jq expression: %w", err)
	}

	var buf bytes.Buffer
	if err := e.Export(&buf); err != nil {
		return err
	}
	// gojq wants plain maps and slices
	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	iter := q.RunWithContext(cmd.Context(), doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("jq: %w", err)
		}
		if err := encoder.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
