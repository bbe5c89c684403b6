package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/ssgtools/tpconsole/internal/excel"
	_ "github.com/ssgtools/tpconsole/internal/kinds" // Register all record kinds
	"github.com/ssgtools/tpconsole/internal/mapping"
	"github.com/ssgtools/tpconsole/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workbook.xlsx>",
	Short: "Check a workbook offline without submitting anything",
	Long: "Decode a workbook, map its rows and run validation for the given record\n" +
		"kind, printing every diagnostic. Exits non-zero when the sheet is not clean.",
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var (
	validateKind  string
	validateSheet string
)

func init() {
	validateCmd.Flags().StringVarP(&validateKind, "kind", "k", "", "Record kind to validate against (required)")
	validateCmd.Flags().StringVarP(&validateSheet, "sheet", "s", "", "Sheet name (default: the kind's conventional sheet, else the first)")
	validateCmd.MarkFlagRequired("kind")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	kind, ok := pipeline.Get(validateKind)
	if !ok {
		keys := make([]string, 0, pipeline.Count())
		for _, k := range pipeline.All() {
			keys = append(keys, k.Key)
		}
		return fmt.Errorf("unknown kind %q (known kinds: %v)", validateKind, keys)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	book, err := excel.Decode(data)
	if err != nil {
		return err
	}

	sheet := book.First()
	switch {
	case validateSheet != "":
		s, ok := book.Sheet(validateSheet)
		if !ok {
			return fmt.Errorf("workbook has no sheet %q (sheets: %v)", validateSheet, book.SheetNames())
		}
		sheet = s
	default:
		if preferred, ok := book.Sheet(kind.SheetName); ok {
			sheet = preferred
		}
	}

	rows := make([]mapping.RawRow, len(sheet.Rows))
	for i, r := range sheet.Rows {
		rows[i] = mapping.RawRow(r)
	}

	records, diags := mapping.MapSheet(rows, kind.Mappings)
	if kind.Validate != nil {
		for i, rec := range records {
			verdict := kind.Validate(rec)
			for _, d := range verdict.Errors {
				d.Row = i + 2
				diags = append(diags, d)
			}
		}
	}

	fmt.Printf("Sheet %q: %d rows, %d diagnostics\n", sheet.Name, len(records), len(diags))

	if len(diags) == 0 {
		return nil
	}

	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Row < diags[j].Row })
	for _, d := range diags {
		fmt.Printf("  row %d  %s: %s\n", d.Row, d.Field, d.Message)
	}
	os.Exit(1)
	return nil
}
