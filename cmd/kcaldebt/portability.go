package kcaldebt

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/service"
)

var (
	exportFormat string
	exportOut    string
	importIn     string
	importDryRun bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger (json or csv)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(exportOut) == "" {
			return fmt.Errorf("--out is required")
		}
		format := strings.ToLower(strings.TrimSpace(exportFormat))
		if format != "json" && format != "csv" {
			return fmt.Errorf("unsupported --format %q (use json or csv)", exportFormat)
		}
		return withEngine(cmd, func(s *session) error {
			data, err := s.engine.Export(cmd.Context())
			if err != nil {
				return err
			}
			switch format {
			case "json":
				b, err := json.MarshalIndent(data, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal export json: %w", err)
				}
				if err := os.WriteFile(exportOut, b, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
			case "csv":
				if err := writeExportCSV(exportOut, data); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported ledger to %s\n", exportOut)
			return nil
		})
	},
}

// writeExportCSV flattens live and archived entries into one table; the
// archive_id column is empty for live entries.
func writeExportCSV(path string, data *service.ExportData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "timestamp", "kind", "kcal", "volume_ml", "strength_pct", "carbs_per_100ml", "count", "style", "brewery", "rating", "activity", "duration_min", "annotation", "archive_id"}); err != nil {
		return fmt.Errorf("write export csv header: %w", err)
	}
	write := func(e service.ExportEntry, archiveID string) error {
		record := make([]string, 15)
		record[0] = strconv.FormatInt(e.ID, 10)
		record[1] = e.Timestamp
		record[3] = strconv.FormatFloat(e.KCal, 'f', -1, 64)
		record[14] = archiveID
		if d := e.Drink; d != nil {
			record[2] = "debt"
			record[4] = strconv.FormatFloat(d.VolumeMl, 'f', -1, 64)
			record[5] = strconv.FormatFloat(d.StrengthPct, 'f', -1, 64)
			record[6] = strconv.FormatFloat(d.CarbsPer100ml, 'f', -1, 64)
			record[7] = strconv.Itoa(d.Count)
			record[8] = d.Style
			record[9] = d.Brewery
			record[10] = strconv.Itoa(d.Rating)
		}
		if wk := e.Workout; wk != nil {
			record[2] = "credit"
			record[11] = wk.Activity
			record[12] = strconv.FormatFloat(wk.DurationMin, 'f', -1, 64)
			record[13] = wk.Annotation
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write export csv row: %w", err)
		}
		return nil
	}
	for _, a := range data.Archives {
		for _, e := range a.Entries {
			if err := write(e, a.ID); err != nil {
				return err
			}
		}
	}
	for _, e := range data.Entries {
		if err := write(e, ""); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export csv: %w", err)
	}
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a json ledger export",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(importIn) == "" {
			return fmt.Errorf("--in is required")
		}
		raw, err := os.ReadFile(importIn)
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		var payload service.ExportData
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("parse import json: %w", err)
		}
		return withEngine(cmd, func(s *session) error {
			report, err := s.engine.Import(cmd.Context(), &payload, importDryRun)
			if err != nil {
				return err
			}
			prefix := "Imported"
			if report.DryRun {
				prefix = "Would import"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries (%d already present), %d check-ins\n", prefix, report.EntriesImported, report.EntriesSkipped, report.CheckIns)
			if report.Corrections > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Recalculated %d credit(s)\n", report.Corrections)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file path")
	importCmd.Flags().StringVar(&importIn, "in", "", "Input json file path")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate and report without writing")
}
