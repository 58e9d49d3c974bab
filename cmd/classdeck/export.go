package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the planner document",
	Long: `Export the cached planner document to stdout or a file.

Formats: json (default), yaml. The export reads the local cache only, so
it works offline and reflects the last persisted state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")

		c, err := openCache()
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		doc, err := loadCached(c)
		if err != nil {
			return err
		}

		var data []byte
		switch format {
		case "json":
			data, err = json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode document: %w", err)
			}
			data = append(data, '\n')
		case "yaml":
			data, err = yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to encode document: %w", err)
			}
		default:
			return fmt.Errorf("unknown format %q (want json or yaml)", format)
		}

		if outPath == "" || outPath == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		fmt.Fprintf(os.Stderr, "Exported to %s\n", outPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "json", "Export format: json or yaml")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
