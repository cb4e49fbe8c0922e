package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type exportDocument struct {
	ExportedAt string             `json:"exportedAt" yaml:"exportedAt"`
	UserKey    string             `json:"userKey" yaml:"userKey"`
	Sections   []sections.Section `json:"sections" yaml:"sections"`
}

func newExportCommand(c *cli) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unsupported format %q (want yaml or json)", format)
			}

			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			document := exportDocument{
				ExportedAt: time.Now().UTC().Format(time.RFC3339),
				UserKey:    s.cfg.UserKey,
				Sections:   s.engine.Sections(),
			}
			data, err := encodeExport(document, format)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = c.stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Fprintf(c.stderr, "exported %d sections to %s\n", len(document.Sections), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml or json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func encodeExport(document exportDocument, format string) ([]byte, error) {
	if format == "json" {
		data, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(document)
}
