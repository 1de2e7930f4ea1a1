// cmd/storyctl/export_command.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Corphon/StoryboardStudio/internal/models"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var snapshotPath string
	var outPath string

	cmd := &cobra.Command{
		Use:       "export <xml|pdf>",
		Short:     "Render a snapshot as an NLE timeline or a PDF storyboard",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{models.ExportFormatXML, models.ExportFormatPDF},
		RunE: func(cmd *cobra.Command, args []string) error {
			studio, project, err := ctx.openSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			defer studio.Close()

			result, err := studio.Export(project.ID, args[0], false)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = result.FileName
			}
			if outPath == "-" {
				_, err := cmd.OutOrStdout().Write(result.Content)
				return err
			}
			if err := os.WriteFile(outPath, result.Content, 0644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes, %d panels)\n", outPath, len(result.Content), len(project.Panels))
			return nil
		},
	}
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Project snapshot JSON")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file; - for stdout (default: derived from the title)")
	return cmd
}
