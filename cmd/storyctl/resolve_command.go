// cmd/storyctl/resolve_command.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "resolve [prompt]",
		Short: "Preview how asset references in a prompt resolve",
		Long:  "Without a prompt, the active panel's prompt is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			studio, project, err := ctx.openSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			defer studio.Close()

			res, err := studio.ResolvePrompt(project.ID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prompt:     %s\n", res.EnhancedPrompt)
			fmt.Fprintf(out, "Images:     %d\n", len(res.AssetImages))
			for _, img := range res.AssetImages {
				fmt.Fprintf(out, "  - %s (%s)\n", img.Name, img.Type)
			}
			if len(res.Characters) > 0 {
				fmt.Fprintf(out, "Characters: %s\n", strings.Join(res.Characters, ", "))
			}
			if len(res.Scenes) > 0 {
				fmt.Fprintf(out, "Scenes:     %s\n", strings.Join(res.Scenes, ", "))
			}
			if len(res.Unmatched) > 0 {
				fmt.Fprintf(out, "Unmatched:  %s\n", strings.Join(res.Unmatched, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Project snapshot JSON")
	return cmd
}
