package cmd

import (
	"fmt"
	"os"

	"module-monitor/feature/catalog"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var releasesFile string
var releasesDryRun bool

// releasesCmd groups release catalog commands.
var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "Manage the release catalog",
}

// releasesImportCmd imports a release feed from a JSON file.
var releasesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a release feed",
	Long:  `Imports module releases from a JSON feed and recomputes update flags of affected installations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(releasesFile)
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}
		var feed catalog.ReleaseFeed
		if err := json.Unmarshal(raw, &feed); err != nil {
			return fmt.Errorf("parse feed: %w", err)
		}

		rt, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.catalog.ImportReleases(cmd.Context(), &feed, releasesDryRun)
		if err != nil {
			return err
		}
		rt.logger.Info("Release import finished",
			zap.Bool("dry_run", res.DryRun),
			zap.Int("modules_created", res.ModulesCreated),
			zap.Int("versions_created", res.VersionsCreated),
			zap.Int("versions_skipped", res.VersionsSkipped),
			zap.Int("site_modules_updated", res.SiteModulesUpdated),
		)

		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	releasesImportCmd.Flags().StringVar(&releasesFile, "file", "", "Path to the release feed JSON")
	releasesImportCmd.Flags().BoolVar(&releasesDryRun, "dry-run", false, "Report changes without writing them")
	_ = releasesImportCmd.MarkFlagRequired("file")
	releasesCmd.AddCommand(releasesImportCmd)
	RootCmd.AddCommand(releasesCmd)
}
