package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var siteName string
var siteURL string

// siteCmd groups site registry commands.
var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage registered sites",
}

// siteRegisterCmd registers a site and prints its key once.
var siteRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a site and print its key",
	Long:  `Creates a site record and prints the key the site must send as X-Site-Key. Only a hash of the key is stored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()

		site, key, err := rt.sites.Register(cmd.Context(), siteName, siteURL)
		if err != nil {
			return err
		}
		rt.logger.Info("Site registered", zap.Uint("site_id", site.ID), zap.String("url", site.URL))

		fmt.Println("\n--- Site Registered ---")
		fmt.Printf("ID:   %d\n", site.ID)
		fmt.Printf("Name: %s\n", site.Name)
		fmt.Printf("URL:  %s\n", site.URL)
		fmt.Printf("Key:  %s\n", key)
		fmt.Println("-----------------------")
		fmt.Println("Store the key now; it cannot be shown again.")
		return nil
	},
}

func init() {
	siteRegisterCmd.Flags().StringVar(&siteName, "name", "", "Display name of the site")
	siteRegisterCmd.Flags().StringVar(&siteURL, "url", "", "Base URL the site reports")
	_ = siteRegisterCmd.MarkFlagRequired("name")
	_ = siteRegisterCmd.MarkFlagRequired("url")
	siteCmd.AddCommand(siteRegisterCmd)
	RootCmd.AddCommand(siteCmd)
}
