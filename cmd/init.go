package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sigplace/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sigplace configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the session server and offline stamping, and writes a .sigplace.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
