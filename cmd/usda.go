package main

import (
	"github.com/spf13/cobra"
)

var usdaCmd = &cobra.Command{
	Use:   "usda",
	Short: "USDA census data pipeline",
}

func init() {
	rootCmd.AddCommand(usdaCmd)
}
