package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{Use: "gadminctl"}

func init() {
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newContextsCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newMigrateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
