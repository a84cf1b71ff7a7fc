package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listSamplesCmd = &cobra.Command{
	Use:   "list-samples",
	Short: "List the built-in sample graphs accepted by 'run --sample'.",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range samples {
			fmt.Printf("%-4s %s\n", s.name, s.description)
		}
	},
}

func init() {
	rootCmd.AddCommand(listSamplesCmd)
}
