package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ConfigCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"conf"},
	Short:   "Print the effective configuration",
	Long:    ``,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%+v\n", tmpConfig)
	},
}
