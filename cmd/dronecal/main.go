package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dronecal",
		Short: "Calendar aggregation for the drone safety dashboard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addServe(cmd)
	addDay(cmd)
	addSeed(cmd)
	addCalendars(cmd)
	return cmd
}
