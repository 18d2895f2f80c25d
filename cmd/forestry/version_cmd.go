package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in forestry's version
	VersionMajor = 0
	// VersionMinor is the minor number in forestry's version
	VersionMinor = 1
	// VersionPatch is the patch number in forestry's version
	VersionPatch = 0
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of forestry",
		Long:  `All software has versions. This is forestry's`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("forestry v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
