// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/datalift/policysync/pkg/utils"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "policysync",
	Short: "PolicySync - bucket policy synchronization from KMS key grants",
	Long: `PolicySync reacts to spreadsheet uploads in a drop bucket: it converts
them to CSV in a date-partitioned target bucket and regenerates the target
bucket's access policy from the external accounts granted use of the KMS
key that encrypts it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
