package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaeha-choi/s3keep"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <local-dir> <bucket::remote-path>",
	Short: "Download files recorded in the manifest",
	Long:  "Fetch the signed manifest and download every file missing or mismatched locally, verifying each against its checksum.",
	Args:  cobra.ExactArgs(2),
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().Bool("overwrite", false, "re-download files even when local checksums match")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	bucket, remotePath, err := parseRemote(args[1])
	if err != nil {
		return err
	}
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	ctx := cmd.Context()
	vault, err := openVault(ctx, bucket)
	if err != nil {
		return err
	}

	res, err := vault.Restore(ctx, args[0], remotePath, s3keep.RestoreOptions{Overwrite: overwrite})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Restored %d files\n", res.Downloaded)
	if res.Failed > 0 || res.Errors > 0 {
		return fmt.Errorf("%d files failed verification, %d skipped on error", res.Failed, res.Errors)
	}
	return nil
}
