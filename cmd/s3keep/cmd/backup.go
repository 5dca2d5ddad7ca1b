package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaeha-choi/s3keep"
)

var backupCmd = &cobra.Command{
	Use:   "backup <local-dir> <bucket::remote-path>",
	Short: "Upload changed files to the bucket",
	Long:  "Hash the local directory, compare it against the signed manifest, upload what differs, and rewrite the manifest.",
	Args:  cobra.ExactArgs(2),
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().Bool("follow-symlinks", false, "descend into symlinked directories")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	bucket, remotePath, err := parseRemote(args[1])
	if err != nil {
		return err
	}
	follow, _ := cmd.Flags().GetBool("follow-symlinks")

	ctx := cmd.Context()
	vault, err := openVault(ctx, bucket)
	if err != nil {
		return err
	}

	res, err := vault.Backup(ctx, args[0], remotePath, s3keep.BackupOptions{FollowSymlinks: follow})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Uploaded %d files + 1 manifest\n", res.Uploaded)
	if res.Errors > 0 {
		return fmt.Errorf("%d files failed to upload", res.Errors)
	}
	return nil
}
