package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jaeha-choi/s3keep"
	"github.com/jaeha-choi/s3keep/internal/keyfile"
)

var rootCmd = &cobra.Command{
	Use:          "s3keep",
	Short:        "Content-addressed S3 backup CLI",
	Long:         "One-way backup and restore between a local directory and an S3 bucket, driven by a signed manifest.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/s3keep/config.yaml)")
	rootCmd.PersistentFlags().String("region", "", "AWS region override")
	rootCmd.PersistentFlags().String("endpoint", "", "S3-compatible endpoint URL")
	rootCmd.PersistentFlags().Bool("path-style", false, "use path-style bucket addressing")
	rootCmd.PersistentFlags().String("key-file", "secret.key", "manifest signing key file (created if missing)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	viper.BindPFlag("path_style", rootCmd.PersistentFlags().Lookup("path-style"))
	viper.BindPFlag("key_file", rootCmd.PersistentFlags().Lookup("key-file"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("S3KEEP")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "s3keep")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "s3keep")
	}
	return ".s3keep"
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// parseRemote splits a bucket::remote-path argument.
func parseRemote(arg string) (bucket, remotePath string, err error) {
	idx := strings.Index(arg, "::")
	if idx < 1 {
		return "", "", fmt.Errorf("%w: %q", s3keep.ErrBadRemoteSpec, arg)
	}
	return arg[:idx], arg[idx+2:], nil
}

// openVault loads (or creates) the signing key and connects to the bucket.
func openVault(ctx context.Context, bucket string) (*s3keep.Vault, error) {
	key, err := keyfile.LoadOrCreate(viper.GetString("key_file"))
	if err != nil {
		return nil, err
	}

	cfg := s3keep.S3Config{
		Bucket:         bucket,
		Region:         viper.GetString("region"),
		Endpoint:       viper.GetString("endpoint"),
		ForcePathStyle: viper.GetBool("path_style"),
	}
	return s3keep.Open(ctx, cfg, key, s3keep.WithLogger(newLogger()))
}
