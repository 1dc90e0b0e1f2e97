package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeffrom/heclog/config"
)

var tmpConfig = &config.Config{}

func init() {
	*tmpConfig = *config.Default
	dconf := config.Default

	pflags := RootCmd.PersistentFlags()
	pflags.StringVarP(&tmpConfig.File, "config", "c", "",
		"load configuration from `FILE`")
	pflags.BoolVarP(&tmpConfig.Verbose, "verbose", "v", dconf.Verbose,
		"print debug output")
	pflags.StringVar(&tmpConfig.Addr, "addr", dconf.Addr,
		"collector `URL`")
	pflags.StringVar(&tmpConfig.Token, "token", dconf.Token,
		"collector `TOKEN`")
	pflags.StringVar(&tmpConfig.Source, "source", dconf.Source,
		"event `SOURCE`")
	pflags.StringVar(&tmpConfig.Host, "host", dconf.Host,
		"originating `HOST`")
	pflags.StringVar(&tmpConfig.Index, "index", dconf.Index,
		"collector `INDEX`")
	pflags.DurationVar(&tmpConfig.Timeout, "timeout", dconf.Timeout,
		"time to wait for a submission before closing the connection")
	pflags.IntVar(&tmpConfig.MaxBufferSize, "max-buffer-size", dconf.MaxBufferSize,
		"number of buffered `EVENTS` that triggers a flush")
	pflags.DurationVar(&tmpConfig.ThrottleInterval, "throttle-interval", dconf.ThrottleInterval,
		"max time a non-empty buffer may sit before a flush")
	pflags.BoolVar(&tmpConfig.AutoRetry, "auto-retry", dconf.AutoRetry,
		"resubmit failed batches")
	pflags.DurationVar(&tmpConfig.RetryInterval, "retry-interval", dconf.RetryInterval,
		"delay before a resubmission")

	RootCmd.AddCommand(WriteCmd)
	RootCmd.AddCommand(ConfigCmd)
	RootCmd.AddCommand(VersionCmd)
}

var configKeys = []string{
	"verbose", "addr", "token", "source", "host", "index", "timeout",
	"max-buffer-size", "throttle-interval", "auto-retry", "retry-interval",
}

var RootCmd = &cobra.Command{
	Use:   "hec-cli",
	Short: "Send events to an HTTP event collector",
	Long:  ``,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// loadConfig layers the configuration: explicit flags win, then environment
// (HEC_*), then the config file, then defaults.
func loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("hec")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, k := range configKeys {
		if err := v.BindEnv(k); err != nil {
			return err
		}
	}

	if tmpConfig.File != "" {
		v.SetConfigFile(tmpConfig.File)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	set := func(k string) bool {
		return !flags.Changed(k) && v.IsSet(k)
	}

	if set("verbose") {
		tmpConfig.Verbose = v.GetBool("verbose")
	}
	if set("addr") {
		tmpConfig.Addr = v.GetString("addr")
	}
	if set("token") {
		tmpConfig.Token = v.GetString("token")
	}
	if set("source") {
		tmpConfig.Source = v.GetString("source")
	}
	if set("host") {
		tmpConfig.Host = v.GetString("host")
	}
	if set("index") {
		tmpConfig.Index = v.GetString("index")
	}
	if set("timeout") {
		tmpConfig.Timeout = v.GetDuration("timeout")
	}
	if set("max-buffer-size") {
		tmpConfig.MaxBufferSize = v.GetInt("max-buffer-size")
	}
	if set("throttle-interval") {
		tmpConfig.ThrottleInterval = v.GetDuration("throttle-interval")
	}
	if set("auto-retry") {
		tmpConfig.AutoRetry = v.GetBool("auto-retry")
	}
	if set("retry-interval") {
		tmpConfig.RetryInterval = v.GetDuration("retry-interval")
	}

	return tmpConfig.Validate()
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
