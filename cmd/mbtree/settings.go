package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyDataDir  = "data_dir"
	cfgKeyLogLevel = "log_level"
	cfgKeyWorkers  = "workers"

	envPrefix = "MBTREE"
)

// loadSettings reads ~/.mbtree/config.yaml and MBTREE_* variables. Flags
// that were set on the command line take precedence. A missing config file
// is not an error.
func loadSettings(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyDataDir, ".mbtree")
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyWorkers, runtime.GOMAXPROCS(0))

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".mbtree"))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		cfgKeyDataDir:  "data",
		cfgKeyLogLevel: "log-level",
		cfgKeyWorkers:  "workers",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind %s: %w", flag, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	return log, nil
}
