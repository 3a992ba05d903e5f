/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	CONFIG_FILE_ENV_VAR = "YB_DDBIO_CONFIG_FILE"
	CONFIG_FILE_NAME    = "yb-ddbio-config"
)

var allowedGlobalConfigKeys = mapset.NewThreadUnsafeSet[string](
	"aws-region", "aws-profile", "endpoint-url", "aws-access-key-id", "aws-secret-access-key",
	"aws-session-token", "log-level", "log-dir", "history-db", "local-dir",
)

var waitConfigKeys = []string{"poll-interval", "timeout"}

var allowedExportStartConfigKeys = mapset.NewThreadUnsafeSet[string](append([]string{
	"table-arn", "s3-bucket", "s3-prefix", "s3-bucket-owner", "export-time", "format",
	"sse-algorithm", "sse-kms-key-id", "wait"}, waitConfigKeys...)...,
)

var allowedExportListConfigKeys = mapset.NewThreadUnsafeSet[string](
	"table-arn", "page-size", "max-results", "details",
)

var allowedExportWaitConfigKeys = mapset.NewThreadUnsafeSet[string](waitConfigKeys...)

var allowedExportReadConfigKeys = mapset.NewThreadUnsafeSet[string](
	"s3-dir", "output", "format", "disable-pb",
)

var allowedExportFindConfigKeys = mapset.NewThreadUnsafeSet[string]("s3-uri")

var allowedImportStartConfigKeys = mapset.NewThreadUnsafeSet[string](append([]string{
	"s3-bucket", "s3-key-prefix", "s3-bucket-owner", "input-format", "compression",
	"csv-delimiter", "csv-header", "table-name", "partition-key", "sort-key", "wait"}, waitConfigKeys...)...,
)

var allowedImportListConfigKeys = mapset.NewThreadUnsafeSet[string](
	"table-arn", "page-size", "max-results", "details",
)

var allowedImportWaitConfigKeys = mapset.NewThreadUnsafeSet[string](waitConfigKeys...)

var allowedWriteConfigKeys = mapset.NewThreadUnsafeSet[string]("format", "input", "uri")

var allowedHistoryListConfigKeys = mapset.NewThreadUnsafeSet[string]("kind")

// Allowed nested sections, named after the command path.
var allowedConfigSections = map[string]mapset.Set[string]{
	"export-start":    allowedExportStartConfigKeys,
	"export-list":     allowedExportListConfigKeys,
	"export-wait":     allowedExportWaitConfigKeys,
	"export-read":     allowedExportReadConfigKeys,
	"export-manifest": mapset.NewThreadUnsafeSet[string]("s3-dir"),
	"export-files":    mapset.NewThreadUnsafeSet[string]("s3-dir"),
	"export-find":     allowedExportFindConfigKeys,
	"import-start":    allowedImportStartConfigKeys,
	"import-list":     allowedImportListConfigKeys,
	"import-wait":     allowedImportWaitConfigKeys,
	"write":           allowedWriteConfigKeys,
	"history-list":    allowedHistoryListConfigKeys,
}

// ConfigFlagOverride is a CLI flag whose value came from the config file.
type ConfigFlagOverride struct {
	FlagName  string
	ConfigKey string
	Value     string
}

/*
initConfig loads the config file for the given command and applies it to
the flags the user did not set.

	Config file precedence: --config > $YB_DDBIO_CONFIG_FILE > ~/yb-ddbio-config.yaml
	Value precedence: CLI flag > <command-path>.<flag> > <flag>
*/
func initConfig(cmd *cobra.Command) ([]ConfigFlagOverride, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if os.Getenv(CONFIG_FILE_ENV_VAR) != "" {
		v.SetConfigFile(os.Getenv(CONFIG_FILE_ENV_VAR))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(home)
		v.SetConfigName(CONFIG_FILE_NAME)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err := validateConfigFile(v)
	if err != nil {
		return nil, err
	}

	overrides, err := bindCobraFlagsToViper(cmd, v)
	if err != nil {
		return nil, fmt.Errorf("failed to bind cobra flags to viper: %w", err)
	}
	return overrides, nil
}

/*
validateConfigFile rejects unknown global keys, unknown sections and
unknown keys inside a known section. Every problem is printed before the
error is returned.
*/
func validateConfigFile(v *viper.Viper) error {
	invalidGlobalKeys := mapset.NewThreadUnsafeSet[string]()
	invalidSectionKeys := make(map[string]mapset.Set[string])
	invalidSections := mapset.NewThreadUnsafeSet[string]()

	for _, key := range v.AllKeys() {
		section, nestedKey, nested := strings.Cut(key, ".")
		if !nested {
			if !allowedGlobalConfigKeys.Contains(key) {
				invalidGlobalKeys.Add(key)
			}
			continue
		}
		allowedKeys, ok := allowedConfigSections[section]
		if !ok {
			invalidSections.Add(section)
			continue
		}
		if !allowedKeys.Contains(nestedKey) {
			if _, exists := invalidSectionKeys[section]; !exists {
				invalidSectionKeys[section] = mapset.NewThreadUnsafeSet[string]()
			}
			invalidSectionKeys[section].Add(nestedKey)
		}
	}

	if invalidGlobalKeys.Cardinality() == 0 && len(invalidSectionKeys) == 0 && invalidSections.Cardinality() == 0 {
		return nil
	}
	if invalidGlobalKeys.Cardinality() > 0 {
		fmt.Printf("%s [%s]\n", color.RedString("Invalid global config keys:"), joinSorted(invalidGlobalKeys))
	}
	sections := maps.Keys(invalidSectionKeys)
	slices.Sort(sections)
	for _, section := range sections {
		fmt.Printf("%s [%s]\n", color.RedString(fmt.Sprintf("Invalid keys in section '%s':", section)), joinSorted(invalidSectionKeys[section]))
	}
	if invalidSections.Cardinality() > 0 {
		fmt.Printf("%s [%s]\n", color.RedString("Invalid sections:"), joinSorted(invalidSections))
	}
	return fmt.Errorf("found invalid configurations in config file: %s", v.ConfigFileUsed())
}

func joinSorted(set mapset.Set[string]) string {
	keys := set.ToSlice()
	slices.Sort(keys)
	return strings.Join(keys, ", ")
}

// configKeyPrefix turns "yb-ddbio export start" into "export-start".
func configKeyPrefix(cmd *cobra.Command) string {
	subCmdPath := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name())
	subCmdPath = strings.TrimSpace(subCmdPath)
	return strings.ReplaceAll(subCmdPath, " ", "-")
}

func bindCobraFlagsToViper(cmd *cobra.Command, v *viper.Viper) ([]ConfigFlagOverride, error) {
	var bindErr error
	var overrides []ConfigFlagOverride
	prefix := configKeyPrefix(cmd)

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed {
			return
		}
		var configKey string
		switch {
		case prefix != "" && v.IsSet(prefix+"."+f.Name):
			configKey = prefix + "." + f.Name
		case v.IsSet(f.Name):
			configKey = f.Name
		default:
			return
		}
		val := v.GetString(configKey)
		if err := cmd.Flags().Set(f.Name, val); err != nil {
			bindErr = fmt.Errorf("set flag %s from config key %s: %w", f.Name, configKey, err)
			return
		}
		overrides = append(overrides, ConfigFlagOverride{
			FlagName:  f.Name,
			ConfigKey: configKey,
			Value:     val,
		})
	})
	return overrides, bindErr
}
