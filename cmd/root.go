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
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-ddbio/src/awsclient"
	"github.com/yugabyte/yb-ddbio/src/metadb"
	"github.com/yugabyte/yb-ddbio/src/utils"
)

var (
	cfgFile       string
	awsSettings   awsclient.Settings
	logLevel      string
	logDir        string
	historyDBPath string
	localDir      string
	outputJSON    bool
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

// Flags holding credentials are never echoed into the log.
var secretFlags = []string{"aws-secret-access-key", "aws-session-token"}

var rootCmd = &cobra.Command{
	Use:   "yb-ddbio",
	Short: "A CLI to run DynamoDB bulk exports and imports and to read and write their data files",
	Long: `yb-ddbio starts and tracks DynamoDB point-in-time exports to S3 and bulk imports from S3,
reads the exported data files (DynamoDB JSON or Amazon Ion) and writes import-ready files.`,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		overrides, err := initConfig(cmd)
		if err != nil {
			utils.ErrExit("ERROR: %v", err)
		}
		err = validateLogLevel()
		if err != nil {
			utils.ErrExit("ERROR: %v", err)
		}
		if logDir == "" {
			logDir = defaultWorkDir()
		}
		InitLogging(logDir, cmd.Name() == "version", logFileCmdName(cmd))
		for _, o := range overrides {
			val := o.Value
			if lo.Contains(secretFlags, o.FlagName) {
				val = "XXX"
			}
			log.Infof("flag --%s set from config key %q to %q", o.FlagName, o.ConfigKey, val)
		}
		if historyDBPath == "" {
			historyDBPath = metadb.DefaultPath()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	registerGlobalFlags(rootCmd)
}

func registerGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default $"+CONFIG_FILE_ENV_VAR+" or $HOME/"+CONFIG_FILE_NAME+".yaml)")

	cmd.PersistentFlags().StringVar(&awsSettings.Region, "aws-region", "",
		"AWS region (default from the AWS shared config or environment)")

	cmd.PersistentFlags().StringVar(&awsSettings.Profile, "aws-profile", "",
		"AWS shared config profile")

	cmd.PersistentFlags().StringVar(&awsSettings.EndpointURL, "endpoint-url", "",
		"custom endpoint for DynamoDB and S3, e.g. http://localhost:4566 for LocalStack")

	cmd.PersistentFlags().StringVar(&awsSettings.AccessKeyID, "aws-access-key-id", "",
		"static AWS access key id (default from the AWS credential chain)")

	cmd.PersistentFlags().StringVar(&awsSettings.SecretAccessKey, "aws-secret-access-key", "",
		"static AWS secret access key")

	cmd.PersistentFlags().StringVar(&awsSettings.SessionToken, "aws-session-token", "",
		"static AWS session token")

	cmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"log level for yb-ddbio. Accepted values: "+strings.Join(validLogLevels, ", "))

	cmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"directory under which the logs/ folder is created (default $HOME/.yb-ddbio)")

	cmd.PersistentFlags().StringVar(&historyDBPath, "history-db", "",
		"sqlite file recording the jobs started or inspected with yb-ddbio (default $HOME/.yb-ddbio/history.db)")

	cmd.PersistentFlags().StringVar(&localDir, "local-dir", "",
		"read and write objects under this directory instead of S3 (<local-dir>/<bucket>/<key>)")

	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false,
		"print results as JSON instead of tables")
}

func validateLogLevel() error {
	logLevel = strings.ToLower(logLevel)
	if !lo.Contains(validLogLevels, logLevel) {
		return goerrors.Errorf("invalid log level: %s. Valid log levels = %v", logLevel, validLogLevels)
	}
	return nil
}

func defaultWorkDir() string {
	return filepath.Dir(metadb.DefaultPath())
}

// logFileCmdName gives "export-start" for "yb-ddbio export start".
func logFileCmdName(cmd *cobra.Command) string {
	name := configKeyPrefix(cmd)
	if name == "" {
		return cmd.Root().Name()
	}
	return name
}
