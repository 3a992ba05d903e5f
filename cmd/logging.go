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
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// jobLogFormatter renders one line per entry. Job ARNs and object URIs
// appear verbatim in messages, so no fields or quoting are added:
//
//	2024-05-02 10:31:07 INFO service.go:104 started export arn:aws:dynamodb:...
type jobLogFormatter struct{}

var levelNames = []string{"PANIC", "FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (f *jobLogFormatter) Format(entry *log.Entry) ([]byte, error) {
	fileName, line := "-", 0
	if entry.Caller != nil {
		fileName = filepath.Base(entry.Caller.File)
		line = entry.Caller.Line
	}
	msg := fmt.Sprintf("%s %s %s:%d %s\n",
		entry.Time.Format("2006-01-02 15:04:05"), levelNames[entry.Level],
		fileName, line, entry.Message)
	return []byte(msg), nil
}

// InitLogging routes logrus to a rotating per-command file under
// <logDir>/logs. The version command logs nothing.
func InitLogging(logDir string, disableLogging bool, cmdName string) {
	if disableLogging {
		log.SetOutput(io.Discard)
		return
	}
	logFileName := logFilePath(logDir, cmdName)

	logRotator := &lumberjack.Logger{
		Filename:   logFileName,
		MaxSize:    50, // MB
		MaxBackups: 5,
	}
	log.SetOutput(logRotator)

	log.SetReportCaller(true)
	log.SetFormatter(&jobLogFormatter{})
	lvl, err := log.ParseLevel(logLevel)
	if err == nil {
		log.SetLevel(lvl)
	}
	redactSecretsFromArgs()
	log.Infof("Args: %v", os.Args)
	log.Infof("\n%s", getVersionInfo())
}

func logFilePath(logDir string, cmdName string) string {
	return filepath.Join(logDir, "logs", fmt.Sprintf("yb-ddbio-%s.log", cmdName))
}

// redactSecretsFromArgs masks AWS credentials given on the command line
// before argv is logged.
func redactSecretsFromArgs() {
	for i := 0; i < len(os.Args)-1; i++ {
		opt := os.Args[i]
		if opt == "--aws-secret-access-key" || opt == "--aws-session-token" {
			os.Args[i+1] = "XXX"
		}
	}
}
