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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/gosuri/uilive"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-ddbio/src/awsclient"
	"github.com/yugabyte/yb-ddbio/src/datastore"
	"github.com/yugabyte/yb-ddbio/src/errs"
	"github.com/yugabyte/yb-ddbio/src/exportjob"
	"github.com/yugabyte/yb-ddbio/src/importjob"
	"github.com/yugabyte/yb-ddbio/src/metadb"
	"github.com/yugabyte/yb-ddbio/src/utils"
	"github.com/yugabyte/yb-ddbio/src/waiter"
)

var (
	clients *awsclient.Clients

	// shared by the commands that poll a job
	pollInterval time.Duration
	waitTimeout  time.Duration
)

func getClients(ctx context.Context) *awsclient.Clients {
	if clients != nil {
		return clients
	}
	var err error
	clients, err = awsclient.NewClients(ctx, awsSettings)
	if err != nil {
		utils.ErrExit("ERROR: %v", err)
	}
	return clients
}

// getDatastore serves s3:// URIs from S3, or from --local-dir when set.
func getDatastore(ctx context.Context) *datastore.Datastore {
	if localDir != "" {
		log.Infof("using local datastore rooted at %s", localDir)
		return datastore.NewLocalDatastore(localDir)
	}
	return datastore.NewS3Datastore(getClients(ctx).S3)
}

func registerWaitFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", waiter.DEFAULT_DELAY,
		"delay between two status checks")
	cmd.Flags().DurationVar(&waitTimeout, "timeout", waiter.DEFAULT_TIMEOUT,
		"give up waiting after this long (the job itself keeps running)")
}

// newWaiter returns a waiter that reports its attempts on a live-updating
// terminal line. The returned func stops the line.
func newWaiter(name string) (*waiter.Waiter, func()) {
	w := waiter.New(name, pollInterval, waitTimeout)
	if outputJSON {
		return w, func() {}
	}
	lw := uilive.New()
	lw.Out = os.Stderr
	lw.Start()
	w.Progress = lw
	return w, lw.Stop
}

func reportWaitError(what string, err error) {
	var timeoutErr *errs.TimeoutError
	switch {
	case errors.As(err, &timeoutErr):
		utils.ErrExit("%s: %s; the job may still be running, check again with describe", what, timeoutErr)
	default:
		utils.ErrExit("%s: %s", what, err)
	}
}

func markFlagsRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func colorStatus(status string) string {
	switch status {
	case string(exportjob.COMPLETED):
		return color.GreenString(status)
	case string(exportjob.FAILED), string(importjob.CANCELLED):
		return color.RedString(status)
	case string(importjob.CANCELLING):
		return color.YellowString(status)
	default:
		return color.CyanString(status)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		utils.ErrExit("marshal output: %s", err)
	}
	fmt.Println(string(data))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

//=========================================================================

func recordExportJob(job *exportjob.Job) {
	rec := metadb.JobRecord{
		Arn:       job.Arn,
		Kind:      errs.EXPORT_JOB,
		Status:    string(job.Status),
		TableArn:  job.TableArn,
		ItemCount: job.ItemCount,
		StartTime: job.StartTime,
	}
	if job.S3Bucket != "" {
		rec.S3URI = job.S3URIExport()
	}
	recordJob(rec, job)
}

func recordImportJob(job *importjob.Job) {
	rec := metadb.JobRecord{
		Arn:       job.Arn,
		Kind:      errs.IMPORT_JOB,
		Status:    string(job.Status),
		TableArn:  job.TableArn,
		ItemCount: job.ImportedItemCount,
		StartTime: job.StartTime,
	}
	if job.S3Bucket != "" {
		rec.S3URI = job.S3URISource()
	}
	recordJob(rec, job)
}

// recordJob never fails the command: the history is a convenience.
func recordJob(rec metadb.JobRecord, details any) {
	db, err := metadb.NewMetaDB(historyDBPath)
	if err != nil {
		log.Warnf("open job history %s: %v", historyDBPath, err)
		return
	}
	defer db.Close()
	if err := db.RecordJob(rec, details); err != nil {
		log.Warnf("record %s job %s: %v", rec.Kind, rec.Arn, err)
	}
}
