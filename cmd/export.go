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
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-ddbio/src/datafile"
	"github.com/yugabyte/yb-ddbio/src/exportjob"
	"github.com/yugabyte/yb-ddbio/src/utils"
)

var (
	exportArn         string
	exportStartParams exportjob.StartParams
	exportListParams  exportjob.ListParams
	exportTimeStr     string
	exportFormatStr   string
	waitForJob        bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Start, track and read DynamoDB point-in-time exports to S3",
	Long: `Export has sub-commands to start a point-in-time export of a table to S3, follow it until it
finishes and read its manifests and data files.`,
}

var exportStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a point-in-time export of a table to S3",
	PreRun: func(cmd *cobra.Command, args []string) {
		validateExportStartFlags()
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		api := getClients(ctx).DynamoDB
		job, err := exportjob.Start(ctx, api, exportStartParams)
		if err != nil {
			utils.ErrExit("start export: %s", err)
		}
		recordExportJob(job)
		utils.PrintAndLog("Started export %s of table %s to %s", job.Arn, job.TableArn, job.S3URIExport())
		if waitForJob {
			job = waitForExport(ctx, api, job.Arn)
		}
		printExportJob(job)
	},
}

var exportDescribeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show the current state of an export",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		job, err := exportjob.Describe(ctx, getClients(ctx).DynamoDB, exportArn)
		if err != nil {
			utils.ErrExit("describe export: %s", err)
		}
		recordExportJob(job)
		printExportJob(job)
	},
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the exports of a table, or of every table in the region",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		jobs, err := exportjob.List(ctx, getClients(ctx).DynamoDB, exportListParams)
		if err != nil {
			utils.ErrExit("list exports: %s", err)
		}
		printExportJobs(jobs)
	},
}

var exportWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until an export is COMPLETED or FAILED",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		job := waitForExport(ctx, getClients(ctx).DynamoDB, exportArn)
		printExportJob(job)
	},
}

func waitForExport(ctx context.Context, api exportjob.API, arn string) *exportjob.Job {
	w, stop := newWaiter("export " + arn)
	job, err := exportjob.WaitUntilComplete(ctx, api, arn, w)
	stop()
	if job != nil {
		recordExportJob(job)
	}
	if err != nil {
		reportWaitError("wait for export", err)
	}
	utils.PrintAndLog("Export %s completed in %s", job.Arn, job.EndTime.Sub(job.StartTime).Round(time.Second))
	return job
}

func validateExportStartFlags() {
	if exportTimeStr != "" {
		t, err := time.Parse(time.RFC3339, exportTimeStr)
		if err != nil {
			utils.ErrExit("invalid --export-time %q, expected RFC3339 e.g. 2023-04-01T10:00:00Z: %s", exportTimeStr, err)
		}
		exportStartParams.ExportTime = t
	}
	format, err := datafile.ParseFormat(exportFormatStr)
	if err != nil {
		utils.ErrExit("invalid --format: %s", err)
	}
	exportStartParams.Format = format
}

func printExportJob(job *exportjob.Job) {
	if outputJSON {
		printJSON(job)
		return
	}
	table := uitable.New()
	table.MaxColWidth = 120
	table.AddRow("ARN:", job.Arn)
	table.AddRow("STATUS:", colorStatus(string(job.Status)))
	table.AddRow("TABLE:", job.TableArn)
	table.AddRow("FORMAT:", job.Format)
	if job.S3Bucket != "" {
		table.AddRow("LOCATION:", job.S3URIExport())
	}
	table.AddRow("EXPORT TIME:", formatTime(job.ExportTime))
	table.AddRow("START TIME:", formatTime(job.StartTime))
	table.AddRow("END TIME:", formatTime(job.EndTime))
	if job.IsCompleted() {
		table.AddRow("ITEMS:", humanize.Comma(job.ItemCount))
		table.AddRow("BILLED SIZE:", humanize.Bytes(uint64(job.BilledSizeBytes)))
		table.AddRow("MANIFEST:", job.S3URIManifestSummary())
	}
	if job.IsFailed() {
		table.AddRow("FAILURE:", color.RedString("%s: %s", job.FailureCode, job.FailureMessage))
	}
	fmt.Println(table)
}

func printExportJobs(jobs []*exportjob.Job) {
	if outputJSON {
		printJSON(jobs)
		return
	}
	if len(jobs) == 0 {
		fmt.Println("No exports found.")
		return
	}
	headerfmt := color.New(color.FgGreen, color.Underline).SprintFunc()
	table := uitable.New()
	table.AddRow(headerfmt("ARN"), headerfmt("STATUS"), headerfmt("FORMAT"), headerfmt("START TIME"), headerfmt("ITEMS"))
	for _, job := range jobs {
		items := "-"
		if job.IsCompleted() && exportListParams.Details {
			items = humanize.Comma(job.ItemCount)
		}
		table.AddRow(job.Arn, colorStatus(string(job.Status)), job.Format, formatTime(job.StartTime), items)
	}
	fmt.Print("\n")
	fmt.Println(table)
	fmt.Print("\n")
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportStartCmd, exportDescribeCmd, exportListCmd, exportWaitCmd)

	f := exportStartCmd.Flags()
	f.StringVar(&exportStartParams.TableArn, "table-arn", "", "ARN of the table to export")
	f.StringVar(&exportStartParams.S3Bucket, "s3-bucket", "", "destination bucket")
	f.StringVar(&exportStartParams.S3Prefix, "s3-prefix", "", "key prefix under which AWSDynamoDB/<export-id>/ is written")
	f.StringVar(&exportStartParams.S3BucketOwner, "s3-bucket-owner", "", "account id owning the bucket, when it is not the caller's")
	f.StringVar(&exportTimeStr, "export-time", "", "point in time to export, RFC3339 (default now)")
	f.StringVar(&exportFormatStr, "format", string(datafile.DYNAMODB_JSON), "output format: DYNAMODB_JSON or ION")
	f.StringVar(&exportStartParams.S3SseAlgorithm, "sse-algorithm", "", "server side encryption: AES256 or KMS")
	f.StringVar(&exportStartParams.S3SseKmsKeyId, "sse-kms-key-id", "", "KMS key for --sse-algorithm KMS")
	f.StringVar(&exportStartParams.ClientToken, "client-token", "", "idempotency token (default a random UUID)")
	f.BoolVar(&waitForJob, "wait", false, "wait for the export to complete")
	registerWaitFlags(exportStartCmd)
	markFlagsRequired(exportStartCmd, "table-arn", "s3-bucket")

	exportDescribeCmd.Flags().StringVar(&exportArn, "export-arn", "", "ARN of the export")
	markFlagsRequired(exportDescribeCmd, "export-arn")

	f = exportListCmd.Flags()
	f.StringVar(&exportListParams.TableArn, "table-arn", "", "only list exports of this table")
	f.IntVar(&exportListParams.PageSize, "page-size", exportjob.DEFAULT_PAGE_SIZE, "exports requested per ListExports call")
	f.IntVar(&exportListParams.MaxResults, "max-results", exportjob.DEFAULT_MAX_RESULTS, "stop after this many exports")
	f.BoolVar(&exportListParams.Details, "details", false, "describe every listed export")

	exportWaitCmd.Flags().StringVar(&exportArn, "export-arn", "", "ARN of the export")
	registerWaitFlags(exportWaitCmd)
	markFlagsRequired(exportWaitCmd, "export-arn")
}
