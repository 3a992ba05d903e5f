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
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-ddbio/src/importjob"
	"github.com/yugabyte/yb-ddbio/src/utils"
)

var (
	importArn         string
	importStartParams importjob.StartParams
	importListParams  importjob.ListParams
	importFormatStr   string
	compressionStr    string
	csvDelimiter      string
	csvHeader         string
	importTableName   string
	partitionKeyStr   string
	sortKeyStr        string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Start and track DynamoDB bulk imports from S3 into a new table",
}

var importStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Import the data files under an S3 prefix into a new on-demand table",
	PreRun: func(cmd *cobra.Command, args []string) {
		validateImportStartFlags()
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		api := getClients(ctx).DynamoDB
		job, err := importjob.Start(ctx, api, importStartParams)
		if err != nil {
			utils.ErrExit("start import: %s", err)
		}
		recordImportJob(job)
		utils.PrintAndLog("Started import %s into table %s from %s", job.Arn, job.TableName(), job.S3URISource())
		if waitForJob {
			job = waitForImport(ctx, api, job.Arn)
		}
		printImportJob(job)
	},
}

var importDescribeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show the current state of an import",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		job, err := importjob.Describe(ctx, getClients(ctx).DynamoDB, importArn)
		if err != nil {
			utils.ErrExit("describe import: %s", err)
		}
		recordImportJob(job)
		printImportJob(job)
	},
}

var importListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the imports into a table, or into every table in the region",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		jobs, err := importjob.List(ctx, getClients(ctx).DynamoDB, importListParams)
		if err != nil {
			utils.ErrExit("list imports: %s", err)
		}
		printImportJobs(jobs)
	},
}

var importWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until an import is COMPLETED, CANCELLED or FAILED",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		job := waitForImport(ctx, getClients(ctx).DynamoDB, importArn)
		printImportJob(job)
	},
}

func waitForImport(ctx context.Context, api importjob.API, arn string) *importjob.Job {
	w, stop := newWaiter("import " + arn)
	job, err := importjob.WaitUntilComplete(ctx, api, arn, w)
	stop()
	if job != nil {
		recordImportJob(job)
	}
	if err != nil {
		reportWaitError("wait for import", err)
	}
	utils.PrintAndLog("Import %s completed in %s", job.Arn, job.EndTime.Sub(job.StartTime).Round(time.Second))
	return job
}

func validateImportStartFlags() {
	var err error
	importStartParams.InputFormat, err = importjob.ParseInputFormat(importFormatStr)
	if err != nil {
		utils.ErrExit("invalid --input-format: %s", err)
	}
	importStartParams.InputCompressionType, err = importjob.ParseCompressionType(compressionStr)
	if err != nil {
		utils.ErrExit("invalid --compression: %s", err)
	}
	if importStartParams.InputFormat == importjob.CSV {
		csvOpts := &types.CsvOptions{}
		if csvDelimiter != "" {
			csvOpts.Delimiter = aws.String(csvDelimiter)
		}
		if csvHeader != "" {
			csvOpts.HeaderList = strings.Split(csvHeader, ",")
		}
		importStartParams.InputFormatOptions = &types.InputFormatOptions{Csv: csvOpts}
	} else if csvDelimiter != "" || csvHeader != "" {
		utils.ErrExit("--csv-delimiter and --csv-header only apply to --input-format CSV")
	}

	pk, err := importjob.ParseKeyAttribute(partitionKeyStr)
	if err != nil {
		utils.ErrExit("invalid --partition-key: %s", err)
	}
	var sk *importjob.KeyAttribute
	if sortKeyStr != "" {
		key, err := importjob.ParseKeyAttribute(sortKeyStr)
		if err != nil {
			utils.ErrExit("invalid --sort-key: %s", err)
		}
		sk = &key
	}
	importStartParams.TableCreationParameters = importjob.OnDemandTable(importTableName, pk, sk)
}

func printImportJob(job *importjob.Job) {
	if outputJSON {
		printJSON(job)
		return
	}
	table := uitable.New()
	table.MaxColWidth = 120
	table.AddRow("ARN:", job.Arn)
	table.AddRow("STATUS:", colorStatus(string(job.Status)))
	table.AddRow("TABLE:", job.TableArn)
	if job.S3Bucket != "" {
		table.AddRow("SOURCE:", job.S3URISource())
	}
	table.AddRow("FORMAT:", job.InputFormat)
	table.AddRow("COMPRESSION:", job.InputCompressionType)
	table.AddRow("START TIME:", formatTime(job.StartTime))
	table.AddRow("END TIME:", formatTime(job.EndTime))
	table.AddRow("PROCESSED:", fmt.Sprintf("%s items, %s",
		humanize.Comma(job.ProcessedItemCount), humanize.Bytes(uint64(job.ProcessedSizeBytes))))
	table.AddRow("IMPORTED ITEMS:", humanize.Comma(job.ImportedItemCount))
	if job.ErrorCount > 0 {
		table.AddRow("ERRORS:", color.YellowString("%d (see %s)", job.ErrorCount, job.CloudWatchLogGroupArn))
	}
	if job.FailureCode != "" || job.FailureMessage != "" {
		table.AddRow("FAILURE:", color.RedString("%s: %s", job.FailureCode, job.FailureMessage))
	}
	fmt.Println(table)
}

func printImportJobs(jobs []*importjob.Job) {
	if outputJSON {
		printJSON(jobs)
		return
	}
	if len(jobs) == 0 {
		fmt.Println("No imports found.")
		return
	}
	headerfmt := color.New(color.FgGreen, color.Underline).SprintFunc()
	table := uitable.New()
	table.AddRow(headerfmt("ARN"), headerfmt("STATUS"), headerfmt("FORMAT"), headerfmt("START TIME"), headerfmt("SOURCE"))
	for _, job := range jobs {
		source := "-"
		if job.S3Bucket != "" {
			source = job.S3URISource()
		}
		table.AddRow(job.Arn, colorStatus(string(job.Status)), job.InputFormat, formatTime(job.StartTime), source)
	}
	fmt.Print("\n")
	fmt.Println(table)
	fmt.Print("\n")
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importStartCmd, importDescribeCmd, importListCmd, importWaitCmd)

	f := importStartCmd.Flags()
	f.StringVar(&importStartParams.S3Bucket, "s3-bucket", "", "bucket holding the data files")
	f.StringVar(&importStartParams.S3KeyPrefix, "s3-key-prefix", "", "only import objects under this key prefix")
	f.StringVar(&importStartParams.S3BucketOwner, "s3-bucket-owner", "", "account id owning the bucket, when it is not the caller's")
	f.StringVar(&importFormatStr, "input-format", string(importjob.DYNAMODB_JSON), "format of the data files: DYNAMODB_JSON, ION or CSV")
	f.StringVar(&compressionStr, "compression", string(importjob.GZIP), "compression of the data files: GZIP, ZSTD or NONE")
	f.StringVar(&csvDelimiter, "csv-delimiter", "", "field delimiter for CSV input (default ,)")
	f.StringVar(&csvHeader, "csv-header", "", "comma separated column names, when the CSV files have no header line")
	f.StringVar(&importTableName, "table-name", "", "name of the table to create")
	f.StringVar(&partitionKeyStr, "partition-key", "", "partition key of the new table as name[:S|N|B]")
	f.StringVar(&sortKeyStr, "sort-key", "", "sort key of the new table as name[:S|N|B]")
	f.StringVar(&importStartParams.ClientToken, "client-token", "", "idempotency token (default a random UUID)")
	f.BoolVar(&waitForJob, "wait", false, "wait for the import to complete")
	registerWaitFlags(importStartCmd)
	markFlagsRequired(importStartCmd, "s3-bucket", "table-name", "partition-key")

	importDescribeCmd.Flags().StringVar(&importArn, "import-arn", "", "ARN of the import")
	markFlagsRequired(importDescribeCmd, "import-arn")

	f = importListCmd.Flags()
	f.StringVar(&importListParams.TableArn, "table-arn", "", "only list imports into this table")
	f.IntVar(&importListParams.PageSize, "page-size", importjob.DEFAULT_PAGE_SIZE, "imports requested per ListImports call")
	f.IntVar(&importListParams.MaxResults, "max-results", importjob.DEFAULT_MAX_RESULTS, "stop after this many imports")
	f.BoolVar(&importListParams.Details, "details", false, "describe every listed import")

	importWaitCmd.Flags().StringVar(&importArn, "import-arn", "", "ARN of the import")
	registerWaitFlags(importWaitCmd)
	markFlagsRequired(importWaitCmd, "import-arn")
}
