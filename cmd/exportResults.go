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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/yugabyte/yb-ddbio/src/datafile"
	"github.com/yugabyte/yb-ddbio/src/datastore"
	"github.com/yugabyte/yb-ddbio/src/ddbjson"
	"github.com/yugabyte/yb-ddbio/src/exportjob"
	"github.com/yugabyte/yb-ddbio/src/utils"
	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

var (
	exportS3Dir     string
	exportSearchURI string
	readOutputPath  string
	readFormatStr   string
	disablePb       bool
)

var exportManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the manifest summary of a completed export",
	PreRun: func(cmd *cobra.Command, args []string) {
		validateExportSourceFlags()
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ds := getDatastore(ctx)
		defer ds.Close()
		job, api := resolveExport(ctx, ds)
		summary, err := job.GetManifestSummary(ctx, api, ds)
		if err != nil {
			utils.ErrExit("read manifest summary of export %s: %s", job.Arn, err)
		}
		data, err := summary.Marshal()
		if err != nil {
			utils.ErrExit("marshal manifest summary: %s", err)
		}
		fmt.Println(string(data))
	},
}

var exportFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the data files of a completed export",
	PreRun: func(cmd *cobra.Command, args []string) {
		validateExportSourceFlags()
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ds := getDatastore(ctx)
		defer ds.Close()
		job, api := resolveExport(ctx, ds)
		dataFiles, err := job.GetDataFiles(ctx, api, ds)
		if err != nil {
			utils.ErrExit("list data files of export %s: %s", job.Arn, err)
		}
		printDataFiles(dataFiles)
	},
}

var exportReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Decompress the data files of a completed export into one record per line",
	Long: `Read writes every item of a completed export, one per line, to stdout or --output.
DynamoDB JSON exports produce {"Item":{...}} JSON lines, Ion exports produce {Item:{...}} Ion text lines.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		validateExportSourceFlags()
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ds := getDatastore(ctx)
		defer ds.Close()
		job, api := resolveExport(ctx, ds)
		if readFormatStr != "" {
			format, err := datafile.ParseFormat(readFormatStr)
			if err != nil {
				utils.ErrExit("invalid --format: %s", err)
			}
			copied := *job
			copied.Format = format
			job = &copied
		}

		out := os.Stdout
		if readOutputPath != "" {
			f, err := os.Create(readOutputPath)
			if err != nil {
				utils.ErrExit("create %s: %s", readOutputPath, err)
			}
			defer f.Close()
			out = f
		}
		bw := bufio.NewWriter(out)
		count, err := readExport(ctx, job, api, ds, bw)
		if err == nil {
			err = bw.Flush()
		}
		if err != nil {
			utils.ErrExit("read export %s: %s", job.Arn, err)
		}
		log.Infof("read %d items of export %s", count, job.Arn)
		if readOutputPath != "" {
			utils.PrintAndLog("Wrote %s items to %s", humanize.Comma(count), readOutputPath)
		}
	},
}

var exportFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the export directories below an S3 prefix",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ds := getDatastore(ctx)
		defer ds.Close()
		dirs, err := exportjob.FindExportDirs(ctx, ds, exportSearchURI)
		if err != nil {
			utils.ErrExit("find exports under %s: %s", exportSearchURI, err)
		}
		if outputJSON {
			printJSON(dirs)
			return
		}
		if len(dirs) == 0 {
			fmt.Printf("No exports found under %s\n", exportSearchURI)
		}
		for _, dir := range dirs {
			fmt.Println(dir)
		}
	},
}

func validateExportSourceFlags() {
	if (exportArn == "") == (exportS3Dir == "") {
		utils.ErrExit("exactly one of --export-arn and --s3-dir is required")
	}
	if exportS3Dir != "" && !s3.IsS3URI(exportS3Dir) {
		utils.ErrExit("invalid --s3-dir %q: expected s3://bucket/<prefix>AWSDynamoDB/<export-id>/", exportS3Dir)
	}
}

// resolveExport builds the export from --export-arn (DescribeExport) or
// from --s3-dir (manifest only). The API is nil in the latter case.
func resolveExport(ctx context.Context, ds *datastore.Datastore) (*exportjob.Job, exportjob.API) {
	if exportArn != "" {
		api := getClients(ctx).DynamoDB
		job, err := exportjob.Describe(ctx, api, exportArn)
		if err != nil {
			utils.ErrExit("describe export: %s", err)
		}
		recordExportJob(job)
		if !job.IsCompleted() {
			utils.ErrExit("export %s is %s, its output can only be read once it is COMPLETED", job.Arn, job.Status)
		}
		return job, api
	}
	loc, err := s3.ParseURI(exportS3Dir)
	if err != nil {
		utils.ErrExit("invalid --s3-dir: %s", err)
	}
	job, err := exportjob.FromS3Dir(ctx, ds, loc.Bucket, loc.Key)
	if err != nil {
		utils.ErrExit("load export from %s: %s", exportS3Dir, err)
	}
	return job, nil
}

func readExport(ctx context.Context, job *exportjob.Job, api exportjob.API, ds *datastore.Datastore, w io.Writer) (int64, error) {
	dataFiles, err := job.GetDataFiles(ctx, api, ds)
	if err != nil {
		return 0, err
	}
	bar, progress := newReadProgressBar(job, dataFiles)
	var count int64
	for _, df := range dataFiles {
		n, err := copyDataFile(ctx, ds, df, job.Format, w)
		count += n
		if err != nil {
			if progress != nil {
				progress.Shutdown()
			}
			return count, err
		}
		if bar != nil {
			bar.IncrInt64(df.ItemCount)
		}
	}
	if progress != nil {
		progress.Wait()
	}
	return count, nil
}

func copyDataFile(ctx context.Context, ds *datastore.Datastore, df datafile.DataFile, format datafile.Format, w io.Writer) (int64, error) {
	switch format {
	case datafile.DYNAMODB_JSON:
		items, err := df.ReadItems(ctx, ds)
		if err != nil {
			return 0, err
		}
		for i, item := range items {
			data, err := ddbjson.MarshalItem(item)
			if err != nil {
				return int64(i), fmt.Errorf("%s item %d: %w", df.URI(), i+1, err)
			}
			if _, err := fmt.Fprintf(w, "{\"Item\":%s}\n", data); err != nil {
				return int64(i), err
			}
		}
		return int64(len(items)), nil
	case datafile.ION:
		return df.WalkIonLines(ctx, ds, func(line []byte) error {
			if _, err := w.Write(line); err != nil {
				return err
			}
			_, err := io.WriteString(w, "\n")
			return err
		})
	default:
		return 0, fmt.Errorf("unsupported export format %q", format)
	}
}

// newReadProgressBar returns nils when there is nothing to report.
func newReadProgressBar(job *exportjob.Job, dataFiles []datafile.DataFile) (*mpb.Bar, *mpb.Progress) {
	if disablePb || readOutputPath == "" {
		return nil, nil
	}
	total := lo.SumBy(dataFiles, func(df datafile.DataFile) int64 { return df.ItemCount })
	if total == 0 {
		return nil, nil
	}
	progress := mpb.New(mpb.WithOutput(os.Stderr))
	bar := progress.AddBar(total,
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(
			decor.Name(job.ShortID()),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.NewPercentage("%.2f", decor.WCSyncSpaceR), "completed",
			),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO), "",
			),
		),
	)
	return bar, progress
}

func printDataFiles(dataFiles []datafile.DataFile) {
	if outputJSON {
		printJSON(dataFiles)
		return
	}
	headerfmt := color.New(color.FgGreen, color.Underline).SprintFunc()
	table := uitable.New()
	table.AddRow(headerfmt("DATA FILE"), headerfmt("ITEMS"), headerfmt("MD5"))
	var total int64
	for _, df := range dataFiles {
		table.AddRow(df.URI(), humanize.Comma(df.ItemCount), df.MD5)
		total += df.ItemCount
	}
	fmt.Print("\n")
	fmt.Println(table)
	fmt.Printf("\n%d data files, %s items\n", len(dataFiles), humanize.Comma(total))
}

func init() {
	exportCmd.AddCommand(exportManifestCmd, exportFilesCmd, exportReadCmd, exportFindCmd)

	for _, cmd := range []*cobra.Command{exportManifestCmd, exportFilesCmd, exportReadCmd} {
		cmd.Flags().StringVar(&exportArn, "export-arn", "", "ARN of a completed export")
		cmd.Flags().StringVar(&exportS3Dir, "s3-dir", "",
			"export directory, s3://bucket/<prefix>AWSDynamoDB/<export-id>/ (no DynamoDB call is made)")
	}

	exportReadCmd.Flags().StringVar(&readOutputPath, "output", "", "write records to this file instead of stdout")
	exportReadCmd.Flags().StringVar(&readFormatStr, "format", "", "decode the data files as DYNAMODB_JSON or ION (default the export's format)")
	exportReadCmd.Flags().BoolVar(&disablePb, "disable-pb", false, "true - to disable the progress bar (default false)")

	exportFindCmd.Flags().StringVar(&exportSearchURI, "s3-uri", "", "prefix to search, e.g. s3://bucket/exports/")
	markFlagsRequired(exportFindCmd, "s3-uri")
}
