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

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yugabyte/yb-ddbio/src/errs"
	"github.com/yugabyte/yb-ddbio/src/metadb"
	"github.com/yugabyte/yb-ddbio/src/utils"
)

var (
	historyKind string
	historyArn  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the jobs recorded by previous yb-ddbio runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recorded exports and imports, most recently seen first",
	PreRun: func(cmd *cobra.Command, args []string) {
		if historyKind != "" && !lo.Contains([]string{errs.EXPORT_JOB, errs.IMPORT_JOB}, historyKind) {
			utils.ErrExit("invalid --kind %q: expected %s or %s", historyKind, errs.EXPORT_JOB, errs.IMPORT_JOB)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		db, err := metadb.NewMetaDB(historyDBPath)
		if err != nil {
			utils.ErrExit("open job history: %s", err)
		}
		defer db.Close()
		recs, err := db.ListJobs(historyKind)
		if err != nil {
			utils.ErrExit("list recorded jobs: %s", err)
		}
		printJobRecords(recs)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the last recorded snapshot of a job",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := metadb.NewMetaDB(historyDBPath)
		if err != nil {
			utils.ErrExit("open job history: %s", err)
		}
		defer db.Close()
		rec, found, err := db.GetJob(historyArn)
		if err != nil {
			utils.ErrExit("get recorded job %s: %s", historyArn, err)
		}
		if !found {
			utils.ErrExit("no job recorded for %s", historyArn)
		}
		if outputJSON {
			printJSON(rec.Details)
			return
		}
		printJobRecords([]*metadb.JobRecord{rec})
	},
}

var historyForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove a job from the local history. The job itself is not touched",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := metadb.NewMetaDB(historyDBPath)
		if err != nil {
			utils.ErrExit("open job history: %s", err)
		}
		defer db.Close()
		if err := db.DeleteJob(historyArn); err != nil {
			utils.ErrExit("forget job %s: %s", historyArn, err)
		}
		utils.PrintAndLog("Removed %s from the job history", historyArn)
	},
}

func printJobRecords(recs []*metadb.JobRecord) {
	if outputJSON {
		printJSON(recs)
		return
	}
	if len(recs) == 0 {
		fmt.Println("No jobs recorded.")
		return
	}
	headerfmt := color.New(color.FgGreen, color.Underline).SprintFunc()
	table := uitable.New()
	table.AddRow(headerfmt("KIND"), headerfmt("ARN"), headerfmt("STATUS"), headerfmt("ITEMS"), headerfmt("S3 URI"), headerfmt("LAST SEEN"))
	for _, rec := range recs {
		table.AddRow(rec.Kind, rec.Arn, colorStatus(rec.Status), humanize.Comma(rec.ItemCount),
			lo.Ternary(rec.S3URI == "", "-", rec.S3URI), humanize.Time(rec.UpdatedAt))
	}
	fmt.Print("\n")
	fmt.Println(table)
	fmt.Print("\n")
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyListCmd.Flags().StringVar(&historyKind, "kind", "", "only list jobs of this kind: export or import")

	for _, c := range []*cobra.Command{historyShowCmd, historyForgetCmd} {
		historyCmd.AddCommand(c)
		c.Flags().StringVar(&historyArn, "arn", "", "export or import ARN")
		markFlagsRequired(c, "arn")
	}
}
