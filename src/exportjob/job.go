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

// Package exportjob wraps DynamoDB's ExportTableToPointInTime jobs and the
// data they leave on S3.
//
// Ref: https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/S3DataExport.HowItWorks.html
package exportjob

import (
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/yugabyte/yb-ddbio/src/datafile"
	"github.com/yugabyte/yb-ddbio/src/manifest"
	"github.com/yugabyte/yb-ddbio/src/utils"
	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

type Status string

const (
	IN_PROGRESS Status = "IN_PROGRESS"
	COMPLETED   Status = "COMPLETED"
	FAILED      Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == COMPLETED || s == FAILED
}

// Job is a snapshot of one export as last reported by the service. It is
// never updated in place; Refresh returns a new snapshot.
type Job struct {
	Arn             string
	Status          Status
	Format          datafile.Format
	StartTime       time.Time
	EndTime         time.Time
	ExportTime      time.Time
	TableArn        string
	TableId         string
	S3Bucket        string
	S3BucketOwner   string
	S3Prefix        string // "" or ends with "/"
	S3SseAlgorithm  string
	S3SseKmsKeyId   string
	ItemCount       int64
	BilledSizeBytes int64
	ClientToken     string
	FailureCode     string
	FailureMessage  string
	ExportManifest  string
}

// FromDescription builds a Job from the ExportDescription returned by
// ExportTableToPointInTime or DescribeExport.
func FromDescription(desc *types.ExportDescription) *Job {
	return &Job{
		Arn:             aws.ToString(desc.ExportArn),
		Status:          Status(desc.ExportStatus),
		Format:          datafile.Format(desc.ExportFormat),
		StartTime:       aws.ToTime(desc.StartTime),
		EndTime:         aws.ToTime(desc.EndTime),
		ExportTime:      aws.ToTime(desc.ExportTime),
		TableArn:        aws.ToString(desc.TableArn),
		TableId:         aws.ToString(desc.TableId),
		S3Bucket:        aws.ToString(desc.S3Bucket),
		S3BucketOwner:   aws.ToString(desc.S3BucketOwner),
		S3Prefix:        utils.WithTrailingSlash(aws.ToString(desc.S3Prefix)),
		S3SseAlgorithm:  string(desc.S3SseAlgorithm),
		S3SseKmsKeyId:   aws.ToString(desc.S3SseKmsKeyId),
		ItemCount:       aws.ToInt64(desc.ItemCount),
		BilledSizeBytes: aws.ToInt64(desc.BilledSizeBytes),
		ClientToken:     aws.ToString(desc.ClientToken),
		FailureCode:     aws.ToString(desc.FailureCode),
		FailureMessage:  aws.ToString(desc.FailureMessage),
		ExportManifest:  aws.ToString(desc.ExportManifest),
	}
}

func fromSummary(s types.ExportSummary) *Job {
	return &Job{
		Arn:    aws.ToString(s.ExportArn),
		Status: Status(s.ExportStatus),
	}
}

func (j *Job) IsInProgress() bool { return j.Status == IN_PROGRESS }
func (j *Job) IsCompleted() bool  { return j.Status == COMPLETED }
func (j *Job) IsFailed() bool     { return j.Status == FAILED }
func (j *Job) IsTerminal() bool   { return j.Status.IsTerminal() }

func (j *Job) IsDynamoDBJSONFormat() bool { return j.Format == datafile.DYNAMODB_JSON }
func (j *Job) IsIonFormat() bool          { return j.Format == datafile.ION }

// ShortID is the last segment of the export ARN, a millisecond timestamp and
// a random suffix, e.g. "01672531200000-a1b2c3d4".
func (j *Job) ShortID() string {
	return j.Arn[strings.LastIndex(j.Arn, "/")+1:]
}

// S3URIExport is the location given when the export was started,
// e.g. s3://bucket/prefix/.
func (j *Job) S3URIExport() string {
	return s3.NewS3URI(j.S3Bucket, j.S3Prefix)
}

func (j *Job) exportDirKey() string {
	return manifest.ExportDir(j.S3Prefix, j.ShortID())
}

// S3URIExportData is where the data files are written,
// e.g. s3://bucket/prefix/AWSDynamoDB/01672531200000-a1b2c3d4/data/.
func (j *Job) S3URIExportData() string {
	return s3.NewS3URI(j.S3Bucket, j.exportDirKey()+manifest.DATA_DIR_NAME)
}

func (j *Job) S3URIManifestFiles() string {
	return s3.NewS3URI(j.S3Bucket, j.exportDirKey()+manifest.FILES_FILE_NAME)
}

func (j *Job) S3URIManifestSummary() string {
	return s3.NewS3URI(j.S3Bucket, j.exportDirKey()+manifest.SUMMARY_FILE_NAME)
}

// hasDetails is false for jobs built from a ListExports summary.
func (j *Job) hasDetails() bool {
	return j.S3Bucket != ""
}
