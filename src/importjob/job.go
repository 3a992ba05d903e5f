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

// Package importjob wraps DynamoDB's ImportTable jobs, which create a new
// table from data files on S3.
//
// Ref: https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/S3DataImport.HowItWorks.html
package importjob

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"

	"github.com/yugabyte/yb-ddbio/src/utils"
	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

type Status string

const (
	IN_PROGRESS Status = "IN_PROGRESS"
	COMPLETED   Status = "COMPLETED"
	CANCELLING  Status = "CANCELLING"
	CANCELLED   Status = "CANCELLED"
	FAILED      Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == COMPLETED || s == CANCELLED || s == FAILED
}

type InputFormat string

const (
	DYNAMODB_JSON InputFormat = "DYNAMODB_JSON"
	ION           InputFormat = "ION"
	CSV           InputFormat = "CSV"
)

type CompressionType string

const (
	GZIP CompressionType = "GZIP"
	ZSTD CompressionType = "ZSTD"
	NONE CompressionType = "NONE"
)

func ParseInputFormat(s string) (InputFormat, error) {
	f := InputFormat(strings.ToUpper(strings.TrimSpace(s)))
	if !lo.Contains([]InputFormat{DYNAMODB_JSON, ION, CSV}, f) {
		return "", fmt.Errorf("unsupported import input format %q", s)
	}
	return f, nil
}

func ParseCompressionType(s string) (CompressionType, error) {
	c := CompressionType(strings.ToUpper(strings.TrimSpace(s)))
	if !lo.Contains([]CompressionType{GZIP, ZSTD, NONE}, c) {
		return "", fmt.Errorf("unsupported import compression type %q", s)
	}
	return c, nil
}

// Job is a snapshot of one import as last reported by the service.
type Job struct {
	Arn                     string
	Status                  Status
	TableArn                string
	TableId                 string
	ClientToken             string
	S3BucketOwner           string
	S3Bucket                string
	S3Prefix                string // "" or ends with "/"
	ErrorCount              int64
	CloudWatchLogGroupArn   string
	InputFormat             InputFormat
	InputFormatOptions      *types.InputFormatOptions
	InputCompressionType    CompressionType
	TableCreationParameters *types.TableCreationParameters
	StartTime               time.Time
	EndTime                 time.Time
	ProcessedSizeBytes      int64
	ProcessedItemCount      int64
	ImportedItemCount       int64
	FailureCode             string
	FailureMessage          string
}

func FromDescription(desc *types.ImportTableDescription) *Job {
	job := &Job{
		Arn:                     aws.ToString(desc.ImportArn),
		Status:                  Status(desc.ImportStatus),
		TableArn:                aws.ToString(desc.TableArn),
		TableId:                 aws.ToString(desc.TableId),
		ClientToken:             aws.ToString(desc.ClientToken),
		ErrorCount:              desc.ErrorCount,
		CloudWatchLogGroupArn:   aws.ToString(desc.CloudWatchLogGroupArn),
		InputFormat:             InputFormat(desc.InputFormat),
		InputFormatOptions:      desc.InputFormatOptions,
		InputCompressionType:    CompressionType(desc.InputCompressionType),
		TableCreationParameters: desc.TableCreationParameters,
		StartTime:               aws.ToTime(desc.StartTime),
		EndTime:                 aws.ToTime(desc.EndTime),
		ProcessedSizeBytes:      aws.ToInt64(desc.ProcessedSizeBytes),
		ProcessedItemCount:      desc.ProcessedItemCount,
		ImportedItemCount:       desc.ImportedItemCount,
		FailureCode:             aws.ToString(desc.FailureCode),
		FailureMessage:          aws.ToString(desc.FailureMessage),
	}
	if src := desc.S3BucketSource; src != nil {
		job.S3Bucket = aws.ToString(src.S3Bucket)
		job.S3BucketOwner = aws.ToString(src.S3BucketOwner)
		job.S3Prefix = utils.WithTrailingSlash(aws.ToString(src.S3KeyPrefix))
	}
	return job
}

func fromSummary(s types.ImportSummary) *Job {
	job := &Job{
		Arn:                   aws.ToString(s.ImportArn),
		Status:                Status(s.ImportStatus),
		TableArn:              aws.ToString(s.TableArn),
		CloudWatchLogGroupArn: aws.ToString(s.CloudWatchLogGroupArn),
		InputFormat:           InputFormat(s.InputFormat),
		StartTime:             aws.ToTime(s.StartTime),
		EndTime:               aws.ToTime(s.EndTime),
	}
	if src := s.S3BucketSource; src != nil {
		job.S3Bucket = aws.ToString(src.S3Bucket)
		job.S3BucketOwner = aws.ToString(src.S3BucketOwner)
		job.S3Prefix = utils.WithTrailingSlash(aws.ToString(src.S3KeyPrefix))
	}
	return job
}

func (j *Job) IsInProgress() bool { return j.Status == IN_PROGRESS }
func (j *Job) IsCompleted() bool  { return j.Status == COMPLETED }
func (j *Job) IsCancelling() bool { return j.Status == CANCELLING }
func (j *Job) IsCancelled() bool  { return j.Status == CANCELLED }
func (j *Job) IsFailed() bool     { return j.Status == FAILED }
func (j *Job) IsTerminal() bool   { return j.Status.IsTerminal() }

// S3URISource is the data location the import reads from.
func (j *Job) S3URISource() string {
	return s3.NewS3URI(j.S3Bucket, j.S3Prefix)
}

func (j *Job) TableName() string {
	if j.TableCreationParameters != nil && j.TableCreationParameters.TableName != nil {
		return *j.TableCreationParameters.TableName
	}
	return j.TableArn[strings.LastIndex(j.TableArn, "/")+1:]
}

type KeyAttribute struct {
	Name string
	Type types.ScalarAttributeType
}

// ParseKeyAttribute parses "name:S", "name:N" or "name:B". The type
// defaults to S.
func ParseKeyAttribute(s string) (KeyAttribute, error) {
	name, typ, found := strings.Cut(s, ":")
	if !found {
		typ = "S"
	}
	if name == "" {
		return KeyAttribute{}, fmt.Errorf("empty key attribute name in %q", s)
	}
	attrType := types.ScalarAttributeType(strings.ToUpper(typ))
	if !lo.Contains(attrType.Values(), attrType) {
		return KeyAttribute{}, fmt.Errorf("invalid key attribute type %q in %q", typ, s)
	}
	return KeyAttribute{Name: name, Type: attrType}, nil
}

// OnDemandTable describes a PAY_PER_REQUEST table with the given primary
// key. sortKey may be nil.
func OnDemandTable(tableName string, partitionKey KeyAttribute, sortKey *KeyAttribute) *types.TableCreationParameters {
	params := &types.TableCreationParameters{
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(partitionKey.Name), AttributeType: partitionKey.Type},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(partitionKey.Name), KeyType: types.KeyTypeHash},
		},
	}
	if sortKey != nil {
		params.AttributeDefinitions = append(params.AttributeDefinitions,
			types.AttributeDefinition{AttributeName: aws.String(sortKey.Name), AttributeType: sortKey.Type})
		params.KeySchema = append(params.KeySchema,
			types.KeySchemaElement{AttributeName: aws.String(sortKey.Name), KeyType: types.KeyTypeRange})
	}
	return params
}
