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

package exportjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"

	"github.com/yugabyte/yb-ddbio/src/datafile"
	"github.com/yugabyte/yb-ddbio/src/errs"
)

const (
	DEFAULT_PAGE_SIZE    = 25
	DEFAULT_MAX_RESULTS  = 1000
	// DescribeExport calls in flight when listing with details
	DESCRIBE_CONCURRENCY = 4
)

// API is the part of *dynamodb.Client used for exports.
type API interface {
	ExportTableToPointInTime(ctx context.Context, params *dynamodb.ExportTableToPointInTimeInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ExportTableToPointInTimeOutput, error)
	DescribeExport(ctx context.Context, params *dynamodb.DescribeExportInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeExportOutput, error)
	ListExports(ctx context.Context, params *dynamodb.ListExportsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListExportsOutput, error)
}

type StartParams struct {
	TableArn       string
	S3Bucket       string
	S3Prefix       string
	ExportTime     time.Time // zero exports the current state
	S3BucketOwner  string
	S3SseAlgorithm string
	S3SseKmsKeyId  string
	Format         datafile.Format // defaults to DYNAMODB_JSON
	ClientToken    string          // defaults to a random UUID
}

func (p *StartParams) input() *dynamodb.ExportTableToPointInTimeInput {
	format := p.Format
	if format == "" {
		format = datafile.DYNAMODB_JSON
	}
	clientToken := p.ClientToken
	if clientToken == "" {
		clientToken = uuid.New().String()
	}
	in := &dynamodb.ExportTableToPointInTimeInput{
		TableArn:     aws.String(p.TableArn),
		S3Bucket:     aws.String(p.S3Bucket),
		ExportFormat: types.ExportFormat(format),
		ClientToken:  aws.String(clientToken),
	}
	if p.S3Prefix != "" {
		in.S3Prefix = aws.String(p.S3Prefix)
	}
	if !p.ExportTime.IsZero() {
		in.ExportTime = aws.Time(p.ExportTime)
	}
	if p.S3BucketOwner != "" {
		in.S3BucketOwner = aws.String(p.S3BucketOwner)
	}
	if p.S3SseAlgorithm != "" {
		in.S3SseAlgorithm = types.S3SseAlgorithm(p.S3SseAlgorithm)
	}
	if p.S3SseKmsKeyId != "" {
		in.S3SseKmsKeyId = aws.String(p.S3SseKmsKeyId)
	}
	return in
}

// Start requests a point-in-time export and returns the initial snapshot,
// normally IN_PROGRESS.
func Start(ctx context.Context, api API, params StartParams) (*Job, error) {
	out, err := api.ExportTableToPointInTime(ctx, params.input())
	if err != nil {
		return nil, fmt.Errorf("export table %s: %w", params.TableArn, err)
	}
	job := FromDescription(out.ExportDescription)
	log.Infof("started export %s of table %s to %s", job.Arn, job.TableArn, job.S3URIExport())
	return job, nil
}

// Describe fetches the current state of an export. An unknown ARN yields an
// error matching errs.ErrJobNotFound.
func Describe(ctx context.Context, api API, arn string) (*Job, error) {
	out, err := api.DescribeExport(ctx, &dynamodb.DescribeExportInput{ExportArn: aws.String(arn)})
	if err != nil {
		var nf *types.ExportNotFoundException
		if errors.As(err, &nf) {
			return nil, errs.NewJobNotFoundError(errs.EXPORT_JOB, arn, err)
		}
		return nil, fmt.Errorf("describe export %s: %w", arn, err)
	}
	return FromDescription(out.ExportDescription), nil
}

// Refresh returns a new snapshot of the same export.
func (j *Job) Refresh(ctx context.Context, api API) (*Job, error) {
	return Describe(ctx, api, j.Arn)
}

type ListParams struct {
	TableArn   string // empty lists exports of every table
	PageSize   int    // defaults to DEFAULT_PAGE_SIZE
	MaxResults int    // defaults to DEFAULT_MAX_RESULTS
	// Details describes every listed export. Without it the jobs only
	// carry Arn and Status.
	Details bool
}

// List pages through ListExports until MaxResults jobs are collected or the
// service has no more pages.
func List(ctx context.Context, api API, params ListParams) ([]*Job, error) {
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = DEFAULT_PAGE_SIZE
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = DEFAULT_MAX_RESULTS
	}

	var jobs []*Job
	var nextToken *string
	for {
		in := &dynamodb.ListExportsInput{
			MaxResults: aws.Int32(int32(pageSize)),
			NextToken:  nextToken,
		}
		if params.TableArn != "" {
			in.TableArn = aws.String(params.TableArn)
		}
		out, err := api.ListExports(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("list exports of %q: %w", params.TableArn, err)
		}
		summaries := out.ExportSummaries
		if len(jobs)+len(summaries) > maxResults {
			summaries = summaries[:maxResults-len(jobs)]
		}
		page, err := describeSummaries(ctx, api, summaries, params.Details)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, page...)
		if len(jobs) >= maxResults || out.NextToken == nil || *out.NextToken == "" {
			return jobs, nil
		}
		nextToken = out.NextToken
	}
}

// describeSummaries keeps the listing order. With details, up to
// DESCRIBE_CONCURRENCY exports are described at once.
func describeSummaries(ctx context.Context, api API, summaries []types.ExportSummary, details bool) ([]*Job, error) {
	if !details {
		return lo.Map(summaries, func(s types.ExportSummary, _ int) *Job { return fromSummary(s) }), nil
	}
	mapper := iter.Mapper[types.ExportSummary, *Job]{MaxGoroutines: DESCRIBE_CONCURRENCY}
	return mapper.MapErr(summaries, func(s *types.ExportSummary) (*Job, error) {
		return Describe(ctx, api, aws.ToString(s.ExportArn))
	})
}

// withDetails returns j itself when it already carries the S3 location,
// and a described snapshot otherwise.
func (j *Job) withDetails(ctx context.Context, api API) (*Job, error) {
	if j.hasDetails() {
		return j, nil
	}
	if api == nil {
		return nil, fmt.Errorf("export %s has no S3 location and no DynamoDB client to describe it", j.Arn)
	}
	return j.Refresh(ctx, api)
}
