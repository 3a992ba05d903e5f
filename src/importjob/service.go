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

package importjob

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

	"github.com/yugabyte/yb-ddbio/src/errs"
	"github.com/yugabyte/yb-ddbio/src/waiter"
)

const (
	DEFAULT_PAGE_SIZE    = 25
	DEFAULT_MAX_RESULTS  = 1000
	DESCRIBE_CONCURRENCY = 4
)

// API is the part of *dynamodb.Client used for imports.
type API interface {
	ImportTable(ctx context.Context, params *dynamodb.ImportTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ImportTableOutput, error)
	DescribeImport(ctx context.Context, params *dynamodb.DescribeImportInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeImportOutput, error)
	ListImports(ctx context.Context, params *dynamodb.ListImportsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListImportsOutput, error)
}

type StartParams struct {
	S3Bucket                string
	S3KeyPrefix             string
	S3BucketOwner           string
	InputFormat             InputFormat
	InputFormatOptions      *types.InputFormatOptions
	InputCompressionType    CompressionType // defaults to GZIP
	TableCreationParameters *types.TableCreationParameters
	ClientToken             string // defaults to a random UUID
}

func (p *StartParams) input() (*dynamodb.ImportTableInput, error) {
	if p.S3Bucket == "" {
		return nil, fmt.Errorf("import needs an S3 bucket")
	}
	if p.InputFormat == "" {
		return nil, fmt.Errorf("import needs an input format")
	}
	if p.TableCreationParameters == nil {
		return nil, fmt.Errorf("import needs table creation parameters")
	}
	compression := p.InputCompressionType
	if compression == "" {
		compression = GZIP
	}
	clientToken := p.ClientToken
	if clientToken == "" {
		clientToken = uuid.New().String()
	}
	src := &types.S3BucketSource{S3Bucket: aws.String(p.S3Bucket)}
	if p.S3KeyPrefix != "" {
		src.S3KeyPrefix = aws.String(p.S3KeyPrefix)
	}
	if p.S3BucketOwner != "" {
		src.S3BucketOwner = aws.String(p.S3BucketOwner)
	}
	return &dynamodb.ImportTableInput{
		S3BucketSource:          src,
		InputFormat:             types.InputFormat(p.InputFormat),
		InputFormatOptions:      p.InputFormatOptions,
		InputCompressionType:    types.InputCompressionType(compression),
		TableCreationParameters: p.TableCreationParameters,
		ClientToken:             aws.String(clientToken),
	}, nil
}

// Start requests a bulk import into a new table.
func Start(ctx context.Context, api API, params StartParams) (*Job, error) {
	in, err := params.input()
	if err != nil {
		return nil, err
	}
	out, err := api.ImportTable(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("import table from s3://%s/%s: %w", params.S3Bucket, params.S3KeyPrefix, err)
	}
	job := FromDescription(out.ImportTableDescription)
	log.Infof("started import %s into table %s from %s", job.Arn, job.TableName(), job.S3URISource())
	return job, nil
}

// Describe fetches the current state of an import. An unknown ARN yields an
// error matching errs.ErrJobNotFound.
func Describe(ctx context.Context, api API, arn string) (*Job, error) {
	out, err := api.DescribeImport(ctx, &dynamodb.DescribeImportInput{ImportArn: aws.String(arn)})
	if err != nil {
		var nf *types.ImportNotFoundException
		if errors.As(err, &nf) {
			return nil, errs.NewJobNotFoundError(errs.IMPORT_JOB, arn, err)
		}
		return nil, fmt.Errorf("describe import %s: %w", arn, err)
	}
	return FromDescription(out.ImportTableDescription), nil
}

func (j *Job) Refresh(ctx context.Context, api API) (*Job, error) {
	return Describe(ctx, api, j.Arn)
}

type ListParams struct {
	TableArn   string
	PageSize   int
	MaxResults int
	Details    bool
}

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
		in := &dynamodb.ListImportsInput{
			PageSize:  aws.Int32(int32(pageSize)),
			NextToken: nextToken,
		}
		if params.TableArn != "" {
			in.TableArn = aws.String(params.TableArn)
		}
		out, err := api.ListImports(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("list imports of %q: %w", params.TableArn, err)
		}
		summaries := out.ImportSummaryList
		if len(jobs)+len(summaries) > maxResults {
			summaries = summaries[:maxResults-len(jobs)]
		}
		page, err := describeSummaries(ctx, api, summaries, params.Details)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, page...)
		if len(jobs) >= maxResults || aws.ToString(out.NextToken) == "" {
			return jobs, nil
		}
		nextToken = out.NextToken
	}
}

func describeSummaries(ctx context.Context, api API, summaries []types.ImportSummary, details bool) ([]*Job, error) {
	if !details {
		return lo.Map(summaries, func(s types.ImportSummary, _ int) *Job { return fromSummary(s) }), nil
	}
	mapper := iter.Mapper[types.ImportSummary, *Job]{MaxGoroutines: DESCRIBE_CONCURRENCY}
	return mapper.MapErr(summaries, func(s *types.ImportSummary) (*Job, error) {
		return Describe(ctx, api, aws.ToString(s.ImportArn))
	})
}

func wait(ctx context.Context, api API, arn string, w *waiter.Waiter, done func(*Job) bool) (*Job, error) {
	if w == nil {
		w = waiter.New("import "+arn, 0, 0)
	}
	var job *Job
	err := w.Wait(ctx, func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
		var err error
		job, err = Describe(ctx, api, arn)
		if err != nil {
			return false, err
		}
		return done(job), nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// WaitUntilTerminal polls DescribeImport until the import is COMPLETED,
// CANCELLED or FAILED.
func WaitUntilTerminal(ctx context.Context, api API, arn string, w *waiter.Waiter) (*Job, error) {
	return wait(ctx, api, arn, w, (*Job).IsTerminal)
}

// WaitUntilComplete returns once the import is COMPLETED. CANCELLING,
// CANCELLED and FAILED end the wait with *errs.JobFailedError and the
// snapshot that caused it.
func WaitUntilComplete(ctx context.Context, api API, arn string, w *waiter.Waiter) (*Job, error) {
	job, err := wait(ctx, api, arn, w, func(j *Job) bool {
		return j.IsTerminal() || j.IsCancelling()
	})
	if err != nil {
		return nil, err
	}
	if !job.IsCompleted() {
		return job, &errs.JobFailedError{
			Kind:           errs.IMPORT_JOB,
			Arn:            job.Arn,
			Status:         string(job.Status),
			FailureCode:    job.FailureCode,
			FailureMessage: job.FailureMessage,
		}
	}
	return job, nil
}
