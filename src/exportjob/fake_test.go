//go:build unit

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
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI serves exports from memory. Each DescribeExport pops the next
// status from statuses[arn] until one is left.
type fakeAPI struct {
	mu          sync.Mutex
	exports     map[string]*types.ExportDescription
	order       []string
	statuses    map[string][]types.ExportStatus
	describes   int
	listCalls   []*dynamodb.ListExportsInput
	startInput  *dynamodb.ExportTableToPointInTimeInput
	describeErr error
}

func newFakeAPI(descs ...*types.ExportDescription) *fakeAPI {
	api := &fakeAPI{
		exports:  make(map[string]*types.ExportDescription),
		statuses: make(map[string][]types.ExportStatus),
	}
	for _, d := range descs {
		api.add(d)
	}
	return api
}

func (f *fakeAPI) add(d *types.ExportDescription) {
	arn := aws.ToString(d.ExportArn)
	f.exports[arn] = d
	f.order = append(f.order, arn)
}

func (f *fakeAPI) ExportTableToPointInTime(ctx context.Context, in *dynamodb.ExportTableToPointInTimeInput, _ ...func(*dynamodb.Options)) (*dynamodb.ExportTableToPointInTimeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startInput = in
	desc := &types.ExportDescription{
		ExportArn:    aws.String(aws.ToString(in.TableArn) + "/export/01700000000000-0000abcd"),
		ExportStatus: types.ExportStatusInProgress,
		TableArn:     in.TableArn,
		S3Bucket:     in.S3Bucket,
		S3Prefix:     in.S3Prefix,
		ExportFormat: in.ExportFormat,
		ClientToken:  in.ClientToken,
	}
	return &dynamodb.ExportTableToPointInTimeOutput{ExportDescription: desc}, nil
}

func (f *fakeAPI) DescribeExport(ctx context.Context, in *dynamodb.DescribeExportInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeExportOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describes++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	arn := aws.ToString(in.ExportArn)
	desc, ok := f.exports[arn]
	if !ok {
		return nil, &types.ExportNotFoundException{Message: aws.String("export " + arn + " not found")}
	}
	copied := *desc
	if queue := f.statuses[arn]; len(queue) > 0 {
		copied.ExportStatus = queue[0]
		if len(queue) > 1 {
			f.statuses[arn] = queue[1:]
		}
	}
	return &dynamodb.DescribeExportOutput{ExportDescription: &copied}, nil
}

func (f *fakeAPI) ListExports(ctx context.Context, in *dynamodb.ListExportsInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListExportsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, in)
	start := 0
	if in.NextToken != nil {
		start, _ = strconv.Atoi(*in.NextToken)
	}
	end := min(start+int(aws.ToInt32(in.MaxResults)), len(f.order))
	out := &dynamodb.ListExportsOutput{}
	for _, arn := range f.order[start:end] {
		d := f.exports[arn]
		out.ExportSummaries = append(out.ExportSummaries, types.ExportSummary{
			ExportArn:    d.ExportArn,
			ExportStatus: d.ExportStatus,
		})
	}
	if end < len(f.order) {
		out.NextToken = aws.String(fmt.Sprint(end))
	}
	return out, nil
}
