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
	"bytes"
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-ddbio/src/datafile"
	"github.com/yugabyte/yb-ddbio/src/ddbjson"
	"github.com/yugabyte/yb-ddbio/src/manifest"
	"github.com/yugabyte/yb-ddbio/src/utils"
	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

// Store is the object storage access needed to read an export's output.
type Store interface {
	datafile.Store
	ReadAll(ctx context.Context, uri string) ([]byte, error)
}

type Globber interface {
	Glob(ctx context.Context, prefixURI string, pattern string) ([]string, error)
}

// GetManifestSummary reads manifest-summary.json. api is only used when j
// lacks the S3 location (jobs listed without details) and may be nil
// otherwise.
func (j *Job) GetManifestSummary(ctx context.Context, api API, store Store) (*manifest.Summary, error) {
	job, err := j.withDetails(ctx, api)
	if err != nil {
		return nil, err
	}
	data, err := store.ReadAll(ctx, job.S3URIManifestSummary())
	if err != nil {
		return nil, err
	}
	return manifest.ParseSummary(data)
}

// GetDataFiles lists the data files of the export from manifest-files.json.
func (j *Job) GetDataFiles(ctx context.Context, api API, store Store) ([]datafile.DataFile, error) {
	job, err := j.withDetails(ctx, api)
	if err != nil {
		return nil, err
	}
	uri := job.S3URIManifestFiles()
	data, err := store.ReadAll(ctx, uri)
	if err != nil {
		return nil, err
	}
	files, err := manifest.ParseFiles(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	dataFiles := make([]datafile.DataFile, 0, len(files))
	for _, f := range files {
		dataFiles = append(dataFiles, datafile.FromManifest(job.S3Bucket, f))
	}
	log.Infof("export %s has %d data files", job.Arn, len(dataFiles))
	return dataFiles, nil
}

// WalkItems reads the DynamoDB JSON data files in manifest order and calls
// fn once per file.
func (j *Job) WalkItems(ctx context.Context, api API, store Store,
	fn func(df datafile.DataFile, items []ddbjson.Item) error) error {

	dataFiles, err := j.GetDataFiles(ctx, api, store)
	if err != nil {
		return err
	}
	for _, df := range dataFiles {
		items, err := df.ReadItems(ctx, store)
		if err != nil {
			return err
		}
		if err := fn(df, items); err != nil {
			return err
		}
	}
	return nil
}

// ReadItems returns every item of a DynamoDB JSON export.
func (j *Job) ReadItems(ctx context.Context, api API, store Store) ([]ddbjson.Item, error) {
	var all []ddbjson.Item
	err := j.WalkItems(ctx, api, store, func(_ datafile.DataFile, items []ddbjson.Item) error {
		all = append(all, items...)
		return nil
	})
	return all, err
}

// WalkRecords is WalkItems for records decoded into T according to the
// export's format.
func WalkRecords[T any](ctx context.Context, j *Job, api API, store Store,
	fn func(df datafile.DataFile, records []T) error) error {

	job, err := j.withDetails(ctx, api)
	if err != nil {
		return err
	}
	if job.Format == "" {
		return fmt.Errorf("export %s has no output format", job.Arn)
	}
	dataFiles, err := job.GetDataFiles(ctx, api, store)
	if err != nil {
		return err
	}
	for _, df := range dataFiles {
		records, err := datafile.ReadDataFileRecords[T](ctx, store, df, job.Format)
		if err != nil {
			return err
		}
		if err := fn(df, records); err != nil {
			return err
		}
	}
	return nil
}

func ReadRecords[T any](ctx context.Context, j *Job, api API, store Store) ([]T, error) {
	var all []T
	err := WalkRecords(ctx, j, api, store, func(_ datafile.DataFile, records []T) error {
		all = append(all, records...)
		return nil
	})
	return all, err
}

// FromS3Dir rebuilds a COMPLETED export from its directory on S3,
// i.e. s3://bucket/<prefix>AWSDynamoDB/<short-id>/, using only
// manifest-summary.json. No DynamoDB call is made.
func FromS3Dir(ctx context.Context, store Store, bucket string, dir string) (*Job, error) {
	dir = utils.WithTrailingSlash(dir)
	if _, _, err := manifest.SplitExportDir(dir); err != nil {
		return nil, err
	}
	summaryKey := dir + manifest.SUMMARY_FILE_NAME
	data, err := store.ReadAll(ctx, s3.NewS3URI(bucket, summaryKey))
	if err != nil {
		return nil, err
	}
	summary, err := manifest.ParseSummary(data)
	if err != nil {
		return nil, err
	}
	return fromManifestSummary(summary, bucket, summaryKey)
}

func fromManifestSummary(summary *manifest.Summary, bucket string, summaryKey string) (*Job, error) {
	startTime, err := summary.StartedAt()
	if err != nil {
		return nil, err
	}
	endTime, err := summary.EndedAt()
	if err != nil {
		return nil, err
	}
	exportTime, err := summary.ExportedAt()
	if err != nil {
		return nil, err
	}
	if summary.S3Bucket != "" {
		bucket = summary.S3Bucket
	}
	job := &Job{
		Arn:             summary.ExportArn,
		Status:          COMPLETED,
		Format:          datafile.Format(summary.OutputFormat),
		StartTime:       startTime,
		EndTime:         endTime,
		ExportTime:      exportTime,
		TableArn:        summary.TableArn,
		TableId:         summary.TableId,
		S3Bucket:        bucket,
		S3Prefix:        utils.WithTrailingSlash(summary.Prefix()),
		S3SseAlgorithm:  summary.S3SseAlgorithm,
		ItemCount:       summary.ItemCount,
		BilledSizeBytes: summary.BilledSizeBytes,
		ExportManifest:  summaryKey,
	}
	if summary.S3SseKmsKeyId != nil {
		job.S3SseKmsKeyId = *summary.S3SseKmsKeyId
	}
	if !strings.HasSuffix(summaryKey, job.ShortID()+"/"+manifest.SUMMARY_FILE_NAME) {
		log.Warnf("manifest %s belongs to export %s", summaryKey, job.Arn)
	}
	return job, nil
}

// FindExportDirs returns the export directories (ending with "/") found
// directly below prefixURI, e.g. every s3://bucket/prefix/AWSDynamoDB/<id>/
// for prefixURI s3://bucket/prefix/.
func FindExportDirs(ctx context.Context, store Globber, prefixURI string) ([]string, error) {
	prefixURI = utils.WithTrailingSlash(prefixURI)
	summaries, err := store.Glob(ctx, prefixURI, manifest.EXPORT_ROOT_DIR+"*/"+manifest.SUMMARY_FILE_NAME)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(summaries))
	for _, uri := range summaries {
		dirs = append(dirs, strings.TrimSuffix(uri, manifest.SUMMARY_FILE_NAME))
	}
	return dirs, nil
}
