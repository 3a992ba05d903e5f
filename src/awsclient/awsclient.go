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
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// Settings selects how AWS clients are configured. Zero values fall back to
// the SDK's default credential and region chain.
type Settings struct {
	Region  string
	Profile string
	// EndpointURL overrides the service endpoint (LocalStack and friends).
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (s Settings) loadOptions() []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	if s.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKeyID,
			s.SecretAccessKey,
			s.SessionToken,
		)))
	}
	if s.EndpointURL != "" {
		endpoint := s.EndpointURL
		resolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					SigningRegion:     region,
				}, nil
			})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}
	return opts
}

func LoadConfig(ctx context.Context, s Settings) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, s.loadOptions()...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	log.Infof("loaded aws config: region=%q profile=%q endpoint=%q", cfg.Region, s.Profile, s.EndpointURL)
	return cfg, nil
}

// Clients bundles the two service clients every command needs.
type Clients struct {
	DynamoDB *dynamodb.Client
	S3       *s3.Client
}

func NewClients(ctx context.Context, s Settings) (*Clients, error) {
	cfg, err := LoadConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	return &Clients{
		DynamoDB: dynamodb.NewFromConfig(cfg),
		S3:       NewS3Client(cfg, s.EndpointURL != ""),
	}, nil
}

// NewS3Client switches to path-style addressing when a custom endpoint is
// used, since emulators don't serve virtual-hosted buckets.
func NewS3Client(cfg aws.Config, pathStyle bool) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
	})
}
