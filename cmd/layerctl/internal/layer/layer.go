// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package layer publishes collector layer artifacts to AWS Lambda.

A Client wraps the Lambda API for one region. Multi-region operations build
one Client per region and fan out with ForEachRegion; a shared rate.Limiter
can be attached so cross-region scans stay under the Lambda control-plane
request limits.

Publishing is idempotent: the artifact MD5 is embedded in the layer version
Description, and FindByMD5 locates an existing identical version so a
re-publish can be skipped.
*/
package layer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"golang.org/x/time/rate"
)

// LambdaAPI is the subset of the Lambda control plane the publisher uses.
// *lambda.Client satisfies it; tests substitute a recorded fake.
type LambdaAPI interface {
	PublishLayerVersion(ctx context.Context, params *lambda.PublishLayerVersionInput, optFns ...func(*lambda.Options)) (*lambda.PublishLayerVersionOutput, error)
	ListLayerVersions(ctx context.Context, params *lambda.ListLayerVersionsInput, optFns ...func(*lambda.Options)) (*lambda.ListLayerVersionsOutput, error)
	ListLayers(ctx context.Context, params *lambda.ListLayersInput, optFns ...func(*lambda.Options)) (*lambda.ListLayersOutput, error)
	DeleteLayerVersion(ctx context.Context, params *lambda.DeleteLayerVersionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteLayerVersionOutput, error)
	GetLayerVersionPolicy(ctx context.Context, params *lambda.GetLayerVersionPolicyInput, optFns ...func(*lambda.Options)) (*lambda.GetLayerVersionPolicyOutput, error)
	AddLayerVersionPermission(ctx context.Context, params *lambda.AddLayerVersionPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddLayerVersionPermissionOutput, error)
}

// Client publishes and manages layers in one region.
type Client struct {
	api     LambdaAPI
	region  string
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithLimiter attaches a rate limiter consulted before every API call.
// Share one limiter across the per-region clients of a fan-out.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New builds a Client for a region on top of a loaded AWS config.
func New(cfg aws.Config, region string, opts ...Option) *Client {
	api := lambda.NewFromConfig(cfg, func(o *lambda.Options) {
		o.Region = region
	})
	return NewFromAPI(api, region, opts...)
}

// NewFromAPI builds a Client around an existing API implementation.
func NewFromAPI(api LambdaAPI, region string, opts ...Option) *Client {
	c := &Client{api: api, region: region}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Region returns the region this client operates in.
func (c *Client) Region() string {
	return c.region
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// PublishInput carries everything needed to publish one layer version.
type PublishInput struct {
	// Name is the full layer name from ConstructName.
	Name string

	// ZipPath is the artifact on disk.
	ZipPath string

	// BuildTags is the space-joined tag list for the Description, may be "".
	BuildTags string

	// MD5 is the artifact hash embedded in the Description.
	MD5 string

	// Architecture is the Go architecture (amd64, arm64).
	Architecture string

	// Runtimes is the space-separated compatible runtimes list, may be "".
	Runtimes string
}

// PublishResult identifies the version that was created.
type PublishResult struct {
	ARN     string
	Version int64
}

// Publish uploads the artifact as a new layer version.
func (c *Client) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	zipBytes, err := os.ReadFile(in.ZipPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", in.ZipPath, err)
	}

	input := &lambda.PublishLayerVersionInput{
		LayerName:   aws.String(in.Name),
		Description: aws.String(BuildDescription(in.BuildTags, in.MD5)),
		Content: &types.LayerVersionContentInput{
			ZipFile: zipBytes,
		},
		CompatibleArchitectures: []types.Architecture{
			types.Architecture(CompatibleArchitecture(in.Architecture)),
		},
		LicenseInfo: aws.String("Apache 2.0"),
	}
	if runtimes := SplitRuntimes(in.Runtimes); len(runtimes) > 0 {
		compat := make([]types.Runtime, 0, len(runtimes))
		for _, r := range runtimes {
			compat = append(compat, types.Runtime(r))
		}
		input.CompatibleRuntimes = compat
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.api.PublishLayerVersion(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("publishing layer %s in %s: %w", in.Name, c.region, err)
	}

	arn := aws.ToString(out.LayerVersionArn)
	version, err := VersionFromARN(arn)
	if err != nil {
		return nil, err
	}
	return &PublishResult{ARN: arn, Version: version}, nil
}

// FindByMD5 returns the ARN of an existing version of the named layer whose
// Description carries the given artifact MD5, or "" when there is none. A
// layer that does not exist at all is not an error.
func (c *Client) FindByMD5(ctx context.Context, name, md5 string) (string, error) {
	marker := "MD5: " + md5

	p := lambda.NewListLayerVersionsPaginator(c.api, &lambda.ListLayerVersionsInput{
		LayerName: aws.String(name),
	})
	for p.HasMorePages() {
		if err := c.wait(ctx); err != nil {
			return "", err
		}
		page, err := p.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return "", nil
			}
			return "", fmt.Errorf("listing versions of %s in %s: %w", name, c.region, err)
		}
		for _, v := range page.LayerVersions {
			if strings.Contains(aws.ToString(v.Description), marker) {
				return aws.ToString(v.LayerVersionArn), nil
			}
		}
	}
	return "", nil
}

// MakePublic grants lambda:GetLayerVersion to everyone on one version.
// Returns true when a policy already existed and nothing was changed.
func (c *Client) MakePublic(ctx context.Context, name string, version int64) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	_, err := c.api.GetLayerVersionPolicy(ctx, &lambda.GetLayerVersionPolicyInput{
		LayerName:     aws.String(name),
		VersionNumber: aws.Int64(version),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("checking policy of %s:%d in %s: %w", name, version, c.region, err)
	}

	if err := c.wait(ctx); err != nil {
		return false, err
	}
	_, err = c.api.AddLayerVersionPermission(ctx, &lambda.AddLayerVersionPermissionInput{
		LayerName:     aws.String(name),
		VersionNumber: aws.Int64(version),
		StatementId:   aws.String("publish"),
		Action:        aws.String("lambda:GetLayerVersion"),
		Principal:     aws.String("*"),
	})
	if err != nil {
		return false, fmt.Errorf("making %s:%d public in %s: %w", name, version, c.region, err)
	}
	return false, nil
}

// Summary describes one layer found by ListLayers.
type Summary struct {
	Name          string
	LatestARN     string
	LatestVersion int64
}

// ListLayers returns the layers in this region whose names match the glob
// pattern. An empty pattern matches everything.
func (c *Client) ListLayers(ctx context.Context, pattern string) ([]Summary, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("layer name pattern %q: %w", pattern, err)
	}

	var layers []Summary
	p := lambda.NewListLayersPaginator(c.api, &lambda.ListLayersInput{})
	for p.HasMorePages() {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing layers in %s: %w", c.region, err)
		}
		for _, l := range page.Layers {
			name := aws.ToString(l.LayerName)
			if ok, _ := path.Match(pattern, name); !ok {
				continue
			}
			s := Summary{Name: name}
			if l.LatestMatchingVersion != nil {
				s.LatestARN = aws.ToString(l.LatestMatchingVersion.LayerVersionArn)
				if v, err := VersionFromARN(s.LatestARN); err == nil {
					s.LatestVersion = v
				}
			}
			layers = append(layers, s)
		}
	}
	return layers, nil
}

// DeleteVersions deletes every version of the named layer and returns how
// many were removed. A layer with no versions left disappears from Lambda.
func (c *Client) DeleteVersions(ctx context.Context, name string) (int, error) {
	// Collect first so deletion does not race the pagination markers.
	var versions []int64
	p := lambda.NewListLayerVersionsPaginator(c.api, &lambda.ListLayerVersionsInput{
		LayerName: aws.String(name),
	})
	for p.HasMorePages() {
		if err := c.wait(ctx); err != nil {
			return 0, err
		}
		page, err := p.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return 0, nil
			}
			return 0, fmt.Errorf("listing versions of %s in %s: %w", name, c.region, err)
		}
		for _, v := range page.LayerVersions {
			version, err := VersionFromARN(aws.ToString(v.LayerVersionArn))
			if err != nil {
				return 0, err
			}
			versions = append(versions, version)
		}
	}

	deleted := 0
	for _, version := range versions {
		if err := c.wait(ctx); err != nil {
			return deleted, err
		}
		_, err := c.api.DeleteLayerVersion(ctx, &lambda.DeleteLayerVersionInput{
			LayerName:     aws.String(name),
			VersionNumber: aws.Int64(version),
		})
		if err != nil {
			return deleted, fmt.Errorf("deleting %s:%d in %s: %w", name, version, c.region, err)
		}
		deleted++
	}
	return deleted, nil
}
