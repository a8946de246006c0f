// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package layer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// fakeLambda implements LambdaAPI with function fields so each test wires
// only the calls it expects. An unexpected call panics.
type fakeLambda struct {
	publishFunc       func(ctx context.Context, in *lambda.PublishLayerVersionInput) (*lambda.PublishLayerVersionOutput, error)
	listVersionsFunc  func(ctx context.Context, in *lambda.ListLayerVersionsInput) (*lambda.ListLayerVersionsOutput, error)
	listLayersFunc    func(ctx context.Context, in *lambda.ListLayersInput) (*lambda.ListLayersOutput, error)
	deleteVersionFunc func(ctx context.Context, in *lambda.DeleteLayerVersionInput) (*lambda.DeleteLayerVersionOutput, error)
	getPolicyFunc     func(ctx context.Context, in *lambda.GetLayerVersionPolicyInput) (*lambda.GetLayerVersionPolicyOutput, error)
	addPermFunc       func(ctx context.Context, in *lambda.AddLayerVersionPermissionInput) (*lambda.AddLayerVersionPermissionOutput, error)
}

func (f *fakeLambda) PublishLayerVersion(ctx context.Context, in *lambda.PublishLayerVersionInput, _ ...func(*lambda.Options)) (*lambda.PublishLayerVersionOutput, error) {
	if f.publishFunc == nil {
		panic("fakeLambda: unexpected PublishLayerVersion call")
	}
	return f.publishFunc(ctx, in)
}

func (f *fakeLambda) ListLayerVersions(ctx context.Context, in *lambda.ListLayerVersionsInput, _ ...func(*lambda.Options)) (*lambda.ListLayerVersionsOutput, error) {
	if f.listVersionsFunc == nil {
		panic("fakeLambda: unexpected ListLayerVersions call")
	}
	return f.listVersionsFunc(ctx, in)
}

func (f *fakeLambda) ListLayers(ctx context.Context, in *lambda.ListLayersInput, _ ...func(*lambda.Options)) (*lambda.ListLayersOutput, error) {
	if f.listLayersFunc == nil {
		panic("fakeLambda: unexpected ListLayers call")
	}
	return f.listLayersFunc(ctx, in)
}

func (f *fakeLambda) DeleteLayerVersion(ctx context.Context, in *lambda.DeleteLayerVersionInput, _ ...func(*lambda.Options)) (*lambda.DeleteLayerVersionOutput, error) {
	if f.deleteVersionFunc == nil {
		panic("fakeLambda: unexpected DeleteLayerVersion call")
	}
	return f.deleteVersionFunc(ctx, in)
}

func (f *fakeLambda) GetLayerVersionPolicy(ctx context.Context, in *lambda.GetLayerVersionPolicyInput, _ ...func(*lambda.Options)) (*lambda.GetLayerVersionPolicyOutput, error) {
	if f.getPolicyFunc == nil {
		panic("fakeLambda: unexpected GetLayerVersionPolicy call")
	}
	return f.getPolicyFunc(ctx, in)
}

func (f *fakeLambda) AddLayerVersionPermission(ctx context.Context, in *lambda.AddLayerVersionPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddLayerVersionPermissionOutput, error) {
	if f.addPermFunc == nil {
		panic("fakeLambda: unexpected AddLayerVersionPermission call")
	}
	return f.addPermFunc(ctx, in)
}

func writeArtifact(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collector-amd64-default.zip")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestPublish(t *testing.T) {
	zipBytes := []byte("zip-content")
	zipPath := writeArtifact(t, zipBytes)

	var captured *lambda.PublishLayerVersionInput
	fake := &fakeLambda{
		publishFunc: func(_ context.Context, in *lambda.PublishLayerVersionInput) (*lambda.PublishLayerVersionOutput, error) {
			captured = in
			return &lambda.PublishLayerVersionOutput{
				LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:layer:opentelemetry-collector-amd64-0_119_0-prod:3"),
			}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	result, err := c.Publish(context.Background(), PublishInput{
		Name:         "opentelemetry-collector-amd64-0_119_0-prod",
		ZipPath:      zipPath,
		BuildTags:    "lambdacomponents.custom",
		MD5:          "d41d8cd98f00b204e9800998ecf8427e",
		Architecture: "amd64",
		Runtimes:     "nodejs18.x nodejs20.x",
	})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:lambda:us-east-1:123456789012:layer:opentelemetry-collector-amd64-0_119_0-prod:3", result.ARN)
	assert.Equal(t, int64(3), result.Version)

	require.NotNil(t, captured)
	assert.Equal(t, "opentelemetry-collector-amd64-0_119_0-prod", aws.ToString(captured.LayerName))
	assert.Equal(t, "Build Tags: lambdacomponents.custom | MD5: d41d8cd98f00b204e9800998ecf8427e", aws.ToString(captured.Description))
	assert.Equal(t, zipBytes, captured.Content.ZipFile)
	assert.Equal(t, []types.Architecture{types.Architecture("x86_64")}, captured.CompatibleArchitectures)
	assert.Equal(t, []types.Runtime{types.Runtime("nodejs18.x"), types.Runtime("nodejs20.x")}, captured.CompatibleRuntimes)
	assert.Equal(t, "Apache 2.0", aws.ToString(captured.LicenseInfo))
}

func TestPublishNoRuntimes(t *testing.T) {
	zipPath := writeArtifact(t, []byte("zip-content"))

	fake := &fakeLambda{
		publishFunc: func(_ context.Context, in *lambda.PublishLayerVersionInput) (*lambda.PublishLayerVersionOutput, error) {
			assert.Empty(t, in.CompatibleRuntimes)
			return &lambda.PublishLayerVersionOutput{
				LayerVersionArn: aws.String("arn:aws:lambda:eu-west-1:123456789012:layer:test:1"),
			}, nil
		},
	}
	c := NewFromAPI(fake, "eu-west-1")

	result, err := c.Publish(context.Background(), PublishInput{
		Name:         "test",
		ZipPath:      zipPath,
		MD5:          "abc",
		Architecture: "arm64",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Version)
}

func TestPublishMissingArtifact(t *testing.T) {
	c := NewFromAPI(&fakeLambda{}, "us-east-1")

	_, err := c.Publish(context.Background(), PublishInput{
		Name:    "test",
		ZipPath: filepath.Join(t.TempDir(), "nope.zip"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading artifact")
}

func TestPublishAPIError(t *testing.T) {
	zipPath := writeArtifact(t, []byte("zip-content"))

	fake := &fakeLambda{
		publishFunc: func(_ context.Context, _ *lambda.PublishLayerVersionInput) (*lambda.PublishLayerVersionOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	_, err := c.Publish(context.Background(), PublishInput{Name: "test", ZipPath: zipPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "us-east-1")
	assert.Contains(t, err.Error(), "throttled")
}

func TestFindByMD5(t *testing.T) {
	calls := 0
	fake := &fakeLambda{
		listVersionsFunc: func(_ context.Context, in *lambda.ListLayerVersionsInput) (*lambda.ListLayerVersionsOutput, error) {
			calls++
			assert.Equal(t, "my-layer", aws.ToString(in.LayerName))
			if calls == 1 {
				assert.Nil(t, in.Marker)
				return &lambda.ListLayerVersionsOutput{
					LayerVersions: []types.LayerVersionsListItem{
						{
							LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:1:layer:my-layer:4"),
							Description:     aws.String("Build Tags: N/A | MD5: other-hash"),
						},
					},
					NextMarker: aws.String("page-2"),
				}, nil
			}
			assert.Equal(t, "page-2", aws.ToString(in.Marker))
			return &lambda.ListLayerVersionsOutput{
				LayerVersions: []types.LayerVersionsListItem{
					{
						LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:1:layer:my-layer:2"),
						Description:     aws.String("Build Tags: N/A | MD5: wanted-hash"),
					},
				},
			}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	arn, err := c.FindByMD5(context.Background(), "my-layer", "wanted-hash")
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:lambda:us-east-1:1:layer:my-layer:2", arn)
	assert.Equal(t, 2, calls)
}

func TestFindByMD5NoMatch(t *testing.T) {
	fake := &fakeLambda{
		listVersionsFunc: func(_ context.Context, _ *lambda.ListLayerVersionsInput) (*lambda.ListLayerVersionsOutput, error) {
			return &lambda.ListLayerVersionsOutput{
				LayerVersions: []types.LayerVersionsListItem{
					{
						LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:1:layer:my-layer:1"),
						Description:     aws.String("Build Tags: N/A | MD5: other-hash"),
					},
				},
			}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	arn, err := c.FindByMD5(context.Background(), "my-layer", "wanted-hash")
	require.NoError(t, err)
	assert.Empty(t, arn)
}

func TestFindByMD5LayerMissing(t *testing.T) {
	// A layer that has never been published is a skip signal, not an error.
	fake := &fakeLambda{
		listVersionsFunc: func(_ context.Context, _ *lambda.ListLayerVersionsInput) (*lambda.ListLayerVersionsOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("layer not found")}
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	arn, err := c.FindByMD5(context.Background(), "my-layer", "wanted-hash")
	require.NoError(t, err)
	assert.Empty(t, arn)
}

func TestMakePublicAlreadyPublic(t *testing.T) {
	fake := &fakeLambda{
		getPolicyFunc: func(_ context.Context, in *lambda.GetLayerVersionPolicyInput) (*lambda.GetLayerVersionPolicyOutput, error) {
			assert.Equal(t, "my-layer", aws.ToString(in.LayerName))
			assert.Equal(t, int64(3), aws.ToInt64(in.VersionNumber))
			return &lambda.GetLayerVersionPolicyOutput{Policy: aws.String("{}")}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	already, err := c.MakePublic(context.Background(), "my-layer", 3)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestMakePublicGrantsPermission(t *testing.T) {
	var captured *lambda.AddLayerVersionPermissionInput
	fake := &fakeLambda{
		getPolicyFunc: func(_ context.Context, _ *lambda.GetLayerVersionPolicyInput) (*lambda.GetLayerVersionPolicyOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("no policy")}
		},
		addPermFunc: func(_ context.Context, in *lambda.AddLayerVersionPermissionInput) (*lambda.AddLayerVersionPermissionOutput, error) {
			captured = in
			return &lambda.AddLayerVersionPermissionOutput{}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	already, err := c.MakePublic(context.Background(), "my-layer", 3)
	require.NoError(t, err)
	assert.False(t, already)

	require.NotNil(t, captured)
	assert.Equal(t, "my-layer", aws.ToString(captured.LayerName))
	assert.Equal(t, int64(3), aws.ToInt64(captured.VersionNumber))
	assert.Equal(t, "publish", aws.ToString(captured.StatementId))
	assert.Equal(t, "lambda:GetLayerVersion", aws.ToString(captured.Action))
	assert.Equal(t, "*", aws.ToString(captured.Principal))
}

func TestMakePublicPolicyError(t *testing.T) {
	fake := &fakeLambda{
		getPolicyFunc: func(_ context.Context, _ *lambda.GetLayerVersionPolicyInput) (*lambda.GetLayerVersionPolicyOutput, error) {
			return nil, errors.New("access denied")
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	_, err := c.MakePublic(context.Background(), "my-layer", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestListLayers(t *testing.T) {
	fake := &fakeLambda{
		listLayersFunc: func(_ context.Context, _ *lambda.ListLayersInput) (*lambda.ListLayersOutput, error) {
			return &lambda.ListLayersOutput{
				Layers: []types.LayersListItem{
					{
						LayerName: aws.String("opentelemetry-collector-amd64-0_119_0-prod"),
						LatestMatchingVersion: &types.LayerVersionsListItem{
							LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:1:layer:opentelemetry-collector-amd64-0_119_0-prod:5"),
						},
					},
					{
						LayerName: aws.String("unrelated-layer"),
						LatestMatchingVersion: &types.LayerVersionsListItem{
							LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:1:layer:unrelated-layer:1"),
						},
					},
				},
			}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	layers, err := c.ListLayers(context.Background(), "opentelemetry-collector-*")
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "opentelemetry-collector-amd64-0_119_0-prod", layers[0].Name)
	assert.Equal(t, "arn:aws:lambda:us-east-1:1:layer:opentelemetry-collector-amd64-0_119_0-prod:5", layers[0].LatestARN)
	assert.Equal(t, int64(5), layers[0].LatestVersion)
}

func TestListLayersEmptyPatternMatchesAll(t *testing.T) {
	fake := &fakeLambda{
		listLayersFunc: func(_ context.Context, _ *lambda.ListLayersInput) (*lambda.ListLayersOutput, error) {
			return &lambda.ListLayersOutput{
				Layers: []types.LayersListItem{
					{LayerName: aws.String("a")},
					{LayerName: aws.String("b")},
				},
			}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	layers, err := c.ListLayers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, layers, 2)
}

func TestListLayersBadPattern(t *testing.T) {
	c := NewFromAPI(&fakeLambda{}, "us-east-1")

	_, err := c.ListLayers(context.Background(), "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern")
}

func TestDeleteVersions(t *testing.T) {
	var deleted []int64
	fake := &fakeLambda{
		listVersionsFunc: func(_ context.Context, _ *lambda.ListLayerVersionsInput) (*lambda.ListLayerVersionsOutput, error) {
			return &lambda.ListLayerVersionsOutput{
				LayerVersions: []types.LayerVersionsListItem{
					{LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:1:layer:my-layer:2")},
					{LayerVersionArn: aws.String("arn:aws:lambda:us-east-1:1:layer:my-layer:1")},
				},
			}, nil
		},
		deleteVersionFunc: func(_ context.Context, in *lambda.DeleteLayerVersionInput) (*lambda.DeleteLayerVersionOutput, error) {
			assert.Equal(t, "my-layer", aws.ToString(in.LayerName))
			deleted = append(deleted, aws.ToInt64(in.VersionNumber))
			return &lambda.DeleteLayerVersionOutput{}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	n, err := c.DeleteVersions(context.Background(), "my-layer")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{2, 1}, deleted)
}

func TestDeleteVersionsLayerMissing(t *testing.T) {
	fake := &fakeLambda{
		listVersionsFunc: func(_ context.Context, _ *lambda.ListLayerVersionsInput) (*lambda.ListLayerVersionsOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("layer not found")}
		},
	}
	c := NewFromAPI(fake, "us-east-1")

	n, err := c.DeleteVersions(context.Background(), "my-layer")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClientRegion(t *testing.T) {
	c := NewFromAPI(&fakeLambda{}, "eu-central-1")
	assert.Equal(t, "eu-central-1", c.Region())
}

func TestClientWithLimiter(t *testing.T) {
	fake := &fakeLambda{
		listLayersFunc: func(_ context.Context, _ *lambda.ListLayersInput) (*lambda.ListLayersOutput, error) {
			return &lambda.ListLayersOutput{}, nil
		},
	}
	c := NewFromAPI(fake, "us-east-1", WithLimiter(rate.NewLimiter(rate.Inf, 1)))

	_, err := c.ListLayers(context.Background(), "*")
	require.NoError(t, err)
}
