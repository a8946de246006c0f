// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package awsx

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTS struct {
	getCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.getCallerIdentityFunc == nil {
		panic("fakeSTS: unexpected GetCallerIdentity call")
	}
	return f.getCallerIdentityFunc(ctx, params, optFns...)
}

func TestLoadSetsRegion(t *testing.T) {
	cfg, err := Load(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
}

func TestCheckIdentity(t *testing.T) {
	api := &fakeSTS{
		getCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{
				Account: aws.String("123456789012"),
				Arn:     aws.String("arn:aws:iam::123456789012:user/ci"),
				UserId:  aws.String("AIDAEXAMPLE"),
			}, nil
		},
	}

	id, err := CheckIdentity(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id.Account)
	assert.Equal(t, "arn:aws:iam::123456789012:user/ci", id.ARN)
	assert.Equal(t, "AIDAEXAMPLE", id.UserID)
}

func TestCheckIdentityError(t *testing.T) {
	boom := errors.New("ExpiredToken")
	api := &fakeSTS{
		getCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return nil, boom
		},
	}

	_, err := CheckIdentity(context.Background(), api)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "aws credential check failed")
}
