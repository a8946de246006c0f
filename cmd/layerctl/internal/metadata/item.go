// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metadata

import (
	"sort"
	"time"
)

// Item is one published layer version as stored in DynamoDB. pk is the layer
// version ARN and sk the distribution name, so every ARN is unique in the
// table and the sk-pk-index groups rows by distribution.
//
// String attributes carry omitempty so a partially filled item never writes
// empty-string attributes, which DynamoDB GSIs reject on key columns and
// which older rows never carried.
type Item struct {
	PK                 string   `dynamodbav:"pk"`
	SK                 string   `dynamodbav:"sk"`
	LayerARN           string   `dynamodbav:"layer_arn,omitempty"`
	Region             string   `dynamodbav:"region,omitempty"`
	BaseName           string   `dynamodbav:"base_name,omitempty"`
	Architecture       string   `dynamodbav:"architecture,omitempty"`
	Distribution       string   `dynamodbav:"distribution,omitempty"`
	LayerVersion       string   `dynamodbav:"layer_version,omitempty"`
	CollectorVersion   string   `dynamodbav:"collector_version,omitempty"`
	MD5Hash            string   `dynamodbav:"md5_hash,omitempty"`
	PublishTimestamp   string   `dynamodbav:"publish_timestamp,omitempty"`
	Public             bool     `dynamodbav:"public"`
	CompatibleRuntimes []string `dynamodbav:"compatible_runtimes,stringset,omitempty"`
}

// normalize sorts set-typed attributes after a read. DynamoDB string sets
// come back in unspecified order.
func (i *Item) normalize() {
	sort.Strings(i.CompatibleRuntimes)
}

// Timestamp returns the publish_timestamp format for right now, RFC3339 UTC.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
