// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"reflect"
	"testing"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
)

func TestExpandRegions_ExplicitListPassesThrough(t *testing.T) {
	got := expandRegions([]string{"us-east-1", "eu-west-1"})
	want := []string{"us-east-1", "eu-west-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandRegions = %v, want %v", got, want)
	}
}

func TestExpandRegions_AllExpandsToDefaultSet(t *testing.T) {
	got := expandRegions([]string{"eu-west-1", "all"})
	want := config.DefaultRegions()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandRegions = %v, want full default set", got)
	}
}

func TestExpandRegions_EmptyFallsBackToConfig(t *testing.T) {
	saved := config.Global
	defer func() { config.Global = saved }()
	config.Global.Publish.Regions = []string{"us-west-2"}

	got := expandRegions(nil)
	want := []string{"us-west-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandRegions = %v, want configured %v", got, want)
	}
}

func TestOrNone(t *testing.T) {
	if got := orNone(""); got != "[none]" {
		t.Errorf("orNone(\"\") = %q, want [none]", got)
	}
	if got := orNone("lambdacomponents.custom"); got != "lambdacomponents.custom" {
		t.Errorf("orNone = %q, want value passed through", got)
	}
}

func TestYesNo(t *testing.T) {
	if got := yesNo(true); got != "Yes" {
		t.Errorf("yesNo(true) = %q", got)
	}
	if got := yesNo(false); got != "No" {
		t.Errorf("yesNo(false) = %q", got)
	}
}
