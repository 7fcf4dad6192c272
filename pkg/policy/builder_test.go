// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	doc := NewBuilder().Build("data-bucket", []string{"222222222222", "333333333333"})

	require.Len(t, doc.Statements, 1)
	stmt := doc.Statements[0]
	assert.Equal(t, "ExternalKeyGranteeRead", stmt.Sid)
	assert.Equal(t, EffectAllow, stmt.Effect)
	assert.Equal(t, StringOrSlice{
		"arn:aws:iam::222222222222:root",
		"arn:aws:iam::333333333333:root",
	}, stmt.Principal.AWS)
	assert.Equal(t, StringOrSlice{"s3:GetObject", "s3:ListBucket"}, stmt.Action)
	assert.Equal(t, StringOrSlice{
		"arn:aws:s3:::data-bucket",
		"arn:aws:s3:::data-bucket/*",
	}, stmt.Resource)
}

func TestBuilder_Build_EmptyGrantees(t *testing.T) {
	t.Parallel()

	doc := NewBuilder().Build("data-bucket", nil)
	assert.Equal(t, Version, doc.Version)
	assert.Empty(t, doc.Statements)

	doc = NewBuilder().Build("data-bucket", []string{"", ""})
	assert.Empty(t, doc.Statements)
}

func TestBuilder_Build_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewBuilder().Build("b", []string{"333333333333", "222222222222", "333333333333"})
	b := NewBuilder().Build("b", []string{"222222222222", "333333333333"})

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("documents differ (-first +second):\n%s", diff)
	}

	aJSON, err := a.JSON()
	require.NoError(t, err)
	bJSON, err := b.JSON()
	require.NoError(t, err)
	assert.Equal(t, aJSON, bJSON)
}

func TestBuilder_Build_ARNPassthrough(t *testing.T) {
	t.Parallel()

	doc := NewBuilder().Build("b", []string{
		"arn:aws:iam::222222222222:role/reporting",
		"333333333333",
	})

	require.Len(t, doc.Statements, 1)
	assert.Equal(t, StringOrSlice{
		"arn:aws:iam::222222222222:role/reporting",
		"arn:aws:iam::333333333333:root",
	}, doc.Statements[0].Principal.AWS)
}

func TestBuilder_CustomActions(t *testing.T) {
	t.Parallel()

	doc := NewBuilder("s3:GetObject").Build("b", []string{"222222222222"})

	require.Len(t, doc.Statements, 1)
	assert.Equal(t, StringOrSlice{"s3:GetObject"}, doc.Statements[0].Action)
}
