// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package grants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractExternalGrantees(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		meta     *KeyMetadata
		expected []string
	}{
		{
			name: "owner excluded and duplicates collapsed",
			meta: &KeyMetadata{
				KeyID:         "k1",
				OwningAccount: "111111111111",
				Grantees: []string{
					"111111111111",
					"222222222222",
					"333333333333",
					"222222222222",
				},
			},
			expected: []string{"222222222222", "333333333333"},
		},
		{
			name: "no grant entries",
			meta: &KeyMetadata{
				KeyID:         "k1",
				OwningAccount: "111111111111",
			},
			expected: nil,
		},
		{
			name: "owner only",
			meta: &KeyMetadata{
				KeyID:         "k1",
				OwningAccount: "111111111111",
				Grantees:      []string{"111111111111"},
			},
			expected: nil,
		},
		{
			name: "owner via root ARN excluded",
			meta: &KeyMetadata{
				KeyID:         "k1",
				OwningAccount: "111111111111",
				Grantees: []string{
					"arn:aws:iam::111111111111:root",
					"arn:aws:iam::222222222222:root",
				},
			},
			expected: []string{"222222222222"},
		},
		{
			name: "role ARNs normalize to their account",
			meta: &KeyMetadata{
				KeyID:         "k1",
				OwningAccount: "111111111111",
				Grantees: []string{
					"arn:aws:iam::222222222222:role/reporting",
					"arn:aws:iam::222222222222:root",
				},
			},
			expected: []string{"222222222222"},
		},
		{
			name: "wildcard principals are skipped",
			meta: &KeyMetadata{
				KeyID:         "k1",
				OwningAccount: "111111111111",
				Grantees:      []string{"*", "222222222222"},
			},
			expected: []string{"222222222222"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			set := ExtractExternalGrantees(tt.meta)
			assert.ElementsMatch(t, tt.expected, set.Sorted())
			assert.False(t, set.Contains(tt.meta.OwningAccount))
		})
	}
}

func TestExtractExternalGrantees_OrderInvariant(t *testing.T) {
	t.Parallel()

	a := ExtractExternalGrantees(&KeyMetadata{
		OwningAccount: "111111111111",
		Grantees:      []string{"222222222222", "333333333333", "111111111111"},
	})
	b := ExtractExternalGrantees(&KeyMetadata{
		OwningAccount: "111111111111",
		Grantees:      []string{"111111111111", "333333333333", "222222222222", "333333333333"},
	})

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Sorted(), b.Sorted())
}

func TestAccountID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		principal string
		expected  string
	}{
		{"222222222222", "222222222222"},
		{"arn:aws:iam::222222222222:root", "222222222222"},
		{"arn:aws:iam::222222222222:role/reporting", "222222222222"},
		{"arn:aws:sts::222222222222:assumed-role/reporting/session", "222222222222"},
		{"*", ""},
		{"", ""},
		{"arn:aws:iam", ""},
	}

	for _, tt := range tests {
		t.Run(tt.principal, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, AccountID(tt.principal))
		})
	}
}

func TestGranteeSet(t *testing.T) {
	t.Parallel()

	set := make(GranteeSet)
	assert.Equal(t, 0, set.Len())

	set.Add("b")
	set.Add("a")
	set.Add("b")

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("a"))
	assert.False(t, set.Contains("c"))
	assert.Equal(t, []string{"a", "b"}, set.Sorted())

	other := make(GranteeSet)
	other.Add("a")
	assert.False(t, set.Equal(other))
	other.Add("b")
	assert.True(t, set.Equal(other))
}
