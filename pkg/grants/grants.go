// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package grants discovers which external accounts are authorized to use
// an encryption key. Key metadata is read from the key-management service
// and reduced to the set of grantee accounts, excluding the key's owner.
package grants

import (
	"sort"
	"strings"
)

// KeyMetadata is the descriptive metadata for an encryption key, typed at
// the boundary so downstream logic never inspects raw API responses.
//
// Grantees holds the raw account identifiers referenced by the key's
// policy principal entries. It may contain duplicates and usually contains
// the owning account; ExtractExternalGrantees cleans both up.
type KeyMetadata struct {
	KeyID         string
	OwningAccount string
	Grantees      []string
}

// GranteeSet is a set of unique account identifiers. Order is irrelevant.
type GranteeSet map[string]struct{}

func (s GranteeSet) Add(account string) {
	s[account] = struct{}{}
}

func (s GranteeSet) Contains(account string) bool {
	_, ok := s[account]
	return ok
}

func (s GranteeSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order, for deterministic output.
func (s GranteeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two sets have the same members.
func (s GranteeSet) Equal(other GranteeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for a := range s {
		if !other.Contains(a) {
			return false
		}
	}
	return true
}

// ExtractExternalGrantees derives the set of external accounts from key
// metadata: every grantee account except the key's owner, deduplicated.
// Metadata with no grant entries yields an empty set, not an error.
func ExtractExternalGrantees(meta *KeyMetadata) GranteeSet {
	set := make(GranteeSet, len(meta.Grantees))
	owner := AccountID(meta.OwningAccount)
	for _, g := range meta.Grantees {
		account := AccountID(g)
		if account == "" || account == owner {
			continue
		}
		set.Add(account)
	}
	return set
}

// AccountID normalizes a principal identifier to a bare account ID.
// ARNs yield their account segment; wildcard and empty principals yield
// "" (no account can be derived); anything else passes through.
func AccountID(principal string) string {
	if principal == "" || principal == "*" {
		return ""
	}
	if strings.HasPrefix(principal, "arn:") {
		// arn:partition:service:region:account:resource
		parts := strings.SplitN(principal, ":", 6)
		if len(parts) < 6 {
			return ""
		}
		return parts[4]
	}
	return principal
}
