// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultActions is the read action set granted to external accounts.
var DefaultActions = []string{"s3:GetObject", "s3:ListBucket"}

// Builder constructs bucket policy documents granting a fixed action set
// to a set of external accounts.
type Builder struct {
	actions []string
}

// NewBuilder creates a Builder granting the given actions. With no
// arguments the default read action set is used.
func NewBuilder(actions ...string) *Builder {
	if len(actions) == 0 {
		actions = DefaultActions
	}
	return &Builder{actions: actions}
}

// Build produces the access policy document for bucket, granting the
// builder's action set to each grantee account. Grantees carry set
// semantics: duplicates and ordering in the input do not affect the
// result. Principal ARNs are emitted sorted so the serialized document is
// deterministic for a given set.
//
// An empty grantee set yields a document with zero statements, never a
// statement with an empty principal list. Callers treat such a document
// as "no custom grants" and skip attachment.
func (b *Builder) Build(bucket string, grantees []string) *Document {
	doc := &Document{Version: Version}

	principals := principalARNs(grantees)
	if len(principals) == 0 {
		return doc
	}

	doc.Statements = []Statement{{
		Sid:    "ExternalKeyGranteeRead",
		Effect: EffectAllow,
		Principal: &Principal{
			AWS: principals,
		},
		Action: append(StringOrSlice(nil), b.actions...),
		Resource: StringOrSlice{
			fmt.Sprintf("arn:aws:s3:::%s", bucket),
			fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
		},
	}}

	return doc
}

// principalARNs maps account identifiers to account-root ARNs, dropping
// duplicates and empty entries. Identifiers that are already ARNs pass
// through unchanged.
func principalARNs(grantees []string) StringOrSlice {
	seen := make(map[string]struct{}, len(grantees))
	var arns []string
	for _, g := range grantees {
		if g == "" {
			continue
		}
		arn := g
		if !strings.HasPrefix(g, "arn:") {
			arn = fmt.Sprintf("arn:aws:iam::%s:root", g)
		}
		if _, ok := seen[arn]; ok {
			continue
		}
		seen[arn] = struct{}{}
		arns = append(arns, arn)
	}
	sort.Strings(arns)
	return arns
}
