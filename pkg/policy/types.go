// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy models AWS access policy documents: the JSON wire format
// shared by bucket policies and KMS key policies. The same flexible
// string-or-array handling applies to both, so the reader side (parsing
// key policies) and the writer side (building bucket policies) share one
// set of types.
package policy

import (
	"encoding/json"
	"sort"
)

// Version is the policy language version AWS expects.
const Version = "2012-10-17"

// Effect determines whether a statement allows or denies access
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// StringOrSlice handles JSON fields that can be either a string or []string.
// AWS policy JSON allows: "Action": "s3:GetObject" or "Action": ["s3:GetObject"].
type StringOrSlice []string

func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = []string{str}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	*s = arr
	return nil
}

func (s StringOrSlice) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// Principal represents who a statement applies to.
type Principal struct {
	AWS       StringOrSlice `json:"AWS,omitempty"`
	Service   StringOrSlice `json:"Service,omitempty"`
	Federated StringOrSlice `json:"Federated,omitempty"`
}

// UnmarshalJSON handles both the string form ("*") and the object form.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str == "*" {
			p.AWS = StringOrSlice{"*"}
		}
		return nil
	}
	type alias Principal
	return json.Unmarshal(data, (*alias)(p))
}

// Condition represents conditional access rules keyed by condition key
// (aws:SourceIp, kms:CallerAccount, etc.)
type Condition map[string]StringOrSlice

// Statement is a single permission statement in a policy document.
type Statement struct {
	Sid       string               `json:"Sid,omitempty"`
	Effect    Effect               `json:"Effect"`
	Principal *Principal           `json:"Principal,omitempty"`
	Action    StringOrSlice        `json:"Action,omitempty"`
	Resource  StringOrSlice        `json:"Resource,omitempty"`
	Condition map[string]Condition `json:"Condition,omitempty"`
}

// Document is a full policy document.
type Document struct {
	Version    string      `json:"Version"`
	ID         string      `json:"Id,omitempty"`
	Statements []Statement `json:"Statement"`
}

// Parse decodes a JSON policy document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// JSON serializes the document to its wire form.
func (d *Document) JSON() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Equal reports semantic equality: same version and the same statements,
// with list ordering inside Principal/Action/Resource ignored.
func (d *Document) Equal(other *Document) bool {
	if other == nil || d.Version != other.Version || len(d.Statements) != len(other.Statements) {
		return false
	}
	for i := range d.Statements {
		if !d.Statements[i].equal(&other.Statements[i]) {
			return false
		}
	}
	return true
}

func (s *Statement) equal(other *Statement) bool {
	if s.Sid != other.Sid || s.Effect != other.Effect {
		return false
	}
	if !setEqual(s.Action, other.Action) || !setEqual(s.Resource, other.Resource) {
		return false
	}
	switch {
	case s.Principal == nil && other.Principal == nil:
	case s.Principal == nil || other.Principal == nil:
		return false
	default:
		if !setEqual(s.Principal.AWS, other.Principal.AWS) ||
			!setEqual(s.Principal.Service, other.Principal.Service) ||
			!setEqual(s.Principal.Federated, other.Principal.Federated) {
			return false
		}
	}
	return true
}

func setEqual(a, b StringOrSlice) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
