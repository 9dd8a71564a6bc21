// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package versiongate parses and compares the debugger's version grammar
// (v<major>.<minor>.<patch>[-(alpha|beta)[.pre-<N>]]) to decide whether an
// imported run is compatible with the running coordinator.
package versiongate

import (
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/mod/semver"
)

// ServerVersion is the release version stamped onto every Run created by
// this coordinator and checked against imports.
const ServerVersion = "v1.0.0-beta.pre-2"

var versionPattern = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)(?:-(alpha|beta)(?:\.pre-(\d+))?)?$`)

// Version is a parsed instance of the grammar.
type Version struct {
	Major, Minor, Patch int
	Label               string // "alpha", "beta", or "" for unlabeled
	Pre                 int
	hasPre              bool
}

// Parse parses a version string, returning an error if it does not match
// the v<M>.<m>.<p>(-(alpha|beta)(.pre-<N>)?)? grammar.
func Parse(version string) (Version, error) {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version format: %q", version)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	v := Version{Major: major, Minor: minor, Patch: patch, Label: m[4]}
	if m[5] != "" {
		pre, _ := strconv.Atoi(m[5])
		v.Pre = pre
		v.hasPre = true
	}
	return v, nil
}

// numeric returns "v<M>.<m>.<p>" as a golang.org/x/mod/semver-comparable
// string, used only to order the numeric core; the prerelease label
// comparison below is bespoke because this grammar's alpha/beta/pre-N
// ordering does not match semver's lexicographic prerelease rules.
func (v Version) numeric() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func compareNumeric(a, b Version) int {
	return semver.Compare(a.numeric(), b.numeric())
}

// Compatible reports whether provided may be imported against required,
// following the debugger's compatibility rule:
//  1. provided.major < required.major, or provided.minor < required.minor: incompatible.
//  2. differing (M,m,p) with major/minor satisfied: compatible (patch floats).
//  3. identical (M,m,p): compare labels — unlabeled beats labeled; alpha < beta;
//     same label compares pre-<N> (absent counts as greater than any present).
func Compatible(required, provided Version) bool {
	if provided.Major < required.Major || provided.Minor < required.Minor {
		return false
	}
	if compareNumeric(required, provided) != 0 {
		return true
	}

	switch {
	case required.Label == "" && provided.Label == "":
		return true
	case required.Label == "" && provided.Label != "":
		return false
	case required.Label != "" && provided.Label == "":
		return true
	case required.Label != provided.Label:
		return false
	}

	switch {
	case required.hasPre && provided.hasPre:
		return provided.Pre >= required.Pre
	case required.hasPre && !provided.hasPre:
		return true
	case !required.hasPre && provided.hasPre:
		return false
	default:
		return true
	}
}

// IsCompatible parses both strings and applies Compatible. A parse failure
// on either side is treated as incompatible.
func IsCompatible(required, provided string) bool {
	req, err := Parse(required)
	if err != nil {
		return false
	}
	prov, err := Parse(provided)
	if err != nil {
		return false
	}
	return Compatible(req, prov)
}
