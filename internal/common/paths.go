// Copyright 2025 ShareFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"path"
	"strings"
)

// NormalizePath cleans a share-relative path, removing leading/trailing slashes
func NormalizePath(p string) string {
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// SplitPath splits a path into its components
func SplitPath(p string) []string {
	p = NormalizePath(p)
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// JoinPath joins path components
func JoinPath(parts ...string) string {
	return NormalizePath(path.Join(parts...))
}

// ParentPath returns the parent directory of a path
func ParentPath(p string) string {
	p = NormalizePath(p)
	if p == "" {
		return ""
	}
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

// BaseName returns the base name of a path
func BaseName(p string) string {
	p = NormalizePath(p)
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// PathRef is a canonicalized share-relative path: non-empty segments with
// no separators, no "." and no "..". The root is the empty list.
type PathRef []string

// RootRef returns the share root.
func RootRef() PathRef {
	return nil
}

// RefFromString normalizes p into a PathRef.
func RefFromString(p string) PathRef {
	return PathRef(SplitPath(p))
}

// String renders the path with "/" separators; the root renders as "".
func (p PathRef) String() string {
	return strings.Join(p, "/")
}

// IsRoot reports whether p names the share root.
func (p PathRef) IsRoot() bool {
	return len(p) == 0
}

// Name returns the last segment, or "" for the root.
func (p PathRef) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Child returns a copy of p extended by name.
func (p PathRef) Child(name string) PathRef {
	child := make(PathRef, 0, len(p)+1)
	child = append(child, p...)
	return append(child, name)
}

// Parent returns a copy of p without its last segment; the root's parent
// is the root.
func (p PathRef) Parent() PathRef {
	if len(p) == 0 {
		return nil
	}
	parent := make(PathRef, len(p)-1)
	copy(parent, p[:len(p)-1])
	return parent
}

// Equal reports byte-identical equality of the two paths.
func (p PathRef) Equal(o PathRef) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// RelativeTo returns the segments of p below anchor, and whether anchor is
// a prefix of p. p relative to itself is the empty list.
func (p PathRef) RelativeTo(anchor PathRef) (PathRef, bool) {
	if len(anchor) > len(p) {
		return nil, false
	}
	for i := range anchor {
		if p[i] != anchor[i] {
			return nil, false
		}
	}
	rel := make(PathRef, len(p)-len(anchor))
	copy(rel, p[len(anchor):])
	return rel, true
}

// ValidateName rejects entry names that cannot be a single path segment.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return Errorf(KindInvalidName, "invalid entry name %q", name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return Errorf(KindInvalidName, "invalid entry name %q", name)
	}
	return nil
}
