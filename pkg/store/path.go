package store

import (
	"context"
	"strings"
)

// SplitPath splits an internal volume path into its components.
//
// Leading and trailing slashes and repeated slashes are ignored, so
// "/a/b", "a/b/" and "a//b" all split to ["a", "b"]. The root paths
// "" and "/" split to an empty slice.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinPath appends a child name to an internal volume path.
//
// Examples:
//   - JoinPath("/", "a") → "/a"
//   - JoinPath("/a", "b") → "/a/b"
//   - JoinPath("", "a") → "/a"
func JoinPath(base, name string) string {
	base = strings.TrimSuffix(base, "/")
	return base + "/" + name
}

// ValidateName checks a single child name: non-empty, no slashes, and not
// the reserved "." / ".." traversal names.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return &StoreError{
			Code:    ErrInvalidArgument,
			Message: "invalid node name",
			Path:    name,
		}
	}
	return nil
}

// LookupPath walks a multi-component internal path down from a group.
//
// The path is split with SplitPath; each intermediate component must resolve
// to a group. An empty or root path returns the starting group itself.
//
// Returns:
//   - Node: the resolved node
//   - error: ErrNotFound if any component is missing, ErrNotGroup if an
//     intermediate component is not a group, or context errors
func LookupPath(ctx context.Context, start Group, path string) (Node, error) {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return start, nil
	}

	current := start
	for i, part := range parts {
		child, err := current.Lookup(ctx, part)
		if err != nil {
			return nil, err
		}

		if i == len(parts)-1 {
			return child, nil
		}

		group, ok := child.(Group)
		if !ok || child.Kind() != KindGroup {
			return nil, &StoreError{
				Code:    ErrNotGroup,
				Message: "path component is not a group",
				Path:    child.Path(),
			}
		}
		current = group
	}

	return current, nil
}
