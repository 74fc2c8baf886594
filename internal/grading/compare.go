package grading

import (
	"encoding/json"
	"strings"
)

// decodeStringList accepts a JSON array of strings or a single JSON string.
func decodeStringList(raw json.RawMessage) ([]string, bool) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, list != nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, true
	}
	return nil, false
}

func equalSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// equalMultiset compares contents ignoring order, counting duplicates.
func equalMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}

// equalSet compares distinct values ignoring order and repetition.
func equalSet(a, b []string) bool {
	return isSubset(a, b) && isSubset(b, a)
}

func isSubset(sub, super []string) bool {
	set := make(map[string]struct{}, len(super))
	for _, s := range super {
		set[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
