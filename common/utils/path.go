package utils

import "strings"

// MatchUrlPath matches a request path such as "READ:claims/0xabc" against a
// pattern such as "READ:claims/:address" and returns the captured parameters.
func MatchUrlPath(pattern string, path string) (bool, map[string]string) {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	rp := strings.Split(strings.Trim(path, "/"), "/")
	if len(pp) != len(rp) {
		return false, nil
	}
	params := map[string]string{}
	for i, seg := range pp {
		if strings.HasPrefix(seg, ":") {
			if rp[i] == "" {
				return false, nil
			}
			params[seg[1:]] = rp[i]
			continue
		}
		if seg != rp[i] {
			return false, nil
		}
	}
	return true, params
}

func IfThenElse[T any](cond bool, a T, b T) T {
	if cond {
		return a
	}
	return b
}
