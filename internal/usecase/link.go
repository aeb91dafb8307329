package usecase

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildLink appends token as the "token" query parameter of base, keeping any
// query the base already carries.
func BuildLink(base, token string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
