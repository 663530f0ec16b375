package logging

import (
	"net/url"
	"strings"
)

// Kit environments routinely carry package-manager credentials (Conan
// remotes, vcpkg binary caches, Artifactory keys). Anything printed from a
// kit, the config or the process environment goes through these helpers.
var (
	// secretKeyParts match key names case-insensitively.
	secretKeyParts = []string{"TOKEN", "SECRET", "PASSWORD", "PASSWD", "AUTH", "CREDENTIAL", "API_KEY", "APIKEY", "PRIVATE"}

	// tokenPrefixes identify well-known token formats regardless of key.
	tokenPrefixes = []string{"ghp_", "gho_", "ghs_", "github_pat_", "glpat-", "AKIA", "xoxb-", "xoxp-", "AKCp"}

	// secretQueryParams are URL query parameters carrying signatures, as in
	// Azure SAS URLs used by VCPKG_BINARY_SOURCES.
	secretQueryParams = []string{"sig", "token", "access_token", "password"}
)

// MaskSecrets returns a copy of env with every sensitive value masked.
func MaskSecrets(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	masked := make(map[string]string, len(env))
	for k, v := range env {
		masked[k] = Redact(k, v)
	}
	return masked
}

// Redact masks value when its key or its shape suggests a credential, and
// strips credentials from URLs embedded in it. Other values are returned
// unchanged.
func Redact(key, value string) string {
	if ShouldMask(key) || ContainsTokenPrefix(value) {
		return MaskValue(value)
	}
	if strings.Contains(value, "://") {
		return maskURLs(value)
	}
	return value
}

// MaskValue keeps the last four characters of values longer than four.
func MaskValue(value string) string {
	const keep = 4
	if len(value) <= keep {
		return "********"
	}
	return "****" + value[len(value)-keep:]
}

// MaskURL masks the password and signature query parameters of rawURL, e.g.
// redis://:pass@host:6379/0. Values that do not parse are returned as is.
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	changed := false
	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			u.User = url.UserPassword(u.User.Username(), MaskValue(pw))
			changed = true
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range secretQueryParams {
			if v := q.Get(p); v != "" {
				q.Set(p, MaskValue(v))
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	if !changed {
		return rawURL
	}
	return u.String()
}

// maskURLs applies MaskURL to each comma or semicolon separated field, the
// list syntax of VCPKG_BINARY_SOURCES and similar variables.
func maskURLs(value string) string {
	fields := strings.Split(value, ";")
	for i, f := range fields {
		parts := strings.Split(f, ",")
		for j, p := range parts {
			parts[j] = MaskURL(p)
		}
		fields[i] = strings.Join(parts, ",")
	}
	return strings.Join(fields, ";")
}

// ShouldMask reports whether key names a credential.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, part := range secretKeyParts {
		if strings.Contains(upper, part) {
			return true
		}
	}
	return false
}

// ContainsTokenPrefix reports whether value starts like a known API token.
func ContainsTokenPrefix(value string) bool {
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
