package logger

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

var secretKeys = []string{"api_key", "apikey", "token", "bearer", "secret", "password", "authorization"}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

var (
	apiKeyParam = regexp.MustCompile(`(?i)(api_key=)[^&\s"]+`)
	bearerValue = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`)
)

// RedactSecrets masks api_key query values and bearer credentials embedded
// in free text such as URLs or error messages.
func RedactSecrets(s string) string {
	s = apiKeyParam.ReplaceAllString(s, "${1}"+redacted)
	return bearerValue.ReplaceAllString(s, "${1}"+redacted)
}
