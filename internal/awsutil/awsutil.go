// Package awsutil validates AWS identifiers and resolves the active region.
package awsutil

import (
	"os"
	"regexp"
)

const fallbackRegion = "us-east-1"

var (
	// e.g. us-east-1, eu-west-2
	regionPattern    = regexp.MustCompile(`^[a-z]{2}-[a-z]+-\d+$`)
	accountIDPattern = regexp.MustCompile(`^\d{12}$`)
)

// ValidRegion reports whether the string has a valid AWS region format.
func ValidRegion(region string) bool {
	return regionPattern.MatchString(region)
}

// ValidAccountID reports whether the string is a 12-digit AWS account ID.
func ValidAccountID(accountID string) bool {
	return accountIDPattern.MatchString(accountID)
}

// ResolveRegion picks the first usable region among the explicit value, the
// AWS_DEFAULT_REGION environment variable, and the configured default.
func ResolveRegion(explicit, configured string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("AWS_DEFAULT_REGION"); ValidRegion(env) {
		return env
	}
	if ValidRegion(configured) {
		return configured
	}
	return fallbackRegion
}
