package session

import "strings"

// safeIntents are plan intents considered read-only. Matching is by
// substring so "file_search_recursive" counts as safe.
var safeIntents = []string{
	"file_search",
	"file_list",
	"system_info",
	"read",
	"search",
	"find",
	"list",
}

// IsSafeIntent reports whether a plan intent looks read-only and is
// eligible for auto-approval.
func IsSafeIntent(intent string) bool {
	intent = strings.ToLower(intent)
	for _, safe := range safeIntents {
		if strings.Contains(intent, safe) {
			return true
		}
	}
	return false
}

// dangerousPatterns map substrings of the joined command line to
// advisory warnings. Advisory only: the sandbox is the actual guard.
var dangerousPatterns = []struct {
	pattern string
	warning string
}{
	{"rm -rf", "recursive force delete detected"},
	{"rm -r", "recursive delete detected"},
	{"mkfs", "filesystem creation detected"},
	{"> /dev/", "writing to device detected"},
	{"dd if=", "disk dump command detected"},
	{"chmod 777", "overly permissive chmod detected"},
	{"sudo", "elevated privileges detected"},
	{":(){:|:&};:", "fork bomb detected"},
	{"shutdown", "shutdown command detected"},
	{"reboot", "reboot command detected"},
}

// SafetyWarnings scans a command vector for known-dangerous patterns
// and returns human-readable warnings. An empty result means nothing
// matched, not that the command is safe.
func SafetyWarnings(command []string) []string {
	joined := strings.ToLower(strings.Join(command, " "))
	var warnings []string
	for _, d := range dangerousPatterns {
		if strings.Contains(joined, d.pattern) {
			warnings = append(warnings, d.warning)
		}
	}
	return warnings
}
