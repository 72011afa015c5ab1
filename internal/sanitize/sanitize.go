// Package sanitize extracts a clean CLI command or SQL query from raw
// model output. Everything here is a pure function over strings; the
// pipeline is idempotent so already-clean text passes through unchanged.
package sanitize

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// Lead-in phrases models like to prepend despite being told not to.
var commandPrefixes = []string{
	"command:", "command is:", "the command is:", "use:", "try:",
	"here is the command:", "here's the command:", "cli command:",
	"terminal command:", "run:", "execute:", "the command:", "here's:",
	"here is:", "you can use:", "use this command:", "run this:",
}

var sqlPrefixes = []string{
	"query:", "sql query:", "the query is:", "here is the query:",
	"here's the query:", "sql:", "here's the sql:", "here is the sql:",
	"the sql query is:", "here's the sql query:", "here is the sql query:",
}

// Markers that begin explanatory prose after the command; everything from
// the first marked line on is discarded.
var continuationMarkers = []string{
	"this command", "the command", "explanation", "note:", "note that",
	"remember", "keep in mind", "also", "additionally", "this will",
	"for example", "you can", "alternatively", "or you can",
}

var sqlContinuationMarkers = []string{
	"this query", "the query", "explanation", "note:", "note that",
	"remember", "keep in mind", "also", "additionally", "this will",
	"this sql", "the above", "for example", "you can",
}

// Canned refusals. Text containing any of these is not a usable result.
var commandRefusals = []string{
	"there is no command", "no specific command", "not a command",
	"cannot find", "unable to", "sorry,", "i cannot", "i don't know",
	"no command exists", "command not found",
}

var sqlRefusals = []string{
	"there is no query", "no specific query", "not a query",
	"cannot find", "unable to", "sorry,", "i cannot", "i don't know",
	"no query exists", "query not found",
}

var sqlKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER",
	"FROM", "WHERE", "JOIN", "GROUP BY", "ORDER BY", "HAVING", "UNION",
}

// sqlStarters gate line accumulation in SQL mode: collection starts at the
// first line containing one of these, skipping any preamble.
var sqlStarters = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER"}

// First tokens accepted as commands without further scrutiny.
var commandStarters = map[string]bool{
	"git": true, "npm": true, "pip": true, "apt": true, "yum": true,
	"brew": true, "docker": true, "kubectl": true, "aws": true,
	"gcloud": true, "az": true, "curl": true, "wget": true, "ssh": true,
	"scp": true, "rsync": true, "ls": true, "cd": true, "mkdir": true,
	"rm": true, "cp": true, "mv": true, "chmod": true, "chown": true,
	"grep": true, "find": true, "sed": true, "awk": true, "sort": true,
	"uniq": true, "head": true, "tail": true, "cat": true, "less": true,
	"more": true, "vim": true, "nano": true, "emacs": true, "ps": true,
	"top": true, "kill": true, "killall": true, "jobs": true, "bg": true,
	"fg": true, "nohup": true, "screen": true, "tmux": true, "tar": true,
	"echo": true, "df": true, "du": true, "ping": true, "make": true,
	"go": true, "python": true, "python3": true, "node": true, "sudo": true,
	"su": true, "systemctl": true, "journalctl": true, "openssl": true,
}

// CleanCommand runs the full sanitization pipeline on raw model output and
// returns the extracted command. The second return is false when no usable
// command was found, which callers report as "no command found", not as an
// error.
func CleanCommand(raw string) (string, bool) {
	text := stripFences(strings.TrimSpace(raw))
	text = stripPrefixes(text, commandPrefixes)

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if containsAnyFold(line, continuationMarkers) {
			break
		}
		kept = append(kept, line)
	}

	cmd := ""
	if len(kept) > 0 {
		cmd = strings.Join(kept, " ")
	} else if first := firstLine(text); first != "" {
		cmd = first
	}
	cmd = strings.TrimRight(cmd, ".,!?")
	cmd = strings.TrimSpace(cmd)

	if IsValidCommand(cmd) {
		return cmd, true
	}

	// The joined form failed; rescan the raw lines for any single line
	// that stands on its own as a command.
	if line, ok := extractCommandLine(text); ok {
		return line, true
	}
	return "", false
}

// CleanSQL runs the SQL sanitization pipeline. Accumulation starts only
// once a SQL keyword is seen so conversational preambles are skipped, and
// comment lines are dropped.
func CleanSQL(raw string) (string, bool) {
	text := stripFences(strings.TrimSpace(raw))
	text = stripPrefixes(text, sqlPrefixes)

	var kept []string
	started := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if isSQLComment(line) {
			continue
		}
		if !started {
			if containsAnyUpper(line, sqlStarters) {
				started = true
				kept = append(kept, line)
			}
			continue
		}
		if containsAnyFold(line, sqlContinuationMarkers) {
			break
		}
		kept = append(kept, line)
	}

	query := strings.Join(kept, "\n")
	query = strings.TrimRight(query, ".,!?")
	query = strings.TrimSpace(query)

	if IsValidSQL(query) {
		return query, true
	}
	return "", false
}

// IsValidCommand reports whether text looks like a runnable CLI command:
// its first token is on the allow-list, or it is an env-var assignment, or
// a sudo/su invocation. Refusal phrases always fail.
func IsValidCommand(cmd string) bool {
	cmd = strings.TrimSpace(cmd)
	if len(cmd) < 2 {
		return false
	}
	if containsAnyFold(cmd, commandRefusals) {
		return false
	}

	token := firstToken(cmd)
	if commandStarters[token] {
		return true
	}
	if isEnvAssignment(token) {
		return true
	}
	return false
}

// IsValidSQL reports whether text looks like a SQL statement: at least one
// recognized keyword and no canned refusal.
func IsValidSQL(query string) bool {
	query = strings.TrimSpace(query)
	if len(query) < 3 {
		return false
	}
	if containsAnyFold(query, sqlRefusals) {
		return false
	}
	return containsAnyUpper(query, sqlKeywords)
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	// Drop the opening fence (with or without a language tag) and the
	// closing fence line.
	body := lines[1 : len(lines)-1]
	return strings.TrimSpace(strings.Join(body, "\n"))
}

// stripPrefixes removes lead-in phrases from the start of the text,
// repeating until none match so stacked prefixes collapse in one call.
func stripPrefixes(text string, prefixes []string) string {
	for {
		stripped := false
		lower := strings.ToLower(text)
		for _, p := range prefixes {
			if strings.HasPrefix(lower, p) {
				text = strings.TrimSpace(text[len(p):])
				stripped = true
				break
			}
		}
		if !stripped {
			return text
		}
	}
}

// extractCommandLine is the fallback scan: strip shell-prompt markers from
// each line and return the first one that independently validates.
func extractCommandLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, p := range []string{"$", ">", "Command:", "Command is:", "Use:", "Try:"} {
			if strings.HasPrefix(line, p) {
				line = strings.TrimSpace(line[len(p):])
			}
		}
		line = strings.TrimSpace(strings.TrimRight(line, ".,!?"))
		if IsValidCommand(line) {
			return line, true
		}
	}
	return "", false
}

func firstToken(cmd string) string {
	if fields, err := shellquote.Split(cmd); err == nil && len(fields) > 0 {
		return fields[0]
	}
	// Unbalanced quotes: fall back to whitespace splitting.
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isEnvAssignment(token string) bool {
	name, _, ok := strings.Cut(token, "=")
	if !ok || name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

func isSQLComment(line string) bool {
	return strings.HasPrefix(line, "--") || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "#")
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func containsAnyUpper(s string, needles []string) bool {
	upper := strings.ToUpper(s)
	for _, n := range needles {
		if strings.Contains(upper, n) {
			return true
		}
	}
	return false
}
