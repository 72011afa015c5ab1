// Package safety is the last policy check before a generated command or
// query is surfaced, copied, or persisted. A poisoned model response must
// not turn the tool into an injection vector, so the checks err toward
// over-blocking. Both checks are total functions: any string in, a verdict
// out, no side effects.
package safety

import "strings"

// Verdict is the outcome of a safety check.
type Verdict struct {
	OK     bool
	Reason string
}

func accepted() Verdict { return Verdict{OK: true} }

func rejected(reason string) Verdict { return Verdict{Reason: reason} }

// Tokens that enable chaining, redirection, or substitution. The
// full-width forms are Unicode look-alikes that survive naive filters.
var dangerousTokens = []string{
	";", "&&", "||", "|", ">>", ">", "2>>", "2>",
	"`", "$(", "${", "<<",
	"；", // full-width semicolon
	"＆", // full-width ampersand
}

// Destructive SQL verbs. Trailing space matters: "DROPPED" is not "DROP ".
var destructiveSQL = []string{"DROP ", "TRUNCATE ", "ALTER ", "DELETE ", "UPDATE "}

// CheckCommand rejects multi-line output and any shell metacharacter that
// could chain, redirect, or substitute commands.
func CheckCommand(cmd string) Verdict {
	if strings.ContainsAny(cmd, "\n\r") {
		return rejected("multi-line commands are disabled")
	}
	if strings.ContainsRune(cmd, 0) {
		return rejected("command contains a NUL byte")
	}
	for _, tok := range dangerousTokens {
		if strings.Contains(cmd, tok) {
			return rejected("potentially dangerous command detected (" + tok + "); refine your request")
		}
	}
	return accepted()
}

// CheckSQL blocks apparently-destructive statements. A destructive verb is
// allowed only inside a single read-qualified statement (e.g. DELETE with a
// SELECT subquery); stacked statements are always rejected so a trailing
// "SELECT 1" cannot launder a DROP. This is a heuristic, not a parser.
func CheckSQL(query string) Verdict {
	upper := strings.ToUpper(query)

	destructive := false
	for _, kw := range destructiveSQL {
		if strings.Contains(upper, kw) {
			destructive = true
			break
		}
	}
	if !destructive {
		return accepted()
	}

	if stacked(query) {
		return rejected("destructive SQL in a stacked statement is blocked")
	}
	if !strings.Contains(upper, "SELECT") {
		return rejected("destructive SQL is blocked; ask explicitly with clear intent to proceed")
	}
	return accepted()
}

// stacked reports whether the text contains a statement separator with
// more content after it. A single trailing semicolon is not stacking.
func stacked(query string) bool {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	return strings.Contains(trimmed, ";")
}
