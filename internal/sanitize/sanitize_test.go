package sanitize

import "testing"

func TestCleanCommand(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "already clean",
			raw:  "ls -la",
			want: "ls -la",
			ok:   true,
		},
		{
			name: "lead-in prefix",
			raw:  "Here is the command: ls -la",
			want: "ls -la",
			ok:   true,
		},
		{
			name: "stacked prefixes",
			raw:  "Use: Command: ls -la",
			want: "ls -la",
			ok:   true,
		},
		{
			name: "code fence with language tag",
			raw:  "```bash\ngit status\n```",
			want: "git status",
			ok:   true,
		},
		{
			name: "trailing explanation dropped",
			raw:  "docker ps -a\nThis command lists all containers.",
			want: "docker ps -a",
			ok:   true,
		},
		{
			name: "trailing punctuation stripped",
			raw:  "git log --oneline.",
			want: "git log --oneline",
			ok:   true,
		},
		{
			name: "shell prompt marker fallback",
			raw:  "$ grep -r TODO src/",
			want: "grep -r TODO src/",
			ok:   true,
		},
		{
			name: "refusal",
			raw:  "Sorry, there is no command for that.",
			ok:   false,
		},
		{
			name: "prose only",
			raw:  "That depends on your operating system.",
			ok:   false,
		},
		{
			name: "env assignment",
			raw:  "GOOS=linux go build -o app",
			want: "GOOS=linux go build -o app",
			ok:   true,
		},
		{
			name: "empty",
			raw:  "",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanCommand(tt.raw)
			if ok != tt.ok {
				t.Fatalf("CleanCommand(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("CleanCommand(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// Cleaning an already-clean result must be a no-op, so re-running the
// pipeline can never mangle accepted output.
func TestCleanCommandIdempotent(t *testing.T) {
	inputs := []string{
		"Here is the command: ls -la",
		"```sh\ntar -xzf archive.tar.gz\n```",
		"Use: Try: find . -name '*.go'",
	}
	for _, raw := range inputs {
		once, ok := CleanCommand(raw)
		if !ok {
			t.Fatalf("CleanCommand(%q) unexpectedly failed", raw)
		}
		twice, ok := CleanCommand(once)
		if !ok {
			t.Fatalf("re-cleaning %q unexpectedly failed", once)
		}
		if twice != once {
			t.Errorf("pipeline not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "already clean",
			raw:  "SELECT * FROM users",
			want: "SELECT * FROM users",
			ok:   true,
		},
		{
			name: "prefix and fence",
			raw:  "Here is the query:\n```sql\nSELECT id FROM orders WHERE total > 100\n```",
			want: "SELECT id FROM orders WHERE total > 100",
			ok:   true,
		},
		{
			name: "preamble skipped until keyword",
			raw:  "You can fetch them like so:\nSELECT name FROM customers\nORDER BY name",
			want: "SELECT name FROM customers\nORDER BY name",
			ok:   true,
		},
		{
			name: "comment lines dropped",
			raw:  "-- fetch active users\nSELECT * FROM users WHERE active = 1",
			want: "SELECT * FROM users WHERE active = 1",
			ok:   true,
		},
		{
			name: "trailing explanation dropped",
			raw:  "SELECT COUNT(*) FROM events\nThis query counts all events.",
			want: "SELECT COUNT(*) FROM events",
			ok:   true,
		},
		{
			name: "refusal",
			raw:  "Sorry, there is no query for that.",
			ok:   false,
		},
		{
			name: "no sql at all",
			raw:  "You should use a spreadsheet instead.",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanSQL(tt.raw)
			if ok != tt.ok {
				t.Fatalf("CleanSQL(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("CleanSQL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsValidCommand(t *testing.T) {
	valid := []string{
		"ls -la",
		"git commit -m 'fix the bug'",
		"sudo systemctl restart nginx",
		"FOO=bar make test",
	}
	for _, cmd := range valid {
		if !IsValidCommand(cmd) {
			t.Errorf("IsValidCommand(%q) = false, want true", cmd)
		}
	}

	invalid := []string{
		"",
		"x",
		"frobnicate the widgets",
		"I cannot help with that",
	}
	for _, cmd := range invalid {
		if IsValidCommand(cmd) {
			t.Errorf("IsValidCommand(%q) = true, want false", cmd)
		}
	}
}

// Unbalanced quotes must not panic the tokenizer; the fallback splitter
// takes over.
func TestFirstTokenUnbalancedQuotes(t *testing.T) {
	if got := firstToken(`echo "unterminated`); got != "echo" {
		t.Errorf("firstToken = %q, want %q", got, "echo")
	}
}

func TestIsValidSQL(t *testing.T) {
	if !IsValidSQL("SELECT 1") {
		t.Error("expected SELECT 1 to be valid")
	}
	if IsValidSQL("not sql at all") {
		t.Error("expected prose to be invalid")
	}
	if IsValidSQL("sorry, I cannot write that SELECT for you") {
		t.Error("refusal text must be invalid even when it mentions a keyword")
	}
}
