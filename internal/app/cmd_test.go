package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{[]string{}, CommandServe},
		{[]string{"serve"}, CommandServe},
		{[]string{"worker"}, CommandWorker},
		{[]string{"WORKER"}, CommandWorker},
		{[]string{"migrate"}, CommandMigrate},
		{[]string{"healthcheck"}, CommandHealthcheck},
		{[]string{"help"}, CommandHelp},
		{[]string{"--help"}, CommandHelp},
		{[]string{"-h"}, CommandHelp},
		{[]string{"unknown"}, CommandServe},
		{[]string{"worker", "--flag", "value"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestPrintUsage_ListsAllCommands(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)

	out := buf.String()
	for _, c := range commands {
		if !strings.Contains(out, string(c.cmd)) {
			t.Errorf("usage missing %q:\n%s", c.cmd, out)
		}
	}
}

func TestRun_Help_PrintsUsageWithoutConfig(t *testing.T) {
	setTestEnv(t)
	t.Setenv("STORAGE_BACKEND", "invalid")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"help"}); err != nil {
		t.Fatalf("Run(help) error = %v", err)
	}
	if !strings.Contains(buf.String(), "usage: questlog") {
		t.Errorf("expected usage output, got %q", buf.String())
	}
}
