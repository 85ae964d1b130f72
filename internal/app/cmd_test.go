package app

import "testing"

// TestParseCommand_KnownCommands はサポートされたサブコマンドの解析を検証する。
func TestParseCommand_KnownCommands(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{[]string{"serve"}, CommandServe},
		{[]string{"migrate"}, CommandMigrate},
		{[]string{"healthcheck"}, CommandHealthcheck},
	}

	for _, tt := range tests {
		got := ParseCommand(tt.args)
		if got != tt.want {
			t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

// TestParseCommand_EmptyArgs_DefaultsToServe は引数なしでserveになることを検証する。
func TestParseCommand_EmptyArgs_DefaultsToServe(t *testing.T) {
	if got := ParseCommand(nil); got != CommandServe {
		t.Errorf("ParseCommand(nil) = %q, want %q", got, CommandServe)
	}
	if got := ParseCommand([]string{}); got != CommandServe {
		t.Errorf("ParseCommand([]) = %q, want %q", got, CommandServe)
	}
}

// TestParseCommand_UnknownCommand_DefaultsToServe は未知のコマンドがserveにフォールバックすることを検証する。
func TestParseCommand_UnknownCommand_DefaultsToServe(t *testing.T) {
	if got := ParseCommand([]string{"worker"}); got != CommandServe {
		t.Errorf("ParseCommand([worker]) = %q, want %q", got, CommandServe)
	}
	if got := ParseCommand([]string{"xyz"}); got != CommandServe {
		t.Errorf("ParseCommand([xyz]) = %q, want %q", got, CommandServe)
	}
}
