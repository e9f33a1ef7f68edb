package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := Wrap(KindRead, "memaccess.ReadBytes", io.ErrUnexpectedEOF, "read 0x%x", 0x1000)

	if !errors.Is(err, ErrRead) {
		t.Fatalf("expected read kind to match ErrRead")
	}
	if errors.Is(err, ErrResolution) {
		t.Fatalf("read error must not match ErrResolution")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
}

func TestErrorMatchesThroughWrapping(t *testing.T) {
	inner := New(KindResolution, "gamestate.Start", "module not found")
	outer := fmt.Errorf("start detection: %w", inner)

	if !errors.Is(outer, ErrResolution) {
		t.Fatalf("expected wrapped error to match ErrResolution")
	}
	if got := KindOf(outer); got != KindResolution {
		t.Fatalf("KindOf = %q, want %q", got, KindResolution)
	}
	if got := KindOf(io.EOF); got != "" {
		t.Fatalf("KindOf(io.EOF) = %q, want empty", got)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "kind only", err: &Error{Kind: KindConnection}, want: "connection"},
		{name: "op and message", err: New(KindConfigParse, "offsets.Load", "bad offset %q", "zz"), want: `offsets.Load: bad offset "zz"`},
		{name: "with cause", err: Wrap(KindRead, "op", io.EOF, "short"), want: "op: short: EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
