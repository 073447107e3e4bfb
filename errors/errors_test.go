package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(PhaseConvert, KindTypeMismatch).
		GoType("chan int").
		Detail("no engine representation").
		Build()

	s := err.Error()
	if !strings.Contains(s, "[convert]") {
		t.Errorf("missing phase: %s", s)
	}
	if !strings.Contains(s, "type_mismatch") {
		t.Errorf("missing kind: %s", s)
	}
	if !strings.Contains(s, "chan int") {
		t.Errorf("missing Go type: %s", s)
	}
	if !strings.Contains(s, "no engine representation") {
		t.Errorf("missing detail: %s", s)
	}
}

func TestErrorIs(t *testing.T) {
	err := InvalidInput(PhaseEval, "empty source")
	if !stderrors.Is(err, &Error{Phase: PhaseEval, Kind: KindInvalidInput}) {
		t.Error("Is should match same phase and kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseIO, Kind: KindInvalidInput}) {
		t.Error("Is should not match different phase")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := Wrap(PhaseIO, KindInvalidData, cause, "read script")
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("cause missing from message: %s", err.Error())
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
		want string
	}{
		{"too_large", TooLarge(PhaseIO, 100, 10), KindTooLarge, "exceeds limit"},
		{"closed", Closed(PhaseEval, "context"), KindClosed, "context is closed"},
		{"not_found", NotFound(PhaseIO, "file", "x.js"), KindNotFound, `"x.js" not found`},
		{"overflow", Overflow(PhaseConvert, uint64(1<<63), "int64"), KindOverflow, "overflows int64"},
		{"allocation", AllocationFailed(PhaseConvert, 64), KindAllocation, "arena cannot hold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("message %q missing %q", tt.err.Error(), tt.want)
			}
		})
	}
}
