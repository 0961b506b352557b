package util

import (
	"errors"
	"strings"
	"testing"
)

func TestConnectionErrorMessage(t *testing.T) {
	err := NewConnectionError("sw1", "cli", "10.0.0.1", ErrAuthenticationFailed, "bad password")

	msg := err.Error()
	for _, want := range []string{"sw1", "cli", "10.0.0.1", "bad password"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error message should contain %q: %s", want, msg)
		}
	}

	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Error("ConnectionError should unwrap to ErrAuthenticationFailed")
	}
	if err.IsTerminal() {
		t.Error("an auth failure should not be terminal")
	}
}

func TestConnectionErrorTimeoutIsTerminal(t *testing.T) {
	err := NewConnectionError("sw1", "cli", "10.0.0.1", ErrConnectionTimeout, "")
	if !err.IsTerminal() {
		t.Error("a timeout should be terminal")
	}
	if strings.Contains(err.Error(), "()") {
		t.Errorf("empty detail should not render as (): %s", err.Error())
	}
}

func TestConnectionErrorUnexpectedIsNotTerminal(t *testing.T) {
	err := NewConnectionError("sw1", "cli", "10.0.0.1", ErrConnectionUnexpected, "EOF")
	if err.IsTerminal() {
		t.Error("an unexpected error should not be terminal")
	}
}

func TestParseError(t *testing.T) {
	err := NewParseError("credential", "admin::secret", "too many colons", ErrCredentialParse)
	if !strings.Contains(err.Error(), "admin::secret") {
		t.Errorf("Error message should contain the source: %s", err.Error())
	}
	if !errors.Is(err, ErrCredentialParse) {
		t.Error("ParseError should unwrap to ErrCredentialParse")
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("username is required")
		msg := err.Error()
		if !strings.Contains(msg, "username is required") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("field1 is required", "field2 is invalid", "field3 out of range")
		msg := err.Error()
		if !strings.Contains(msg, "field1") || !strings.Contains(msg, "field2") || !strings.Contains(msg, "field3") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")
		v.Add(true, "neither should this")

		if v.HasErrors() {
			t.Error("Should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first error")
		v.Add(true, "this passes")
		v.Add(false, "second error")
		v.AddError("unconditional error")
		v.AddErrorf("formatted error: %d", 42)

		if !v.HasErrors() {
			t.Error("Should have errors")
		}

		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return error")
		}

		validationErr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(validationErr.Errors) != 4 {
			t.Errorf("Expected 4 errors, got %d", len(validationErr.Errors))
		}
	})

	t.Run("chaining", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "error1").
			Add(false, "error2").
			AddErrorf("error%d", 3).
			Build()

		if err == nil {
			t.Fatal("Expected error")
		}
		if !strings.Contains(err.Error(), "error1") {
			t.Errorf("Missing error1 in: %s", err.Error())
		}
	})
}

func TestModuleError(t *testing.T) {
	inner := errors.New("command timed out")
	err := NewModuleError("crawl", inner)

	if !strings.Contains(err.Error(), "crawl") {
		t.Errorf("Error message should contain module name: %s", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("ModuleError should unwrap to its inner reason")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrConnectionTimeout,
		ErrAuthenticationFailed,
		ErrNoEligibleConnector,
		ErrConnectionUnexpected,
		ErrNotConnected,
		ErrAlreadyExists,
		ErrNotFound,
		ErrExpressionParse,
		ErrCredentialParse,
		ErrFilterParse,
		ErrValidationFailed,
		ErrModuleFailed,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"ConnectionError", NewConnectionError("h", "c", "a", ErrConnectionTimeout, ""), ErrConnectionTimeout},
		{"ParseError", NewParseError("filter", "src", "", ErrFilterParse), ErrFilterParse},
		{"ValidationError", NewValidationError("msg"), ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%s should wrap %v", tt.name, tt.sentinel)
			}
		})
	}
}
