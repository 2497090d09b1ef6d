package errx_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/veridian-labs/veridian/pkg/errx"
)

func TestRegistry_PrefixesCodes(t *testing.T) {
	reg := errx.NewRegistry("WIDGET")
	code := reg.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Widget not found")

	err := reg.New(code)
	if err.Code != "WIDGET_NOT_FOUND" {
		t.Fatalf("expected prefixed code, got %s", err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", err.HTTPStatus)
	}
}

func TestIsType(t *testing.T) {
	err := errx.Conflict("already exists")
	if !errx.IsType(err, errx.TypeConflict) {
		t.Fatal("expected conflict type to match")
	}
	if errx.IsType(err, errx.TypeNotFound) {
		t.Fatal("unexpected type match")
	}
	if errx.IsType(errors.New("plain"), errx.TypeInternal) {
		t.Fatal("plain errors have no type")
	}
}

func TestIsType_Wrapped(t *testing.T) {
	inner := errx.NotFound("missing")
	outer := errx.Wrap(inner, "lookup failed", errx.TypeInternal)

	// Wrapping re-types the error but keeps the original reachable.
	if !errx.IsType(outer, errx.TypeInternal) {
		t.Fatalf("expected internal type, got %v", outer)
	}
	var e *errx.Error
	if !errx.As(errors.Unwrap(outer), &e) || e.Type != errx.TypeNotFound {
		t.Fatal("expected the original error in the chain")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := errx.Validation("bad input").WithDetail("field", "email")
	if err.Details["field"] != "email" {
		t.Fatalf("expected detail, got %v", err.Details)
	}
}
