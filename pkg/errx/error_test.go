package errx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/juricore/courtsync/pkg/errx"
)

var testErrors = errx.NewRegistry("TEST")

var errNotFound = testErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "Thing not found")

func TestRegistryPrefixesCodes(t *testing.T) {
	if errNotFound.Code != "TEST_NOT_FOUND" {
		t.Fatalf("expected prefixed code, got %s", errNotFound.Code)
	}

	e := testErrors.New(errNotFound)
	if e.HTTPStatus != 404 || e.Type != errx.TypeNotFound {
		t.Fatalf("registered attributes not carried: %+v", e)
	}
}

func TestNewWithCauseUnwraps(t *testing.T) {
	cause := errors.New("row missing")
	e := testErrors.NewWithCause(errNotFound, cause)

	if !errors.Is(e, cause) {
		t.Fatal("expected cause in the unwrap chain")
	}
}

func TestWithDetailChains(t *testing.T) {
	e := testErrors.New(errNotFound).
		WithDetail("id", "abc").
		WithDetail("attempt", 2)

	if e.Details["id"] != "abc" || e.Details["attempt"] != 2 {
		t.Fatalf("details not recorded: %+v", e.Details)
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := testErrors.New(errNotFound)
	wrapped := errx.Wrap(fmt.Errorf("lookup: %w", inner), "lookup failed", errx.TypeInternal)

	if wrapped.Code != "TEST_NOT_FOUND" {
		t.Fatalf("expected inner code preserved, got %s", wrapped.Code)
	}
	if wrapped.HTTPStatus != 404 {
		t.Fatalf("expected inner status preserved, got %d", wrapped.HTTPStatus)
	}
}

func TestIsType(t *testing.T) {
	e := testErrors.New(errNotFound)

	if !errx.IsType(e, errx.TypeNotFound) {
		t.Fatal("expected type match")
	}
	if errx.IsType(e, errx.TypeValidation) {
		t.Fatal("unexpected type match")
	}
	if errx.IsType(errors.New("plain"), errx.TypeNotFound) {
		t.Fatal("plain errors carry no type")
	}
}
