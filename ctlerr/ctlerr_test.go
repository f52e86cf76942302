package ctlerr_test

import (
	"errors"
	"testing"

	"github.com/crocme10/ctl2mimir/ctlerr"
)

func TestNewCarriesKindAndDetails(t *testing.T) {
	err := ctlerr.New(ctlerr.Config, "could not get env var DATABASE_URL")
	if err.Kind() != ctlerr.Config {
		t.Fatalf("expected kind config, got %s", err.Kind())
	}
	if err.Error() != "config: could not get env var DATABASE_URL" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ctlerr.Wrap(ctlerr.Bus, cause, "could not connect publisher to 127.0.0.1:4222")

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to see through to the wrapped cause")
	}
}

func TestIsMatchesKindAcrossWrapping(t *testing.T) {
	err := ctlerr.Wrap(ctlerr.Store, errors.New("UNIQUE constraint failed"), "could not create index")

	if !ctlerr.Is(err, ctlerr.Store) {
		t.Fatal("expected Is to match the store kind")
	}
	if ctlerr.Is(err, ctlerr.Bus) {
		t.Fatal("expected Is not to match an unrelated kind")
	}
}

func TestIsFalseForForeignErrors(t *testing.T) {
	if ctlerr.Is(errors.New("plain error"), ctlerr.Misc) {
		t.Fatal("expected Is to return false for a non-ctlerr error")
	}
}
