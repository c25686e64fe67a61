package analysis

import (
	"context"
	"testing"
)

func TestDescribeWithoutCredentialsFallsBack(t *testing.T) {
	c := NewClient("", "", "gpt-4o-mini")

	got, err := c.Describe(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("Describe must not fail past its boundary, got %v", err)
	}
	if got != Fallback {
		t.Errorf("Describe = %q, want fallback %q", got, Fallback)
	}
}

func TestDescribeUnreachableEndpointFallsBack(t *testing.T) {
	// A configured key with a dead endpoint: the request errors, the
	// caller still gets the fallback annotation.
	c := NewClient("test-key", "http://127.0.0.1:1/v1", "gpt-4o-mini")

	got, err := c.Describe(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("Describe must not fail past its boundary, got %v", err)
	}
	if got != Fallback {
		t.Errorf("Describe = %q, want fallback %q", got, Fallback)
	}
}
