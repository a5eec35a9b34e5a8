package logix

import (
	"testing"

	"warlink/ciperr"
)

// Scenario §8.2: a 500-element write issues exactly two services, 490 then 10.
func TestPlanAdaptiveWriteNoShrink(t *testing.T) {
	var calls []int
	err := planAdaptiveWrite(500, writeArrayStartChunk, func(offset, chunkLen int) error {
		calls = append(calls, chunkLen)
		return nil
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{490, 10}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls %v, want %v", len(calls), calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: chunk %d, want %d", i, calls[i], want[i])
		}
	}
}

// Scenario §8.3: a mock that rejects any chunk over 200 elements with code 3
// eventually succeeds, shrinking 490 -> fail, 245 -> fail, 122 -> ok x4, 12 -> ok.
func TestPlanAdaptiveWriteShrink(t *testing.T) {
	var attempts []int
	err := planAdaptiveWrite(500, writeArrayStartChunk, func(offset, chunkLen int) error {
		attempts = append(attempts, chunkLen)
		if chunkLen > 200 {
			return &ciperr.EncapsulationError{Code: 3}
		}
		return nil
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{490, 245, 122, 122, 122, 122, 12}
	if len(attempts) != len(want) {
		t.Fatalf("got %d attempts %v, want %v", len(attempts), attempts, want)
	}
	for i := range want {
		if attempts[i] != want[i] {
			t.Errorf("attempt %d: chunk %d, want %d", i, attempts[i], want[i])
		}
	}
}

// Property §8.5: given a mock transport rejecting writes above size K with
// encapsulation code 3, convergence happens within ceil(log2(490/K))+1
// transport attempts for the first chunk, and later chunks never exceed K.
func TestAdaptiveShrinkConvergenceBound(t *testing.T) {
	const k = 30
	var sizes []int
	err := planAdaptiveWrite(1000, writeArrayStartChunk, func(offset, chunkLen int) error {
		sizes = append(sizes, chunkLen)
		if chunkLen > k {
			return &ciperr.EncapsulationError{Code: 101}
		}
		return nil
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Find how many attempts the first successful chunk took.
	firstChunkAttempts := 0
	for _, s := range sizes {
		firstChunkAttempts++
		if s <= k {
			break
		}
	}
	maxAttempts := 0
	for n := writeArrayStartChunk; n > k; n /= 2 {
		maxAttempts++
	}
	maxAttempts++ // the final successful attempt
	if firstChunkAttempts > maxAttempts {
		t.Errorf("first chunk took %d attempts, want <= %d", firstChunkAttempts, maxAttempts)
	}
	for i, s := range sizes {
		if i > 0 && s > k && sizes[i-1] <= k {
			t.Errorf("chunk at index %d exceeded sticky ceiling %d after a prior success", i, k)
		}
	}
}

func TestPlanAdaptiveWriteSurfacesOtherErrors(t *testing.T) {
	err := planAdaptiveWrite(10, writeArrayStartChunk, func(offset, chunkLen int) error {
		return &ciperr.EncapsulationError{Code: 7}
	}, 0)
	if err == nil {
		t.Fatal("expected error for non-retryable encapsulation code")
	}
}
