package idhash

import "testing"

func TestComputeSignerHash(t *testing.T) {
	// echo -n "creator|0" | sha256sum
	const want = "6e85dd1e0bc99a5a0c8ebfd7b3cec0fd9f63eacf6839f331844ddc381637b239"

	got := ComputeSignerHash("creator", 0)
	if got != want {
		t.Errorf("ComputeSignerHash() = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("ComputeSignerHash() length = %d, want 64", len(got))
	}
}

func TestComputeSignerHash_DifferentInputs(t *testing.T) {
	base := ComputeSignerHash("creator", 1)

	if base != ComputeSignerHash("creator", 1) {
		t.Error("same inputs should produce same hash")
	}
	if base == ComputeSignerHash("other", 1) {
		t.Error("different creator should produce different hash")
	}
	if base == ComputeSignerHash("creator", 2) {
		t.Error("different nonce should produce different hash")
	}
	// The separator keeps (creator, nonce) pairs unambiguous.
	if ComputeSignerHash("creator1", 1) == ComputeSignerHash("creator", 11) {
		t.Error("separator should disambiguate creator and nonce")
	}
}
