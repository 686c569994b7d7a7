package crypto

import (
	"strings"
	"testing"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()

	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(StablePrefix)) {
		t.Fatalf("encoded address %q missing prefix %q", encoded, StablePrefix)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("round trip mismatch: %s != %s", decoded, addr)
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-bech32"); err == nil {
		t.Fatal("garbage accepted")
	}
	if _, err := DecodeAddress("stb1qqqq"); err == nil {
		t.Fatal("truncated address accepted")
	}
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.PubKey().Address().Equal(key.PubKey().Address()) {
		t.Fatal("restored key derives a different address")
	}
}

func TestZeroAddress(t *testing.T) {
	var empty Address
	if !empty.IsZero() {
		t.Fatal("empty address not zero")
	}
	zero := NewAddress(StablePrefix, make([]byte, 20))
	if !zero.IsZero() {
		t.Fatal("all-zero address not zero")
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if key.PubKey().Address().IsZero() {
		t.Fatal("derived address reported zero")
	}
}
