package variant

import (
	"bytes"
	"math"
	"math/big"
	"testing"
	"time"
)

func roundTrip(t *testing.T, v any) []byte {
	t.Helper()
	enc, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode(%v): %v", v, err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	reenc, err := Encode(dec)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(enc, reenc) {
		t.Fatalf("re-encode mismatch: %x != %x", enc, reenc)
	}
	return enc
}

func TestScalarRoundTrip(t *testing.T) {
	cases := []any{
		nil, true, false,
		int64(0), int64(127), int64(-128), int64(128), int64(-32768),
		int64(40000), int64(math.MaxInt32 + 1),
		3.14159, -0.0,
		"hello", Binary{1, 2, 3},
	}
	for _, c := range cases {
		roundTrip(t, c)
	}
}

func TestSmallestIntWidth(t *testing.T) {
	small, _ := Encode(int64(5))
	big8, _ := Encode(int64(500))
	if len(small) >= len(big8) {
		t.Fatalf("expected smaller encoding for small int")
	}
	if tag(small[2]) != tagInt8 {
		t.Fatalf("expected int8 tag, got %d", small[2])
	}
	if tag(big8[2]) != tagInt16 {
		t.Fatalf("expected int16 tag, got %d", big8[2])
	}
}

func TestBigInt(t *testing.T) {
	bi := new(big.Int)
	bi.SetString("123456789012345678901234567890", 10)
	roundTrip(t, bi)
	neg := new(big.Int).Neg(bi)
	roundTrip(t, neg)
}

func TestDateRoundTrip(t *testing.T) {
	d := Date{time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)}
	roundTrip(t, d)
}

func TestArrayAndObjectOrderPreserved(t *testing.T) {
	obj := NewObject()
	obj.Set("z", 1)
	obj.Set("a", 2)
	obj.Set("m", 3)

	enc, err := Encode(obj)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	got := dec.(*Object)
	want := []string{"z", "a", "m"}
	if len(got.Keys()) != len(want) {
		t.Fatalf("key count mismatch")
	}
	for i, k := range want {
		if got.Keys()[i] != k {
			t.Fatalf("order mismatch at %d: got %s want %s", i, got.Keys()[i], k)
		}
	}

	roundTrip(t, []any{1, "two", nil, true})
}

func TestRejectsNaNAndInf(t *testing.T) {
	if _, err := Encode(math.NaN()); err == nil {
		t.Fatal("expected error encoding NaN")
	}
	if _, err := Encode(math.Inf(1)); err == nil {
		t.Fatal("expected error encoding +Inf")
	}
	if IsEncodable(math.NaN()) {
		t.Fatal("IsEncodable should reject NaN")
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte{0x00, 0x01, 0x00}); err == nil {
		t.Fatal("expected bad magic error")
	} else if de, ok := err.(*DecodeError); !ok || de.Kind != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}

	if _, err := Decode([]byte{magicByte, 0x02, 0x00}); err == nil {
		t.Fatal("expected bad version error")
	} else if de, ok := err.(*DecodeError); !ok || de.Kind != ErrBadVersion {
		t.Fatalf("expected ErrBadVersion, got %v", err)
	}

	if _, err := Decode([]byte{magicByte, versionByte}); err == nil {
		t.Fatal("expected truncated error")
	}

	if _, err := Decode([]byte{magicByte, versionByte, 0xFF}); err == nil {
		t.Fatal("expected unknown type error")
	} else if de, ok := err.(*DecodeError); !ok || de.Kind != ErrUnknownType {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestShredMerge(t *testing.T) {
	obj := NewObject()
	obj.Set("name", "Alice")
	obj.Set("age", int64(30))
	obj.Set("bio", "long text")

	shredded, remaining := Shred(obj, []string{"name", "age"})
	if shredded.Len() != 2 || remaining.Len() != 1 {
		t.Fatalf("unexpected shred sizes: %d/%d", shredded.Len(), remaining.Len())
	}
	merged := Merge(shredded, remaining)
	if merged.Len() != 3 {
		t.Fatalf("merge should restore all fields, got %d", merged.Len())
	}

	// shredded wins on conflict
	shredded2 := NewObject()
	shredded2.Set("name", "Bob")
	remaining2 := NewObject()
	remaining2.Set("name", "Alice")
	remaining2.Set("age", int64(1))
	merged2 := Merge(shredded2, remaining2)
	v, _ := merged2.Get("name")
	if v != "Bob" {
		t.Fatalf("expected shredded value to win, got %v", v)
	}
}
