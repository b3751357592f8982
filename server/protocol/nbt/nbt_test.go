package nbt

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

// bigtest builds the well known bigtest.nbt fixture in memory.
func bigtest() *Compound {
	ham := NewCompound()
	ham.Put("name", String("Hampus"))
	ham.Put("value", Float(0.75))
	egg := NewCompound()
	egg.Put("name", String("Eggbert"))
	egg.Put("value", Float(0.5))
	nested := NewCompound()
	nested.Put("ham", ham)
	nested.Put("egg", egg)

	listed := make([]Value, 2)
	for i := range listed {
		c := NewCompound()
		c.Put("created-on", Long(1264099775885))
		c.Put("name", String("Compound tag #"+string(rune('0'+i))))
		listed[i] = c
	}

	arr := make(ByteArray, 1000)
	for n := range arr {
		arr[n] = byte((n*n*255 + n*7) % 100)
	}

	root := NewCompound()
	root.Put("longTest", Long(math.MaxInt64))
	root.Put("shortTest", Short(math.MaxInt16))
	root.Put("stringTest", String("HELLO WORLD THIS IS A TEST STRING ÅÄÖ!"))
	root.Put("floatTest", Float(0.49823147058486938))
	root.Put("intTest", Int(math.MaxInt32))
	root.Put("nested compound test", nested)
	root.Put("listTest (long)", ListOf(Long(11), Long(12), Long(13), Long(14), Long(15)))
	root.Put("listTest (compound)", ListOf(listed...))
	root.Put("byteTest", Byte(127))
	root.Put("byteArrayTest (the first 1000 values of (n*n*255+n*7)%100, starting with n=0 (0, 62, 34, 16, 8, ...))", arr)
	root.Put("doubleTest", Double(0.49312871321823148))
	return root
}

func TestBigTestRoundTrip(t *testing.T) {
	encoded := AppendNamed(nil, "Level", bigtest())

	name, root, err := Decode(encoded)
	if err != nil {
		t.Fatalf("failed decoding: %v", err)
	}
	if name != "Level" {
		t.Fatalf("root name = %q, want Level", name)
	}
	if v, ok := root.Long("longTest"); !ok || v != math.MaxInt64 {
		t.Fatalf("longTest = %v, %v", v, ok)
	}
	if v, ok := root.String("stringTest"); !ok || v != "HELLO WORLD THIS IS A TEST STRING ÅÄÖ!" {
		t.Fatalf("stringTest = %q, %v", v, ok)
	}
	nested, ok := root.Compound("nested compound test")
	if !ok {
		t.Fatalf("nested compound test missing")
	}
	ham, ok := nested.Compound("ham")
	if !ok {
		t.Fatalf("ham missing")
	}
	if v, ok := ham.Float("value"); !ok || v != 0.75 {
		t.Fatalf("ham value = %v, %v", v, ok)
	}
	longs, ok := root.List("listTest (long)")
	if !ok || longs.Type != TagLong || len(longs.Elems) != 5 || longs.Elems[4] != Long(15) {
		t.Fatalf("listTest (long) = %+v, %v", longs, ok)
	}
	arr, ok := root.ByteArray("byteArrayTest (the first 1000 values of (n*n*255+n*7)%100, starting with n=0 (0, 62, 34, 16, 8, ...))")
	if !ok || len(arr) != 1000 {
		t.Fatalf("byteArrayTest length = %v, %v", len(arr), ok)
	}
	for _, n := range []int{0, 1, 2, 3, 4, 999} {
		if want := byte((n*n*255 + n*7) % 100); arr[n] != want {
			t.Fatalf("byteArrayTest[%v] = %v, want %v", n, arr[n], want)
		}
	}

	again := AppendNamed(nil, name, root)
	if !bytes.Equal(encoded, again) {
		t.Fatalf("re-encoding changed the bytes: %v vs %v", len(encoded), len(again))
	}
}

func TestEmptyCompoundEncoding(t *testing.T) {
	got := AppendNamed(nil, "", NewCompound())
	want := []byte{TagCompound, 0, 0, TagEnd}
	if !bytes.Equal(got, want) {
		t.Fatalf("empty named compound = %#v, want %#v", got, want)
	}
}

func TestDecodeEmptyTree(t *testing.T) {
	name, root, err := Decode([]byte{TagEnd})
	if err != nil {
		t.Fatalf("failed decoding: %v", err)
	}
	if name != "" || root.Len() != 0 {
		t.Fatalf("decoded (%q, %v entries), want empty", name, root.Len())
	}
}

func TestDecodeRejectsNonCompoundRoot(t *testing.T) {
	if _, _, err := Decode([]byte{TagInt, 0, 0, 0, 0, 0, 7}); err == nil {
		t.Fatalf("expected error for int root")
	}
}

func TestCompoundKeysSortedAndUnique(t *testing.T) {
	c := NewCompound()
	for _, name := range []string{"zebra", "apple", "mango", "apple"} {
		c.Put(name, Int(1))
	}
	if c.Len() != 3 {
		t.Fatalf("compound holds %v entries, want 3", c.Len())
	}
	var names []string
	c.Range(func(name string, v Value) bool {
		names = append(names, name)
		return true
	})
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names out of order: %v", names)
		}
	}
	c.Put("mango", Int(9))
	if v, _ := c.Int("mango"); v != 9 {
		t.Fatalf("mango = %v after replacement, want 9", v)
	}
	if !c.Remove("mango") || c.Len() != 2 {
		t.Fatalf("remove failed, %v entries left", c.Len())
	}
}

func TestDecodeRejectsDuplicateKey(t *testing.T) {
	b := []byte{
		TagCompound, 0, 0,
		TagByte, 0, 1, 'a', 1,
		TagByte, 0, 1, 'a', 2,
		TagEnd,
	}
	if _, _, err := Decode(b); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("got error %v, want duplicate key", err)
	}
}

func TestDecodeRejectsDeepNesting(t *testing.T) {
	b := []byte{TagCompound, 0, 0}
	for i := 0; i < 600; i++ {
		b = append(b, TagCompound, 0, 0)
	}
	_, _, err := Decode(b)
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("got error %v, want ErrTooDeep", err)
	}
}

func TestDecodeRejectsOversizedTree(t *testing.T) {
	// A list of 300000 bytes accounts 8 bytes per element, blowing the 2 MiB
	// budget while staying within the input.
	b := []byte{TagCompound, 0, 0, TagList, 0, 1, 'l', TagByte}
	b = append(b, 0x00, 0x04, 0x93, 0xe0) // length 300000
	b = append(b, make([]byte, 300000)...)
	b = append(b, TagEnd)
	_, _, err := Decode(b)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("got error %v, want ErrTooLarge", err)
	}
}

func TestDecodeRejectsNonEmptyEndList(t *testing.T) {
	b := []byte{TagCompound, 0, 0, TagList, 0, 1, 'l', TagEnd, 0, 0, 0, 2, TagEnd}
	if _, _, err := Decode(b); err == nil {
		t.Fatalf("expected error for non-empty TAG_End list")
	}
}

func TestEmptyListKeepsElementType(t *testing.T) {
	root := NewCompound()
	root.Put("sections", List{Type: TagCompound})
	encoded := AppendNamed(nil, "", root)

	_, decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("failed decoding: %v", err)
	}
	l, ok := decoded.List("sections")
	if !ok || l.Type != TagCompound || len(l.Elems) != 0 {
		t.Fatalf("sections = %+v, %v", l, ok)
	}
	if again := AppendNamed(nil, "", decoded); !bytes.Equal(encoded, again) {
		t.Fatalf("re-encoding changed the bytes")
	}
}

func TestCESU8NulAndSupplementary(t *testing.T) {
	root := NewCompound()
	root.Put("nul", String("a\x00b"))
	root.Put("math", String("double-struck \U0001d538"))
	encoded := AppendNamed(nil, "", root)

	if !bytes.Contains(encoded, []byte{'a', 0xc0, 0x80, 'b'}) {
		t.Fatalf("NUL was not escaped")
	}
	if !bytes.Contains(encoded, []byte{0xed, 0xa0, 0xb5, 0xed, 0xb4, 0xb8}) {
		t.Fatalf("supplementary code point was not written as a surrogate pair")
	}

	_, decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("failed decoding: %v", err)
	}
	if v, _ := decoded.String("nul"); v != "a\x00b" {
		t.Fatalf("nul = %q", v)
	}
	if v, _ := decoded.String("math"); v != "double-struck \U0001d538" {
		t.Fatalf("math = %q", v)
	}
}

func TestCESU8PassesPlainUTF8(t *testing.T) {
	// Plain UTF-8 input, including four byte sequences, decodes unchanged.
	s := "emoji \U0001f600"
	b := []byte{TagCompound, 0, 0, TagString, 0, 1, 's', 0, byte(len(s))}
	b = append(b, s...)
	b = append(b, TagEnd)
	_, decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("failed decoding: %v", err)
	}
	if v, _ := decoded.String("s"); v != s {
		t.Fatalf("s = %q", v)
	}
}

func TestDecodeRejectsUnpairedSurrogate(t *testing.T) {
	b := []byte{TagCompound, 0, 0, TagString, 0, 1, 's', 0, 3, 0xed, 0xa0, 0xb5, TagEnd}
	if _, _, err := Decode(b); err == nil {
		t.Fatalf("expected error for unpaired surrogate half")
	}
}
