package pdf

import "testing"

func TestParseToUnicodeCMapBfChar(t *testing.T) {
	data := []byte(`/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
2 beginbfchar
<0041> <0041>
<0042> <0065>
endbfchar
endcmap`)

	cmap := ParseToUnicodeCMap(data)
	if cmap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cmap.Len())
	}

	got, ok := cmap.Lookup(0x41)
	if !ok || got != "A" {
		t.Errorf("Lookup(0x41) = %q, %v; want A, true", got, ok)
	}
	got, ok = cmap.Lookup(0x42)
	if !ok || got != "e" {
		t.Errorf("Lookup(0x42) = %q, %v; want e, true", got, ok)
	}
	if _, ok := cmap.Lookup(0x43); ok {
		t.Error("Lookup(0x43) matched an unmapped code")
	}
}

func TestParseToUnicodeCMapBfRange(t *testing.T) {
	data := []byte(`1 beginbfrange
<0003> <0005> <0041>
endbfrange`)

	cmap := ParseToUnicodeCMap(data)
	for code, want := range map[uint16]string{3: "A", 4: "B", 5: "C"} {
		got, ok := cmap.Lookup(code)
		if !ok || got != want {
			t.Errorf("Lookup(%#x) = %q, %v; want %q, true", code, got, ok, want)
		}
	}
	if _, ok := cmap.Lookup(6); ok {
		t.Error("Lookup(6) matched outside the range")
	}
}

func TestParseToUnicodeCMapSurrogatePair(t *testing.T) {
	data := []byte(`1 beginbfchar
<0010> <D83DDE00>
endbfchar`)

	cmap := ParseToUnicodeCMap(data)
	got, ok := cmap.Lookup(0x10)
	if !ok || got != "\U0001F600" {
		t.Errorf("Lookup(0x10) = %q, %v; want emoji, true", got, ok)
	}
}

func TestParseToUnicodeCMapGarbage(t *testing.T) {
	cmap := ParseToUnicodeCMap([]byte("not a cmap at all"))
	if cmap.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cmap.Len())
	}
	if _, ok := cmap.Lookup(0x41); ok {
		t.Error("Lookup on empty cmap matched")
	}
}
