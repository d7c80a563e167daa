package filesystem

import (
	"testing"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/fullpath"
)

func TestRegisterLookupOpen(t *testing.T) {
	r := NewRegistry()
	r.Register("raw:0", MemFS{"boot/kernel.elf": []byte("ELF")})

	fp := fullpath.FullPath{PartitionIDType: fullpath.Raw, PartitionIndex: 0, PathWithinPartition: "/boot/kernel.elf"}

	data, err := ReadFile(r, fp)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "ELF" {
		t.Fatalf("unexpected contents: %q", data)
	}
}

func TestLookupUnknownPartition(t *testing.T) {
	r := NewRegistry()
	fp := fullpath.FullPath{PartitionIDType: fullpath.Raw, PartitionIndex: 7}

	if _, err := r.Lookup(fp); err == nil {
		t.Fatal("expected error for unregistered partition")
	}
}

func TestFindConfig(t *testing.T) {
	r := NewRegistry()
	r.Register("raw:0", MemFS{"other.txt": []byte("x")})
	r.Register("raw:1", MemFS{"boot/hyper.cfg": []byte("{}")})

	data, key, foundPath, err := FindConfig(r, []string{`\hyper.cfg`, `\boot\hyper.cfg`})
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if key != "raw:1" || foundPath != `\boot\hyper.cfg` {
		t.Fatalf("unexpected hit: key=%q path=%q", key, foundPath)
	}
	if string(data) != "{}" {
		t.Fatalf("unexpected contents: %q", data)
	}
}
