package bootinfo

import (
	"encoding/binary"
	"testing"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/elfload"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/module"
)

func baseSpec() *Spec {
	return &Spec{
		BinInfo:  elfload.BinaryInfo{PhysicalBase: 0x100000, PhysicalCeiling: 0x200000, VirtualBase: 0xFFFFFFFF80100000},
		Platform: firmware.PlatformUEFI,
	}
}

func TestBuildProducesAlignedSizeAccountedArray(t *testing.T) {
	ms := firmware.NewSimulated(4096*firmware.PageSize, firmware.PlatformUEFI)
	spec := baseSpec()
	spec.Modules = []module.Module{{Name: "fs", PhysicalAddress: 0x300000, Length: 1234}}
	spec.CmdlinePresent = true
	spec.Cmdline = "quiet loglevel=3"

	res, err := Build(ms, spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.AttributeArrayAddress == 0 {
		t.Fatal("expected a nonzero attribute array address")
	}

	verifyArray(t, ms, res)
}

func TestBuildWithFramebufferAndNoModules(t *testing.T) {
	ms := firmware.NewSimulated(4096*firmware.PageSize, firmware.PlatformUEFI)
	spec := baseSpec()
	spec.FBPresent = true
	spec.FB = firmware.Framebuffer{PhysicalAddress: 0x400000, Width: 1920, Height: 1080, Pitch: 1920 * 4, BPP: 32}

	res, err := Build(ms, spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	verifyArray(t, ms, res)
}

// verifyArray walks the serialized buffer attribute-by-attribute,
// checking 8-byte alignment and the size-accounting invariant, and
// confirms the trailing MEMORY_MAP attribute includes an entry that
// covers the array's own allocation.
func verifyArray(t *testing.T, ms *firmware.Simulated, res Result) {
	t.Helper()

	mm, err := ms.GetMemoryMap()
	if err != nil {
		t.Fatalf("GetMemoryMap: %v", err)
	}

	var ownEntry *firmware.MemoryMapEntry
	for i := range mm.Entries {
		e := &mm.Entries[i]
		if e.PhysicalAddress == res.AttributeArrayAddress {
			ownEntry = e
		}
	}
	if ownEntry == nil {
		t.Fatal("expected an allocated memory-map entry at the attribute array's own address")
	}

	data, err := ms.ReadAt(res.AttributeArrayAddress, ownEntry.SizeInBytes)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}

	declaredCount := binary.LittleEndian.Uint32(data[4:8])

	offset := 8
	var sum uint32
	var sawMemoryMap bool
	var count uint32

	for offset < len(data) {
		if offset%8 != 0 {
			t.Fatalf("attribute at offset %d is not 8-byte aligned", offset)
		}

		typ := binary.LittleEndian.Uint32(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		if size == 0 {
			t.Fatalf("attribute at offset %d has zero size_in_bytes", offset)
		}

		sum += size
		count++

		if typ == AttributeMemoryMap {
			sawMemoryMap = true
			// data spans the whole page-rounded allocation; the array ends
			// with MEMORY_MAP and the slack after it is never written.
			end := offset + int(size)
			for i, b := range data[end:] {
				if b != 0 {
					t.Fatalf("MEMORY_MAP attribute must be last, but byte %d after its end at %d is nonzero", end+i, end)
				}
			}
			data = data[:end]

			foundSelf := false
			for e := offset + 8; e+24 <= offset+int(size); e += 24 {
				addr := binary.LittleEndian.Uint64(data[e : e+8])
				sz := binary.LittleEndian.Uint64(data[e+8 : e+16])
				typ := binary.LittleEndian.Uint32(data[e+16 : e+20])
				if addr == res.AttributeArrayAddress && sz == ownEntry.SizeInBytes {
					foundSelf = true
					if typ != uint32(firmware.MemoryTypeLoaderReclaimable) {
						t.Fatalf("self-describing entry has type %d, want LoaderReclaimable", typ)
					}
				}
			}
			if !foundSelf {
				t.Fatal("MEMORY_MAP attribute does not contain an entry covering its own buffer")
			}
		}

		offset += int(size)
	}

	if !sawMemoryMap {
		t.Fatal("expected a trailing MEMORY_MAP attribute")
	}
	if sum+8 != uint32(len(data)) {
		t.Fatalf("size accounting invariant violated: sum(sizes)+8=%d, total=%d", sum+8, len(data))
	}
	if count != declaredCount {
		t.Fatalf("attribute_count=%d does not match %d attributes actually emitted", declaredCount, count)
	}
}
