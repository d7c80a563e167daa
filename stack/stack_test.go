package stack

import (
	"testing"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/config"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
)

func TestPickDefaultsTo16KiB(t *testing.T) {
	ms := firmware.NewSimulated(16*firmware.PageSize, firmware.PlatformUEFI)
	cfg := config.New()

	top, err := Pick(cfg, cfg.Global, ms)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}

	mm, _ := ms.GetMemoryMap()
	var stackEntry firmware.MemoryMapEntry
	for _, e := range mm.Entries {
		if e.Type == uint32(firmware.MemoryTypeKernelStack) {
			stackEntry = e
		}
	}
	if stackEntry.SizeInBytes != firmware.PageSize*4 {
		t.Fatalf("16KiB should round up to 4 pages, got %d bytes", stackEntry.SizeInBytes)
	}
	if top != stackEntry.PhysicalAddress+stackEntry.SizeInBytes {
		t.Fatalf("expected top-of-stack to be base+size, got %#x", top)
	}
}

func TestPickFixedAddress(t *testing.T) {
	ms := firmware.NewSimulated(64*firmware.PageSize, firmware.PlatformUEFI)
	cfg, err := config.ParseJSON([]byte(`{"stack": {"allocate-at": 8192, "size": 32768}}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	top, err := Pick(cfg, cfg.Global, ms)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if want := uint64(8192 + 8*firmware.PageSize); top != want {
		t.Fatalf("expected top %#x, got %#x", want, top)
	}
}

func TestPickRejectsInvalidStringValue(t *testing.T) {
	ms := firmware.NewSimulated(16*firmware.PageSize, firmware.PlatformUEFI)
	cfg, err := config.ParseJSON([]byte(`{"stack": "bogus"}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	if _, err := Pick(cfg, cfg.Global, ms); err == nil {
		t.Fatal("expected an invalid \"stack\" string to error")
	}
}
