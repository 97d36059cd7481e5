package multiboot

import (
	"encoding/binary"
	"unsafe"
)

// InfoBuilder assembles a multiboot2 information block in memory. It allows
// hosted environments to hand boot information to the kernel without a boot
// loader.
type InfoBuilder struct {
	tags []byte
}

// AddCmdLine appends a boot command line tag.
func (b *InfoBuilder) AddCmdLine(cmdLine string) *InfoBuilder {
	return b.addTag(tagBootCmdLine, append([]byte(cmdLine), 0))
}

// AddBootLoaderName appends a boot loader name tag.
func (b *InfoBuilder) AddBootLoaderName(name string) *InfoBuilder {
	return b.addTag(tagBootLoaderName, append([]byte(name), 0))
}

// AddFramebuffer appends a framebuffer tag. The color info is only encoded
// for framebuffers of type FramebufferTypeRGB.
func (b *InfoBuilder) AddFramebuffer(fb FramebufferInfo, colorInfo FramebufferRGBColorInfo) *InfoBuilder {
	payload := make([]byte, 24, 30)
	binary.LittleEndian.PutUint64(payload[0:], fb.PhysAddr)
	binary.LittleEndian.PutUint32(payload[8:], fb.Pitch)
	binary.LittleEndian.PutUint32(payload[12:], fb.Width)
	binary.LittleEndian.PutUint32(payload[16:], fb.Height)
	payload[20] = fb.Bpp
	payload[21] = uint8(fb.Type)

	if fb.Type == FramebufferTypeRGB {
		payload = append(payload,
			colorInfo.RedPosition, colorInfo.RedMaskSize,
			colorInfo.GreenPosition, colorInfo.GreenMaskSize,
			colorInfo.BluePosition, colorInfo.BlueMaskSize,
		)
	}

	return b.addTag(tagFramebufferInfo, payload)
}

// Build returns the encoded information block terminated by an end tag. The
// returned slice is 8-byte aligned and its address can be passed to
// SetInfoPtr for as long as the slice is kept alive.
func (b *InfoBuilder) Build() []byte {
	end := make([]byte, 8)
	binary.LittleEndian.PutUint32(end[4:], 8)

	totalSize := 8 + len(b.tags) + len(end)

	words := make([]uint64, (totalSize+7)/8)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), totalSize)

	binary.LittleEndian.PutUint32(data[0:], uint32(totalSize))
	copy(data[8:], b.tags)
	copy(data[8+len(b.tags):], end)

	return data
}

func (b *InfoBuilder) addTag(t tagType, payload []byte) *InfoBuilder {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(t))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(8+len(payload)))

	b.tags = append(b.tags, hdr[:]...)
	b.tags = append(b.tags, payload...)

	// Tags are aligned at 8-byte aligned addresses
	for len(b.tags)%8 != 0 {
		b.tags = append(b.tags, 0)
	}

	return b
}
