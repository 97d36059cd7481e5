// Package multiboot parses the information block that a multiboot2 compliant
// boot loader passes to the kernel.
package multiboot

import (
	"strings"
	"unsafe"
)

var (
	infoData  uintptr
	cmdLineKV map[string]string
)

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
)

// info describes the multiboot info section header.
type info struct {
	// Total size of multiboot info section.
	totalSize uint32

	// Always set to zero; reserved for future use
	reserved uint32
}

// tagHeader describes the header the preceedes each tag.
type tagHeader struct {
	// The type of the tag
	tagType tagType

	// The size of the tag including the header but *not* including any
	// padding. Multiboot2 places each tag at an 8-byte aligned address.
	size uint32
}

// FramebufferType defines the type of the initialized framebuffer.
type FramebufferType uint8

const (
	// FramebufferTypeIndexed specifies a 256-color palette.
	FramebufferTypeIndexed FramebufferType = iota

	// FramebufferTypeRGB specifies direct RGB mode.
	FramebufferTypeRGB

	// FramebufferTypeEGA specifies EGA text mode.
	FramebufferTypeEGA
)

// FramebufferInfo provides information about the initialized framebuffer.
type FramebufferInfo struct {
	// The framebuffer physical address.
	PhysAddr uint64

	// Row pitch in bytes.
	Pitch uint32

	// Width and height in pixels (or characters if Type = FramebufferTypeEGA)
	Width, Height uint32

	// Bits per pixel (non EGA modes only).
	Bpp uint8

	// Framebuffer type.
	Type FramebufferType

	reserved uint16

	// The colorInfo data begins after the reserved block and has different
	// contents depending on the framebuffer type. This dummy field is used
	// for obtaining a pointer to the color info block data.
	colorInfo [0]byte
}

// RGBColorInfo returns the FramebufferRGBColorInfo for a RGB framebuffer.
func (i *FramebufferInfo) RGBColorInfo() *FramebufferRGBColorInfo {
	if i.Type != FramebufferTypeRGB {
		return nil
	}

	// The color info data begins after the reserved attribute. To access
	// it, a pointer is created to the dummy colorInfo attribute which
	// points to the color info data start.
	return (*FramebufferRGBColorInfo)(unsafe.Pointer(&i.colorInfo))
}

// FramebufferRGBColorInfo describes the order and width of each color component
// for a 15-, 16-, 24- or 32-bit framebuffer.
type FramebufferRGBColorInfo struct {
	// The position and width (in bits) of the red component.
	RedPosition uint8
	RedMaskSize uint8

	// The position and width (in bits) of the green component.
	GreenPosition uint8
	GreenMaskSize uint8

	// The position and width (in bits) of the blue component.
	BluePosition uint8
	BlueMaskSize uint8
}

// SetInfoPtr updates the internal multiboot information pointer to the given
// value. This function must be invoked before invoking any other function
// exported by this package.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
	cmdLineKV = nil
}

// GetFramebufferInfo returns information about the framebuffer initialized by the
// bootloader. This function returns nil if no framebuffer info is available.
func GetFramebufferInfo() *FramebufferInfo {
	var info *FramebufferInfo

	curPtr, size := findTagByType(tagFramebufferInfo)
	if size != 0 {
		info = (*FramebufferInfo)(unsafe.Pointer(curPtr))
	}

	return info
}

// GetBootLoaderName returns the name of the boot loader that started the
// kernel or an empty string if the boot loader did not provide one.
func GetBootLoaderName() string {
	curPtr, size := findTagByType(tagBootLoaderName)
	if size == 0 {
		return ""
	}

	return cString(curPtr, size)
}

// GetBootCmdLine returns the command line key-value pairs passed to the
// kernel. Each whitespace separated word of the form key=value is returned
// as a key-value pair; a word without a '=' maps to itself.
func GetBootCmdLine() map[string]string {
	if cmdLineKV != nil {
		return cmdLineKV
	}

	cmdLineKV = make(map[string]string)

	curPtr, size := findTagByType(tagBootCmdLine)
	if size != 0 {
		pairs := strings.Fields(cString(curPtr, size))
		for _, pair := range pairs {
			kv := strings.Split(pair, "=")
			switch len(kv) {
			case 2: // foo=bar
				cmdLineKV[kv[0]] = kv[1]
			case 1: // nofoo
				cmdLineKV[kv[0]] = kv[0]
			}
		}
	}

	return cmdLineKV
}

// cString returns a copy of the NULL-terminated string stored in a tag
// payload of the given size.
func cString(ptr uintptr, size uint32) string {
	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// findTagByType scans the multiboot info data looking for the start of of the
// specified type. It returns a pointer to the tag contents start offset and
// the content length exluding the tag header.
//
// If the tag is not present in the multiboot info, findTagSection will return
// back (0,0).
func findTagByType(tagType tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	var ptrTagHeader *tagHeader

	curPtr := infoData + 8
	for ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)); ptrTagHeader.tagType != tagMbSectionEnd; ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)) {
		if ptrTagHeader.tagType == tagType {
			return curPtr + 8, ptrTagHeader.size - 8
		}

		// Tags are aligned at 8-byte aligned addresses
		curPtr += uintptr(int32(ptrTagHeader.size+7) & ^7)
	}

	return 0, 0
}
