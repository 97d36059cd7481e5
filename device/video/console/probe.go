package console

import (
	"fbkernel/device"
	"fbkernel/multiboot"
	"unsafe"
)

var (
	getFramebufferInfoFn = multiboot.GetFramebufferInfo
	getBootCmdLineFn     = multiboot.GetBootCmdLine
	mapFramebufferFn     = mapFramebuffer
)

// GeometryFromFramebufferInfo converts the framebuffer description provided
// by the boot loader into a console Geometry. It returns false if the
// framebuffer uses a layout that the console cannot render to.
func GeometryFromFramebufferInfo(info *multiboot.FramebufferInfo) (Geometry, bool) {
	geom := Geometry{
		Width:         int(info.Width),
		Height:        int(info.Height),
		Pitch:         int(info.Pitch),
		BytesPerPixel: (int(info.Bpp) + 7) / 8,
	}

	switch info.Type {
	case multiboot.FramebufferTypeIndexed:
		geom.Format = PixelFormatU8
	case multiboot.FramebufferTypeRGB:
		// Pixels are stored little-endian so the component at bit
		// position 0 is the first byte in memory.
		colorInfo := info.RGBColorInfo()
		switch {
		case colorInfo.RedPosition == 0:
			geom.Format = PixelFormatRGB
		case colorInfo.BluePosition == 0:
			geom.Format = PixelFormatBGR
		default:
			return geom, false
		}
	default:
		return geom, false
	}

	return geom, true
}

// mapFramebuffer returns a slice covering size bytes of video memory starting
// at physAddr. The kernel runs with video memory identity-mapped.
func mapFramebuffer(physAddr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(physAddr)), size)
}

// probeForFramebufferConsole checks for the presence of a linear framebuffer
// set up by the boot loader.
func probeForFramebufferConsole() device.Driver {
	fbInfo := getFramebufferInfoFn()
	if fbInfo == nil || fbInfo.PhysAddr == 0 {
		return nil
	}

	geom, ok := GeometryFromFramebufferInfo(fbInfo)
	if !ok {
		return nil
	}

	return NewDriver(mapFramebufferFn(uintptr(fbInfo.PhysAddr), geom.Height*geom.Pitch), geom)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderEarly,
		Probe: probeForFramebufferConsole,
	})
}
