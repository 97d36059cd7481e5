package keyboard

// Scan code set 1 values for the keys that the decoder treats specially.
const (
	scEscape     = 0x01
	scBackspace  = 0x0e
	scTab        = 0x0f
	scEnter      = 0x1c
	scLeftShift  = 0x2a
	scRightShift = 0x36
	scCapsLock   = 0x3a
	scSlash      = 0x35

	// scExtended prefixes the codes of the keys added by the enhanced
	// 101-key keyboard.
	scExtended = 0xe0

	// scRelease is set in the code sent when a key is released.
	scRelease = 0x80
)

// Control characters produced by the decoder.
const (
	// Escape is produced by the Esc key.
	Escape = '\x1b'

	// Backspace is produced by the Backspace key.
	Backspace = '\b'

	// Enter is produced by both Enter keys.
	Enter = '\r'
)

// US QWERTY layout indexed by set 1 make code.
var (
	plainKeymap = [0x3a]rune{
		0, Escape, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '=', Backspace,
		'\t', 'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '[', ']', Enter,
		0, 'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'', '`',
		0, '\\', 'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/', 0,
		'*', 0, ' ',
	}

	shiftKeymap = [0x3a]rune{
		0, Escape, '!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '_', '+', Backspace,
		'\t', 'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P', '{', '}', Enter,
		0, 'A', 'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', ':', '"', '~',
		0, '|', 'Z', 'X', 'C', 'V', 'B', 'N', 'M', '<', '>', '?', 0,
		'*', 0, ' ',
	}
)

// Decoder translates a stream of scan code set 1 bytes into characters. It
// tracks the shift and caps lock state across calls.
type Decoder struct {
	leftShift  bool
	rightShift bool
	capsLock   bool
	extended   bool
}

// Feed processes the next byte read from the keyboard controller and returns
// the character produced by it, if any. Key releases, modifier keys and keys
// without a character mapping produce no character.
func (d *Decoder) Feed(code uint8) (rune, bool) {
	if code == scExtended {
		d.extended = true
		return 0, false
	}

	extended := d.extended
	d.extended = false

	released := code&scRelease != 0
	code &^= scRelease

	if extended {
		// Only the keypad Enter and '/' keys have a character.
		if released {
			return 0, false
		}

		switch code {
		case scEnter:
			return Enter, true
		case scSlash:
			return '/', true
		}
		return 0, false
	}

	switch code {
	case scLeftShift:
		d.leftShift = !released
		return 0, false
	case scRightShift:
		d.rightShift = !released
		return 0, false
	case scCapsLock:
		if !released {
			d.capsLock = !d.capsLock
		}
		return 0, false
	}

	if released || int(code) >= len(plainKeymap) {
		return 0, false
	}

	r := plainKeymap[code]
	shifted := d.leftShift || d.rightShift
	if d.capsLock && r >= 'a' && r <= 'z' {
		shifted = !shifted
	}

	if shifted {
		r = shiftKeymap[code]
	}

	return r, r != 0
}

// Encode returns the scan code sequence that a keyboard sends when r is
// typed: the make and break codes of the key, wrapped in the left shift make
// and break codes if the character requires shift. It returns false if no
// key produces r.
func Encode(r rune) ([]uint8, bool) {
	if r == 0 {
		return nil, false
	}

	for code, plain := range plainKeymap {
		if plain == r {
			return []uint8{uint8(code), uint8(code) | scRelease}, true
		}
	}

	for code, shifted := range shiftKeymap {
		if shifted == r {
			return []uint8{scLeftShift, uint8(code), uint8(code) | scRelease, scLeftShift | scRelease}, true
		}
	}

	return nil, false
}
