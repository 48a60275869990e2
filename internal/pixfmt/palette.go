package pixfmt

// ColourMap is the indexed-colour palette a server installs through
// SetColourMapEntries when the negotiated pixel format is not true-colour.
// Entries are stored pre-converted to canonical RGBA; a pixel value is
// then an index into the map rather than packed channel data.
type ColourMap struct {
	entries [][4]byte
}

// Set installs len(colours) entries starting at firstColour. Channel
// intensities arrive as 16-bit values on the wire and are narrowed to
// 8 bits here.
func (m *ColourMap) Set(firstColour int, colours [][3]uint16) {
	if need := firstColour + len(colours); need > len(m.entries) {
		grown := make([][4]byte, need)
		n := copy(grown, m.entries)
		for i := n; i < need; i++ {
			grown[i] = [4]byte{0, 0, 0, 255}
		}
		m.entries = grown
	}
	for i, c := range colours {
		m.entries[firstColour+i] = [4]byte{
			uint8(c[0] >> 8),
			uint8(c[1] >> 8),
			uint8(c[2] >> 8),
			255,
		}
	}
}

// Lookup returns the RGBA for a pixel index. Indices the server never
// installed resolve to opaque black.
func (m *ColourMap) Lookup(idx uint32) [4]byte {
	if int(idx) < len(m.entries) {
		return m.entries[idx]
	}
	return [4]byte{0, 0, 0, 255}
}
