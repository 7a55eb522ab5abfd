package format

// HexOffset returns the character offset of byte i in the hex view.
func HexOffset(i int) int {
	return i * stride
}

// ByteAt returns the index of the byte whose hex pair or trailing separator
// covers character offset off, or -1 for a negative offset.
func ByteAt(off int) int {
	if off < 0 {
		return -1
	}
	return off / stride
}

// HexSpan maps a selection of charLen characters starting at charStart in the
// payload view onto the hex view of the whole datagram. payloadOffset is the
// position of the payload inside the datagram. The returned span covers the
// selected pairs and the separators between them.
func HexSpan(payloadOffset, charStart, charLen int) (start, length int) {
	if payloadOffset < 0 || charStart < 0 || charLen <= 0 {
		return 0, 0
	}
	return HexOffset(payloadOffset + charStart), charLen*stride - 1
}
