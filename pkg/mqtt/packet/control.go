package packet

// Packets without a body.
var (
	pingreq    = []byte{byte(TypePingreq) << 4, 0x00}
	pingresp   = []byte{byte(TypePingresp) << 4, 0x00}
	disconnect = []byte{byte(TypeDisconnect) << 4, 0x00}
)

// Pingreq returns the two byte PINGREQ.
func Pingreq() []byte { return append([]byte(nil), pingreq...) }

// Pingresp returns the two byte PINGRESP.
func Pingresp() []byte { return append([]byte(nil), pingresp...) }

// Disconnect returns the two byte DISCONNECT.
func Disconnect() []byte { return append([]byte(nil), disconnect...) }
