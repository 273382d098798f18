package packet

const (
	publishFlagDup    = 0x08
	publishFlagRetain = 0x01
	publishQoSShift   = 1
)

// PublishPacket carries an application message.
type PublishPacket struct {
	Topic    string
	QoS      byte
	Dup      bool
	Retain   bool
	PacketID uint16
	Payload  []byte
}

func (p *PublishPacket) flags() byte {
	f := (p.QoS & 0x03) << publishQoSShift
	if p.Dup {
		f |= publishFlagDup
	}
	if p.Retain {
		f |= publishFlagRetain
	}
	return f
}

// Encode returns the wire form of p. The packet id is only written for QoS > 0.
func (p *PublishPacket) Encode() []byte {
	body := make([]byte, 0, 2+len(p.Topic)+2+len(p.Payload))
	body = appendString(body, p.Topic)
	if p.QoS > 0 {
		body = appendUint16(body, p.PacketID)
	}
	body = append(body, p.Payload...)
	return frame(TypePublish, p.flags(), body)
}

// DecodePublish parses a PUBLISH using the flags from its fixed header.
// The payload aliases body.
func DecodePublish(flags byte, body []byte) (*PublishPacket, error) {
	p := &PublishPacket{
		QoS:    flags >> publishQoSShift & 0x03,
		Dup:    flags&publishFlagDup != 0,
		Retain: flags&publishFlagRetain != 0,
	}
	if p.QoS > 2 {
		return nil, &DecodeError{Type: TypePublish, Field: "qos", Err: ErrInvalidQoS}
	}

	r := newFieldReader(TypePublish, body)
	p.Topic = r.string("topic")
	if p.QoS > 0 {
		p.PacketID = r.uint16("packet id")
	}
	p.Payload = r.rest()

	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

// PubackPacket acknowledges a QoS 1 PUBLISH.
type PubackPacket struct {
	PacketID uint16
}

func (p *PubackPacket) Encode() []byte {
	return frame(TypePuback, 0, appendUint16(nil, p.PacketID))
}

// DecodePuback parses a PUBACK body.
func DecodePuback(body []byte) (*PubackPacket, error) {
	r := newFieldReader(TypePuback, body)
	id := r.uint16("packet id")
	if r.err != nil {
		return nil, r.err
	}
	return &PubackPacket{PacketID: id}, nil
}
