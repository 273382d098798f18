package packet

// subscribeFlags is the reserved flag nibble of SUBSCRIBE.
const subscribeFlags = 0x02

// Subscription is one topic filter with its requested QoS.
type Subscription struct {
	Topic string
	QoS   byte
}

// SubscribePacket requests one or more subscriptions.
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

func (p *SubscribePacket) Encode() []byte {
	body := appendUint16(nil, p.PacketID)
	for _, s := range p.Subscriptions {
		body = appendString(body, s.Topic)
		body = append(body, s.QoS&0x03)
	}
	return frame(TypeSubscribe, subscribeFlags, body)
}

// DecodeSubscribe parses a SUBSCRIBE body. Pairs are read until the body is exhausted.
func DecodeSubscribe(body []byte) (*SubscribePacket, error) {
	r := newFieldReader(TypeSubscribe, body)
	p := &SubscribePacket{PacketID: r.uint16("packet id")}

	for r.err == nil && r.remaining() > 0 {
		topic := r.string("topic filter")
		qos := r.byte("requested qos")
		p.Subscriptions = append(p.Subscriptions, Subscription{Topic: topic, QoS: qos & 0x03})
	}

	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

// SubackPacket grants the subscriptions in order.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []byte
}

func (p *SubackPacket) Encode() []byte {
	body := appendUint16(nil, p.PacketID)
	body = append(body, p.ReturnCodes...)
	return frame(TypeSuback, 0, body)
}

// DecodeSuback parses a SUBACK body.
func DecodeSuback(body []byte) (*SubackPacket, error) {
	r := newFieldReader(TypeSuback, body)
	p := &SubackPacket{PacketID: r.uint16("packet id")}
	p.ReturnCodes = r.rest()
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

// Grant returns the SUBACK for p, echoing each requested QoS.
func (p *SubscribePacket) Grant() *SubackPacket {
	codes := make([]byte, len(p.Subscriptions))
	for i, s := range p.Subscriptions {
		codes[i] = s.QoS
	}
	return &SubackPacket{PacketID: p.PacketID, ReturnCodes: codes}
}
