package packet

// CONNECT flag bits.
const (
	connectFlagUsername     = 0x80
	connectFlagPassword     = 0x40
	connectFlagWillRetain   = 0x20
	connectFlagWillQoSShift = 3
	connectFlagWill         = 0x04
	connectFlagCleanSession = 0x02
)

// CONNACK return codes used by printers.
const (
	ConnackAccepted      byte = 0x00
	ConnackNotAuthorized byte = 0x05
)

// ConnectPacket opens a session.
type ConnectPacket struct {
	ProtocolName  string
	ProtocolLevel byte
	CleanSession  bool
	KeepAlive     uint16
	ClientID      string

	WillFlag    bool
	WillQoS     byte
	WillRetain  bool
	WillTopic   string
	WillMessage []byte

	UsernameFlag bool
	Username     string
	PasswordFlag bool
	Password     string
}

// NewConnect returns a CONNECT for MQTT 3.1.1 with the given credentials.
func NewConnect(clientID, username, password string) *ConnectPacket {
	return &ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		KeepAlive:     60,
		ClientID:      clientID,
		UsernameFlag:  username != "",
		Username:      username,
		PasswordFlag:  password != "",
		Password:      password,
	}
}

func (p *ConnectPacket) flags() byte {
	var f byte
	if p.UsernameFlag {
		f |= connectFlagUsername
	}
	if p.PasswordFlag {
		f |= connectFlagPassword
	}
	if p.WillFlag {
		f |= connectFlagWill | (p.WillQoS&0x03)<<connectFlagWillQoSShift
		if p.WillRetain {
			f |= connectFlagWillRetain
		}
	}
	if p.CleanSession {
		f |= connectFlagCleanSession
	}
	return f
}

// Encode returns the wire form of p.
func (p *ConnectPacket) Encode() []byte {
	body := appendString(nil, p.ProtocolName)
	body = append(body, p.ProtocolLevel, p.flags())
	body = appendUint16(body, p.KeepAlive)
	body = appendString(body, p.ClientID)
	if p.WillFlag {
		body = appendString(body, p.WillTopic)
		body = appendBytes(body, p.WillMessage)
	}
	if p.UsernameFlag {
		body = appendString(body, p.Username)
	}
	if p.PasswordFlag {
		body = appendString(body, p.Password)
	}
	return frame(TypeConnect, 0, body)
}

// DecodeConnect parses a CONNECT body.
func DecodeConnect(body []byte) (*ConnectPacket, error) {
	r := newFieldReader(TypeConnect, body)

	p := &ConnectPacket{}
	p.ProtocolName = r.string("protocol name")
	p.ProtocolLevel = r.byte("protocol level")
	flags := r.byte("connect flags")
	p.KeepAlive = r.uint16("keep alive")
	p.ClientID = r.string("client id")

	p.CleanSession = flags&connectFlagCleanSession != 0
	p.WillFlag = flags&connectFlagWill != 0
	if p.WillFlag {
		p.WillQoS = flags >> connectFlagWillQoSShift & 0x03
		p.WillRetain = flags&connectFlagWillRetain != 0
		p.WillTopic = r.string("will topic")
		p.WillMessage = r.bytes("will message")
	}
	p.UsernameFlag = flags&connectFlagUsername != 0
	if p.UsernameFlag {
		p.Username = r.string("username")
	}
	p.PasswordFlag = flags&connectFlagPassword != 0
	if p.PasswordFlag {
		p.Password = r.string("password")
	}

	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

// ConnackPacket answers a CONNECT.
type ConnackPacket struct {
	SessionPresent bool
	ReturnCode     byte
}

// Encode returns the fixed four byte CONNACK.
func (p *ConnackPacket) Encode() []byte {
	var ack byte
	if p.SessionPresent {
		ack = 0x01
	}
	return frame(TypeConnack, 0, []byte{ack, p.ReturnCode})
}

// DecodeConnack parses a CONNACK body.
func DecodeConnack(body []byte) (*ConnackPacket, error) {
	r := newFieldReader(TypeConnack, body)
	ack := r.byte("acknowledge flags")
	code := r.byte("return code")
	if r.err != nil {
		return nil, r.err
	}
	return &ConnackPacket{SessionPresent: ack&0x01 != 0, ReturnCode: code}, nil
}
