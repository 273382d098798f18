package packet

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRemainingLength(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{321, []byte{0xC1, 0x02}},
		{16_383, []byte{0xFF, 0x7F}},
		{16_384, []byte{0x80, 0x80, 0x01}},
		{2_097_151, []byte{0xFF, 0xFF, 0x7F}},
		{2_097_152, []byte{0x80, 0x80, 0x80, 0x01}},
		{MaxRemainingLength, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		got := AppendRemainingLength(nil, tt.n)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendRemainingLength(%d) = % x, want % x", tt.n, got, tt.want)
		}

		h, err := ReadFixedHeader(bytes.NewReader(append([]byte{0x30}, got...)))
		if err != nil {
			t.Fatalf("ReadFixedHeader(%d): %v", tt.n, err)
		}
		if h.Type != TypePublish || h.RemainingLength != tt.n {
			t.Errorf("ReadFixedHeader(%d) = %v", tt.n, h)
		}
	}
}

func TestReadFixedHeaderMalformedLength(t *testing.T) {
	_, err := ReadFixedHeader(bytes.NewReader([]byte{0x30, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}))
	if !errors.Is(err, ErrMalformedLength) || !IsDecodeError(err) {
		t.Fatalf("got %v, want DecodeError wrapping ErrMalformedLength", err)
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		max     int
		wantEOF bool
		wantErr error
	}{
		{name: "clean eof", input: nil, wantEOF: true},
		{name: "eof inside length", input: []byte{0x30, 0x80}, wantErr: io.ErrUnexpectedEOF},
		{name: "truncated body", input: []byte{0x30, 0x05, 0x00, 0x01}, wantErr: io.ErrUnexpectedEOF},
		{name: "too large", input: []byte{0x30, 0x80, 0x01}, max: 64, wantErr: ErrPacketTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewReader(bytes.NewReader(tt.input), tt.max).ReadPacket()
			if tt.wantEOF {
				if err != io.EOF {
					t.Fatalf("got %v, want io.EOF", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !IsDecodeError(err) {
				t.Fatalf("got %v, want DecodeError wrapping %v", err, tt.wantErr)
			}
		})
	}
}

func TestReaderSequence(t *testing.T) {
	var stream []byte
	stream = append(stream, NewConnect("c1", "bblp", "test1234").Encode()...)
	stream = append(stream, Pingreq()...)
	stream = append(stream, (&PublishPacket{Topic: "device/SN/request", Payload: []byte("{}")}).Encode()...)
	stream = append(stream, Disconnect()...)

	r := NewReader(bytes.NewReader(stream), 0)
	want := []Type{TypeConnect, TypePingreq, TypePublish, TypeDisconnect}
	for _, typ := range want {
		h, _, err := r.ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket: %v", err)
		}
		if h.Type != typ {
			t.Fatalf("got %v, want %v", h.Type, typ)
		}
	}
	if _, _, err := r.ReadPacket(); err != io.EOF {
		t.Fatalf("after last packet got %v, want io.EOF", err)
	}
}

// decode reads a single packet back from its wire form.
func decode(t *testing.T, wire []byte) (FixedHeader, []byte) {
	t.Helper()
	h, body, err := NewReader(bytes.NewReader(wire), 0).ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	return h, body
}

func TestConnectRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		p    *ConnectPacket
	}{
		{"credentials", NewConnect("bambu-studio", "bblp", "test1234")},
		{"anonymous", NewConnect("probe", "", "")},
		{"username only", &ConnectPacket{ProtocolName: "MQTT", ProtocolLevel: 4, ClientID: "x", UsernameFlag: true, Username: "bblp"}},
		{"with will", &ConnectPacket{
			ProtocolName: "MQTT", ProtocolLevel: 4, KeepAlive: 30, ClientID: "w",
			WillFlag: true, WillQoS: 1, WillRetain: true, WillTopic: "device/SN/report", WillMessage: []byte("gone"),
			UsernameFlag: true, Username: "bblp", PasswordFlag: true, Password: "pw",
		}},
		{"long client id", NewConnect(string(bytes.Repeat([]byte("c"), 16*1024)), "bblp", "test1234")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, body := decode(t, tt.p.Encode())
			if h.Type != TypeConnect {
				t.Fatalf("type = %v", h.Type)
			}
			got, err := DecodeConnect(body)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.p, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPublishRoundTrip(t *testing.T) {
	big := bytes.Repeat([]byte(`{"print":{"command":"push_all"}}`), 16*1024/32+1)

	tests := []struct {
		name string
		p    *PublishPacket
	}{
		{"qos0", &PublishPacket{Topic: "device/SN/report", Payload: []byte(`{"print":{}}`)}},
		{"qos1", &PublishPacket{Topic: "device/SN/request", QoS: 1, PacketID: 7, Payload: []byte(`{}`)}},
		{"qos1 dup retain", &PublishPacket{Topic: "t", QoS: 1, Dup: true, Retain: true, PacketID: 65535, Payload: []byte("x")}},
		{"empty payload", &PublishPacket{Topic: "t"}},
		{"16KiB body", &PublishPacket{Topic: "device/SN/request", QoS: 1, PacketID: 1, Payload: big}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, body := decode(t, tt.p.Encode())
			got, err := DecodePublish(h.Flags, body)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.p, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	_, err := DecodePublish(0x06, []byte{0x00, 0x01, 't'})
	if !errors.Is(err, ErrInvalidQoS) {
		t.Fatalf("got %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeRoundTrip(t *testing.T) {
	p := &SubscribePacket{
		PacketID: 10,
		Subscriptions: []Subscription{
			{Topic: "device/SN/report", QoS: 0},
			{Topic: "device/+/report", QoS: 1},
			{Topic: string(bytes.Repeat([]byte("a"), 16*1024)), QoS: 2},
		},
	}

	wire := p.Encode()
	if wire[0] != 0x82 {
		t.Errorf("first byte = %#x, want 0x82", wire[0])
	}
	_, body := decode(t, wire)
	got, err := DecodeSubscribe(body)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]byte{0x90, 0x05, 0x00, 0x0A, 0x00, 0x01, 0x02}, got.Grant().Encode()); diff != "" {
		t.Errorf("SUBACK mismatch (-want +got):\n%s", diff)
	}
}

func TestFixedPackets(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"connack accepted", (&ConnackPacket{ReturnCode: ConnackAccepted}).Encode(), []byte{0x20, 0x02, 0x00, 0x00}},
		{"connack refused", (&ConnackPacket{ReturnCode: ConnackNotAuthorized}).Encode(), []byte{0x20, 0x02, 0x00, 0x05}},
		{"puback", (&PubackPacket{PacketID: 0x1234}).Encode(), []byte{0x40, 0x02, 0x12, 0x34}},
		{"pingreq", Pingreq(), []byte{0xC0, 0x00}},
		{"pingresp", Pingresp(), []byte{0xD0, 0x00}},
		{"disconnect", Disconnect(), []byte{0xE0, 0x00}},
	}

	for _, tt := range tests {
		if !bytes.Equal(tt.got, tt.want) {
			t.Errorf("%s = % x, want % x", tt.name, tt.got, tt.want)
		}
	}
}

func TestMalformedBodies(t *testing.T) {
	tests := []struct {
		name   string
		decode func() error
	}{
		{"connect missing client id", func() error {
			_, err := DecodeConnect([]byte{0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x02, 0x00, 0x3C})
			return err
		}},
		{"connect password flag without password", func() error {
			_, err := DecodeConnect([]byte{0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x40, 0x00, 0x3C, 0x00, 0x00})
			return err
		}},
		{"publish topic overruns body", func() error {
			_, err := DecodePublish(0, []byte{0x00, 0x09, 'a'})
			return err
		}},
		{"publish qos1 without id", func() error {
			_, err := DecodePublish(0x02, []byte{0x00, 0x01, 'a'})
			return err
		}},
		{"subscribe missing qos", func() error {
			_, err := DecodeSubscribe([]byte{0x00, 0x01, 0x00, 0x01, 'a'})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode()
			if !errors.Is(err, ErrShortBody) {
				t.Fatalf("got %v, want ErrShortBody", err)
			}
		})
	}
}
