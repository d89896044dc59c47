package ca

import (
	"testing"
)

func BenchmarkDecodeCommand(b *testing.B) {
	wire := NewReadNotifyResponse(make([]byte, 64), DBRDouble, 8, 1, 5).ToBytes()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _, _, err := DecodeCommand(ServerRole, wire)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeDatagram(b *testing.B) {
	var payload []byte
	payload = append(payload, NewVersionRequest(0, ProtocolVersion).ToBytes()...)
	for i := uint32(0); i < 16; i++ {
		payload = append(payload, NewSearchRequest("gauge1", i, ProtocolVersion, false).ToBytes()...)
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := DecodeDatagram(ClientRole, payload)
		if err != nil {
			b.Fatal(err)
		}
	}
}
