package encoding

import "testing"

func TestShiftJISRoundTrip(t *testing.T) {
	tests := []string{
		"STG_00_00",
		"ザックとウィキ",
		"木の箱\tOBJ_BOX",
	}
	for _, s := range tests {
		encoded := UTF8ToShiftJIS(s)
		if got := ShiftJISToUTF8(encoded); got != s {
			t.Errorf("round trip of %q gave %q", s, got)
		}
	}
}

func TestDecodeManifest(t *testing.T) {
	sjis := UTF8ToShiftJIS("STG\n宝箱\tITM_CHEST\n")

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"ascii", []byte("STG\nOBJ\n"), "STG\nOBJ\n"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "STG"...), "STG"},
		{"shift-jis", sjis, "STG\n宝箱\tITM_CHEST\n"},
		{"nul padded", []byte("STG\x00\x00\x00"), "STG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeManifest(tt.data); got != tt.want {
				t.Errorf("DecodeManifest() = %q, want %q", got, tt.want)
			}
		})
	}
}
