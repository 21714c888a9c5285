package rres_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/stagegraph/pkg/rres"
	"github.com/Faultbox/stagegraph/pkg/rres/rrestest"
)

func fullArchive() *rres.Archive {
	a := rrestest.Model("STAGE_A", "STAGE_B")
	a.Textures = append(a.Textures, &rres.Texture{Name: "encoded", Format: rres.FormatEncoded, Data: []byte{0x89, 'P', 'N', 'G'}})
	a.SceneAnims = []*rres.SceneAnim{rrestest.Lights("scene", 120)}
	a.ModelAnims = []*rres.ModelAnim{{
		AnimInfo: rres.AnimInfo{Name: "spin", FrameCount: 60, Loop: true},
		Target:   "STAGE_A",
		Rotation: [3]rres.Track{{}, {Keys: []rres.Key{{0, 0}, {60, 360}}}, {}},
	}}
	a.ColorAnims = []*rres.ColorAnim{{
		AnimInfo: rres.AnimInfo{Name: "pulse", FrameCount: 30},
		Material: "STAGE_A_mat",
		Color:    [4]rres.Track{rres.Constant(1), {Keys: []rres.Key{{0, 0}, {30, 1}}}, rres.Constant(0), rres.Constant(1)},
	}}
	a.VisAnims = []*rres.VisAnim{{
		AnimInfo: rres.AnimInfo{Name: "blink", FrameCount: 20, Loop: true},
		Material: "STAGE_B_mat",
		Visible:  rres.Track{Keys: []rres.Key{{0, 1}, {10, 0}}},
	}}
	return a
}

func TestEncodeDecode(t *testing.T) {
	want := fullArchive()
	data := rrestest.Encode(t, want)

	got, err := rres.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NotNil(t, got.FindModel("STAGE_B"))
	assert.Nil(t, got.FindModel("missing"))
}

func TestDecode_Errors(t *testing.T) {
	valid := rrestest.Encode(t, fullArchive())

	badVersion := append([]byte(nil), valid...)
	binary.BigEndian.PutUint16(badVersion[4:], 99)

	unknown := append([]byte(nil), valid[:6]...)
	unknown = binary.BigEndian.AppendUint16(unknown, 1)
	unknown = append(unknown, "XXX0"...)
	unknown = binary.BigEndian.AppendUint16(unknown, 0)
	unknown = binary.BigEndian.AppendUint32(unknown, 0)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, rres.ErrTruncated},
		{"bad magic", []byte("NOPE\x00\x01\x00\x00"), rres.ErrInvalidMagic},
		{"header only", []byte("RRES\x00"), rres.ErrTruncated},
		{"future version", badVersion, rres.ErrUnsupported},
		{"truncated chunk", valid[:len(valid)-3], rres.ErrTruncated},
		{"unknown chunk", unknown, rres.ErrUnknownChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rres.Decode(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, rres.ErrDecode)
		})
	}
}

func TestEncode_RejectsBadIndices(t *testing.T) {
	a := rrestest.Model("M")
	a.Models[0].Indices[2] = 42
	_, err := rres.Encode(a)
	assert.ErrorIs(t, err, rres.ErrIndexOutOfRange)

	a = rrestest.Model("M")
	a.Models[0].Batches[0].IndexCount = 7
	_, err = rres.Encode(a)
	assert.ErrorIs(t, err, rres.ErrIndexOutOfRange)

	a = rrestest.Model("M")
	a.Textures[0].Data = a.Textures[0].Data[:4]
	_, err = rres.Encode(a)
	assert.ErrorIs(t, err, rres.ErrTruncated)
}

func TestTrackSample(t *testing.T) {
	tr := rres.Track{Keys: []rres.Key{{0, 0}, {10, 100}, {20, 50}}}

	tests := []struct {
		frame float32
		want  float32
	}{
		{-5, 0},
		{0, 0},
		{5, 50},
		{10, 100},
		{15, 75},
		{20, 50},
		{40, 50},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tr.Sample(tt.frame, -1), 1e-5, "frame %v", tt.frame)
	}

	assert.Equal(t, float32(7), rres.Track{}.Sample(3, 7))
	assert.Equal(t, float32(2), rres.Constant(2).Sample(100, 0))
}

func TestTrackSampleStep(t *testing.T) {
	tr := rres.Track{Keys: []rres.Key{{0, 1}, {10, 0}, {15, 1}}}
	assert.Equal(t, float32(1), tr.SampleStep(9.9, 0))
	assert.Equal(t, float32(0), tr.SampleStep(10, 1))
	assert.Equal(t, float32(0), tr.SampleStep(14, 1))
	assert.Equal(t, float32(1), tr.SampleStep(30, 0))
	assert.Equal(t, float32(5), rres.Track{}.SampleStep(1, 5))
}

func TestModelBounds(t *testing.T) {
	m := rrestest.Quad("q", "")
	m.Vertices[2].Position[1] = 3
	min, max := m.Bounds()
	assert.Equal(t, [3]float32{-1, 0, -1}, min)
	assert.Equal(t, [3]float32{1, 3, 1}, max)

	min, max = (&rres.Model{}).Bounds()
	assert.Equal(t, [3]float32{}, min)
	assert.Equal(t, [3]float32{}, max)
}
