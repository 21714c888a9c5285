package layout

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = "header junk\r\n" +
	"STG_02_00\r\n" +
	"ROOM 0\r\n" +
	"#\tNAME\tPARAM\r\n" +
	"#\r\n" +
	"0\tOBJ_TREE_01\t1 2 3 4 5 6 7 8 90 0 45 10.5 -2 300\r\n" +
	"1\tITM_COIN\t0 0 0 0 0 0 0 0 0 180 0 -12.5 0 7\r\n" +
	"\t\t\r\n" +
	"0\tIGNORED\t1 2 3 4 5 6 7 8 9 10 11 12 13 14\r\n" +
	"STG_02_01\n" +
	"ROOM 1\n" +
	"#\n" +
	"#\n" +
	"0\tFIG_ZACK\t0,0,0,0,0,0,0,0,1,2,3,4,5,6\n" +
	"   \n"

func TestParse(t *testing.T) {
	records, err := Parse(sampleManifest)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "OBJ_TREE_01", records[0].Name)
	assert.Equal(t, mgl32.Vec3{90, 0, 45}, records[0].Rotation)
	assert.Equal(t, mgl32.Vec3{10.5, -2, 300}, records[0].Translation)

	assert.Equal(t, "ITM_COIN", records[1].Name)
	assert.Equal(t, mgl32.Vec3{0, 180, 0}, records[1].Rotation)
	assert.Equal(t, mgl32.Vec3{-12.5, 0, 7}, records[1].Translation)

	assert.Equal(t, "FIG_ZACK", records[2].Name)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, records[2].Rotation)
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, records[2].Translation)
}

func TestParse_NoRooms(t *testing.T) {
	records, err := Parse("nothing to see here\n1\tOBJ\t1 2 3\n")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"missing path field", "justsomething", ErrMissingModelPath},
		{"empty path", "0\t\t1 2 3 4 5 6 7 8 9 10 11 12 13 14", ErrMissingModelPath},
		{"short numeric stream", "0\tOBJ_A\t1 2 3 4 5 6 7 8 9 10 11 12", ErrMissingNumber},
		{"bad token", "0\tOBJ_A\t1 2 3 4 5 6 7 8 9 -.- 11 12 13 14", ErrBadNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "STG\nA\nB\nC\n" + tt.line + "\n"
			_, err := Parse(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"ITM_001", CategoryItems},
		{"FIG_ZACK", CategoryItems},
		{"ITMX", CategoryItems},
		{"OBJ_TREE", CategoryModel},
		{"itm_lower", CategoryModel},
		{"XITM", CategoryModel},
		{"", CategoryModel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.name), tt.name)
	}
}

func TestFetchPath(t *testing.T) {
	item := PlacementRecord{Name: "ITM_KEY"}
	model := PlacementRecord{Name: "OBJ_DOOR"}
	assert.Equal(t, "zack_and_wiki/Items/ITM_KEY.brres", item.FetchPath("zack_and_wiki", ".brres"))
	assert.Equal(t, "zack_and_wiki/Model/OBJ_DOOR.brres", model.FetchPath("zack_and_wiki", ".brres"))
}

func TestNth(t *testing.T) {
	v, err := Nth("abc -12.5 foo 3 bar", 1)
	require.NoError(t, err)
	assert.Equal(t, float32(3), v)

	v, err = Nth("abc -12.5 foo 3 bar", 0)
	require.NoError(t, err)
	assert.Equal(t, float32(-12.5), v)

	_, err = Nth("abc -12.5 foo 3 bar", 2)
	assert.ErrorIs(t, err, ErrMissingNumber)
}

func TestScanner(t *testing.T) {
	sc := NewScanner("x1.5y-2z")
	tok, ok := sc.Token()
	require.True(t, ok)
	assert.Equal(t, "1.5", tok)
	assert.Equal(t, "y-2z", sc.Remaining())

	v, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, float32(-2), v)

	_, ok = sc.Token()
	assert.False(t, ok)
	assert.False(t, sc.Skip(1))
}

func TestMarshalRoundTrip(t *testing.T) {
	records := []PlacementRecord{
		{Name: "OBJ_A", Rotation: mgl32.Vec3{90, 0, -45}, Translation: mgl32.Vec3{1, 2.25, -3}},
		{Name: "ITM_B", Rotation: mgl32.Vec3{0, 0.1, 0}, Translation: mgl32.Vec3{-1000.5, 0, 1e-3}},
		{Name: "FIG_C", Rotation: mgl32.Vec3{}, Translation: mgl32.Vec3{0.3333333, 7, 8}},
	}

	data, err := Marshal(records)
	require.NoError(t, err)

	parsed, err := Parse(string(data))
	require.NoError(t, err)
	assert.Equal(t, records, parsed)
}

func TestMarshal_Rejects(t *testing.T) {
	_, err := Marshal([]PlacementRecord{{Name: "A\tB"}})
	assert.ErrorIs(t, err, ErrUnencodable)

	_, err = Marshal([]PlacementRecord{{Name: "SCR_STG_01"}})
	assert.ErrorIs(t, err, ErrUnencodable)

	_, err = Marshal([]PlacementRecord{{Name: "OBJ", Translation: mgl32.Vec3{mgl32.InfPos, 0, 0}}})
	assert.ErrorIs(t, err, ErrUnencodable)
}

func TestParse_OneRecordPerLine(t *testing.T) {
	var b strings.Builder
	b.WriteString("STG\nh\nh\nh\n")
	for i := 0; i < 50; i++ {
		b.WriteString("0\tOBJ\t0 0 0 0 0 0 0 0 1 2 3 4 5 6\n")
	}
	records, err := Parse(b.String())
	require.NoError(t, err)
	assert.Len(t, records, 50)
}
