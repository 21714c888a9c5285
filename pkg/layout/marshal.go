package layout

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// ErrUnencodable is returned by Marshal for names the manifest format
// cannot carry.
var ErrUnencodable = errors.New("layout: record cannot be encoded")

// Marshal writes records as a single-room manifest that Parse reads back to
// the same values. Unused numeric columns are written as zero.
func Marshal(records []PlacementRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(SectionMarker + "_00_00\n")
	buf.WriteString("#\tname\tparams\n")
	buf.WriteString("#\n")
	buf.WriteString("#\n")

	for i, r := range records {
		if r.Name == "" || strings.ContainsAny(r.Name, "\t\r\n") || strings.Contains(r.Name, SectionMarker) {
			return nil, fmt.Errorf("%w: %q", ErrUnencodable, r.Name)
		}
		if !finite(r.Rotation[0], r.Rotation[1], r.Rotation[2], r.Translation[0], r.Translation[1], r.Translation[2]) {
			return nil, fmt.Errorf("%w: %s has a non-finite component", ErrUnencodable, r.Name)
		}
		fmt.Fprintf(&buf, "%d\t%s\t", i, r.Name)
		for j := 0; j < rotationToken; j++ {
			buf.WriteString("0 ")
		}
		for j := 0; j < 3; j++ {
			buf.WriteString(formatNum(r.Rotation[j]))
			buf.WriteByte(' ')
		}
		for j := 0; j < 3; j++ {
			buf.WriteString(formatNum(r.Translation[j]))
			if j < 2 {
				buf.WriteByte(' ')
			}
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("\t\t\n")
	return buf.Bytes(), nil
}

func formatNum(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
