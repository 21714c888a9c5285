package rres

// Key is one keyframe of a scalar track.
type Key struct {
	Frame float32
	Value float32
}

// Track is a list of keyframes sorted by frame.
type Track struct {
	Keys []Key
}

// Constant returns a track holding v at every frame.
func Constant(v float32) Track {
	return Track{Keys: []Key{{Frame: 0, Value: v}}}
}

// Empty reports whether the track has no keys.
func (t Track) Empty() bool {
	return len(t.Keys) == 0
}

// surrounding returns the keys on either side of frame. prev == next when
// frame is outside the keyed range.
func (t Track) surrounding(frame float32) (prev, next int) {
	for i := range t.Keys {
		if t.Keys[i].Frame > frame {
			next = i
			return prev, next
		}
		prev = i
		next = i
	}
	return prev, next
}

// Sample linearly interpolates the track at frame. Frames before the first
// key and after the last key clamp. An empty track returns def.
func (t Track) Sample(frame, def float32) float32 {
	if len(t.Keys) == 0 {
		return def
	}
	if len(t.Keys) == 1 || frame <= t.Keys[0].Frame {
		return t.Keys[0].Value
	}

	prev, next := t.surrounding(frame)
	if prev == next {
		return t.Keys[prev].Value
	}

	k0, k1 := t.Keys[prev], t.Keys[next]
	f := float32(0)
	if k1.Frame != k0.Frame {
		f = (frame - k0.Frame) / (k1.Frame - k0.Frame)
	}
	return k0.Value + f*(k1.Value-k0.Value)
}

// SampleStep returns the value of the last key at or before frame.
func (t Track) SampleStep(frame, def float32) float32 {
	if len(t.Keys) == 0 {
		return def
	}
	if frame <= t.Keys[0].Frame {
		return t.Keys[0].Value
	}
	prev, _ := t.surrounding(frame)
	return t.Keys[prev].Value
}
