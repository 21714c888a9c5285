package scene

// Layer is one toggleable entry of the layer panel.
type Layer struct {
	Name    string
	Visible bool
}

// LayerPanel displays the layers of a scene. It is a passive sink: the
// scene pushes the current list whenever it changes.
type LayerPanel interface {
	SetLayers(layers []Layer)
}

// Layers returns one layer per instance.
func (s *Scene) Layers() []Layer {
	insts := s.Instances()
	layers := make([]Layer, len(insts))
	for i, inst := range insts {
		layers[i] = Layer{Name: inst.Name(), Visible: inst.Visible()}
	}
	return layers
}

// BindLayerPanel attaches panel when the scene has more than one instance
// and reports whether it did.
func (s *Scene) BindLayerPanel(panel LayerPanel) bool {
	if len(s.Instances()) <= 1 {
		return false
	}
	s.panel = panel
	panel.SetLayers(s.Layers())
	return true
}

// SetLayerVisible shows or hides the instance behind layer i.
func (s *Scene) SetLayerVisible(i int, visible bool) bool {
	insts := s.Instances()
	if i < 0 || i >= len(insts) {
		return false
	}
	insts[i].SetVisible(visible)
	if s.panel != nil {
		s.panel.SetLayers(s.Layers())
	}
	return true
}

// ToggleLayer flips the visibility of layer i.
func (s *Scene) ToggleLayer(i int) bool {
	insts := s.Instances()
	if i < 0 || i >= len(insts) {
		return false
	}
	return s.SetLayerVisible(i, !insts[i].Visible())
}
