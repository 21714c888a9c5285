package gfx

// RenderCache deduplicates programs by name so that models sharing a shader
// variant share one device program.
type RenderCache struct {
	device   Device
	programs map[string]Program
}

// NewRenderCache returns an empty cache creating programs on device.
func NewRenderCache(device Device) *RenderCache {
	return &RenderCache{device: device, programs: make(map[string]Program)}
}

// CreateProgram returns the cached program for desc.Name, creating it on
// first use.
func (c *RenderCache) CreateProgram(desc ProgramDesc) (Program, error) {
	if p, ok := c.programs[desc.Name]; ok {
		return p, nil
	}
	p, err := c.device.CreateProgram(desc)
	if err != nil {
		return Program{}, err
	}
	c.programs[desc.Name] = p
	return p, nil
}

// NumPrograms returns the number of live cached programs.
func (c *RenderCache) NumPrograms() int {
	return len(c.programs)
}

// Destroy releases every cached program.
func (c *RenderCache) Destroy() {
	for name, p := range c.programs {
		c.device.DestroyProgram(p)
		delete(c.programs, name)
	}
}
