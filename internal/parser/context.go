package parser

import "github.com/camdumpdb/internal/models"

// ParseContext tracks where the engine is inside the dump. It is owned by a
// single parse and never shared.
type ParseContext struct {
	Device   *models.Device
	Physical *models.PhysicalCamera
	Target   *models.FieldMap
	Typed    *models.TypedArray

	DeclaredDevices  int
	ProcessedDevices int

	// blockOpened is set once a characteristics header has opened the
	// current device's or physical camera's block.
	blockOpened bool
	// skipping drops field lines of a device header that exceeded the
	// declared count.
	skipping bool
}

func newParseContext(declared int) ParseContext {
	return ParseContext{DeclaredDevices: declared}
}

// openDevice makes d current and clears the physical camera.
func (c *ParseContext) openDevice(d *models.Device) {
	c.Device = d
	c.Physical = nil
	c.Typed = nil
	c.blockOpened = false
	c.skipping = false
}

// skipDevice ignores everything up to the next device banner.
func (c *ParseContext) skipDevice() {
	c.closeDevice()
	c.skipping = true
}

// closeDevice clears device, physical camera and block pointers. It reports
// whether a device was open.
func (c *ParseContext) closeDevice() bool {
	wasOpen := c.Device != nil
	c.Device = nil
	c.Physical = nil
	c.Target = nil
	c.Typed = nil
	c.blockOpened = false
	c.skipping = false
	return wasOpen
}

// enterPhysical makes pc the current physical camera.
func (c *ParseContext) enterPhysical(pc *models.PhysicalCamera) {
	c.Physical = pc
	c.Typed = nil
	c.blockOpened = true
}

// enterOwnBlock handles a characteristics header without a camera id. A
// second header for a block that is already open descends into the nested
// characteristics map; depth never exceeds one.
func (c *ParseContext) enterOwnBlock() {
	c.Typed = nil
	if c.Device == nil {
		return
	}
	block := c.currentBlock()
	if block == nil {
		return
	}
	if c.blockOpened {
		block.OpenNested()
		return
	}
	c.blockOpened = true
}

func (c *ParseContext) currentBlock() *models.FieldMap {
	switch {
	case c.skipping || c.Device == nil:
		return nil
	case c.Physical != nil:
		return c.Physical.Characteristics
	default:
		return c.Device.Characteristics
	}
}

// resolve recomputes Target: the physical camera's block if one is active,
// else the device's block, one level down when it holds a nested map.
func (c *ParseContext) resolve() {
	block := c.currentBlock()
	if block != nil {
		if nested := block.Nested(); nested != nil {
			block = nested
		}
	}
	c.Target = block
}

// done reports whether the declared device count has been reached.
func (c *ParseContext) done() bool {
	return c.ProcessedDevices >= c.DeclaredDevices
}
