package lifx

import "context"

// Capabilities is the flattened, non-nullable feature record the resolver
// hands back for a (vendor, product) pair, per SPEC_FULL.md §4.3. It's a
// pure function of the product catalogue — it never touches the network.
type Capabilities struct {
	Color             bool
	Infrared          bool
	Matrix            bool
	Chain             bool
	Multizone         bool
	ExtendedMultizone bool
	HEV               bool
	Relays            bool
	Buttons           bool

	MinKelvin, MaxKelvin uint16

	ProductName string
}

// resolveCapabilities looks up vendorID/productID in the product catalogue
// and flattens its layered ProductCapabilities into a Capabilities record.
func resolveCapabilities(vendorID, productID uint32, firmware HostFirmware) (Capabilities, error) {
	p, err := DetermineProduct(ProductsFile, vendorID, productID, firmware)
	if err != nil {
		return Capabilities{}, err
	}
	f := p.Features
	c := Capabilities{
		Color:             f.Color != nil && *f.Color,
		Infrared:          f.Infrared != nil && *f.Infrared,
		Matrix:            f.Matrix != nil && *f.Matrix,
		Chain:             f.Chain != nil && *f.Chain,
		Multizone:         f.Multizone != nil && *f.Multizone,
		ExtendedMultizone: f.ExtendedMultizone != nil && *f.ExtendedMultizone,
		HEV:               f.HEV != nil && *f.HEV,
		Relays:            f.Relays != nil && *f.Relays,
		Buttons:           f.Buttons != nil && *f.Buttons,
		ProductName:       p.Name,
	}
	if len(f.TemperatureRange) == 2 {
		c.MinKelvin, c.MaxKelvin = f.TemperatureRange[0], f.TemperatureRange[1]
	}
	return c, nil
}

// Identify queries a device's version and host firmware and resolves its
// capabilities, storing them for subsequent AsX() calls. This is the step
// Design Notes §9 calls "statically guards operation groups": until this
// has run, none of the AsX() accessors will succeed.
func (d *Device) Identify(ctx context.Context) (Capabilities, error) {
	vendor, product, err := d.GetVersion(ctx)
	if err != nil {
		return Capabilities{}, err
	}
	fw, err := d.GetHostFirmware(ctx)
	if err != nil {
		return Capabilities{}, err
	}
	caps, err := resolveCapabilities(vendor, product, fw)
	if err != nil {
		return Capabilities{}, err
	}
	d.caps = &caps
	return caps, nil
}

// Capabilities returns the capabilities resolved by the most recent
// Identify call, or (Capabilities{}, false) if Identify hasn't run yet.
func (d *Device) Capabilities() (Capabilities, bool) {
	if d.caps == nil {
		return Capabilities{}, false
	}
	return *d.caps, true
}

// AsColorLight returns a ColorLight façade over d if its resolved
// capabilities support color, and ok=false otherwise. Call Identify first.
func (d *Device) AsColorLight() (*ColorLight, bool) {
	if d.caps == nil || !d.caps.Color {
		return nil, false
	}
	return &ColorLight{Device: d}, true
}

// AsMultizoneLight returns a MultizoneLight façade over d if its resolved
// capabilities support multizone strips.
func (d *Device) AsMultizoneLight() (*MultizoneLight, bool) {
	if d.caps == nil || !d.caps.Multizone {
		return nil, false
	}
	return &MultizoneLight{Device: d, extended: d.caps.ExtendedMultizone}, true
}

// AsMatrixLight returns a MatrixLight façade over d if its resolved
// capabilities support tile/matrix devices.
func (d *Device) AsMatrixLight() (*MatrixLight, bool) {
	if d.caps == nil || !d.caps.Matrix {
		return nil, false
	}
	return &MatrixLight{Device: d}, true
}

// AsHevLight returns an HevLight façade over d if its resolved capabilities
// support HEV (clean/antibacterial) cycles.
func (d *Device) AsHevLight() (*HevLight, bool) {
	if d.caps == nil || !d.caps.HEV {
		return nil, false
	}
	return &HevLight{Device: d}, true
}

// AsSwitch returns a Switch façade over d if its resolved capabilities
// support relay/button switch operations.
func (d *Device) AsSwitch() (*Switch, bool) {
	if d.caps == nil || !d.caps.Relays {
		return nil, false
	}
	return &Switch{Device: d}, true
}
