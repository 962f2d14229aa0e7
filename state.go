package lifx

import (
	"context"
	"fmt"
)

// DeviceState is a point-in-time snapshot of a device's visible
// light state, captured by CaptureState and handed back to RestoreState
// once a temporary effect (a wave, a transition demo) is done. Which
// fields are populated depends on the device's resolved capabilities:
// NumZones reports 0 for anything that isn't a multizone light.
type DeviceState struct {
	Power uint16
	Color Color
	Label string
	Zones []Color
}

// NumZones reports how many multizone colors this snapshot captured.
func (s DeviceState) NumZones() int { return len(s.Zones) }

// CaptureState snapshots a device's power, color, label and (for
// multizone devices) per-zone colors. Identify must have been called
// first so the capability-gated accessors below know what to ask for.
func (d *Device) CaptureState(ctx context.Context) (DeviceState, error) {
	caps, ok := d.Capabilities()
	if !ok {
		return DeviceState{}, fmt.Errorf("lifx: Identify must be called before CaptureState")
	}

	var st DeviceState

	if light, ok := d.AsLight(); ok {
		power, err := light.GetLightPower(ctx)
		if err != nil {
			return DeviceState{}, err
		}
		st.Power = power
	}

	if cl, ok := d.AsColorLight(); ok {
		color, _, label, err := cl.GetColor(ctx)
		if err != nil {
			return DeviceState{}, err
		}
		st.Color = color
		st.Label = label
	}

	if caps.Multizone {
		mz, _ := d.AsMultizoneLight()
		if mz.SupportsExtended() {
			zones, err := mz.GetExtendedColorZones(ctx)
			if err != nil {
				return DeviceState{}, err
			}
			st.Zones = zones
		} else {
			_, zones, err := mz.GetColorZones(ctx, 0, 255)
			if err != nil {
				return DeviceState{}, err
			}
			st.Zones = make([]Color, len(zones))
			for i, z := range zones {
				st.Zones[i] = z.Color
			}
		}
	}

	return st, nil
}

// RestoreState applies a previously captured DeviceState back to the
// device, with no ramp (duration 0): overall color first, then zones,
// then power, so a multizone device ends up showing its captured per-zone
// colors rather than the solid color the snapshot also carries.
func (d *Device) RestoreState(ctx context.Context, st DeviceState) error {
	if cl, ok := d.AsColorLight(); ok {
		if err := cl.SetColor(ctx, st.Color, 0); err != nil {
			return err
		}
	}

	if len(st.Zones) > 0 {
		if mz, ok := d.AsMultizoneLight(); ok {
			if mz.SupportsExtended() {
				if err := mz.SetExtendedColorZones(ctx, 0, st.Zones); err != nil {
					return err
				}
			} else {
				for i, c := range st.Zones {
					apply := NoApply
					if i == len(st.Zones)-1 {
						apply = Apply
					}
					if err := mz.SetColorZones(ctx, uint8(i), uint8(i), c, 0, apply); err != nil {
						return err
					}
				}
			}
		}
	}

	if light, ok := d.AsLight(); ok {
		if err := light.SetLightPower(ctx, st.Power != 0, 0); err != nil {
			return err
		}
	}

	return nil
}

// QuietOn puts a light in an on-but-no-light state: for a color light it
// first sets the current color at zero brightness, then it powers the
// light on, both with no ramp, so the light comes on without showing its
// previous color and a later SetColor fades up from dark. A light without
// color support is only powered on.
func (d *Device) QuietOn(ctx context.Context) error {
	light, ok := d.AsLight()
	if !ok {
		return ErrCapabilityMismatch
	}
	if cl, ok := d.AsColorLight(); ok {
		color, _, _, err := cl.GetColor(ctx)
		if err != nil {
			return err
		}
		color.Brightness = 0
		if err := cl.SetColor(ctx, color, 0); err != nil {
			return err
		}
	}
	return light.SetLightPower(ctx, true, 0)
}
