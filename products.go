package lifx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// productsJSON is a representative subset of https://github.com/LIFX/products,
// covering one product per operation-group façade (color, multizone, matrix,
// HEV, switch) plus a few more lights, one of them white-only. go:embed'ing the full
// upstream file isn't possible here since it isn't part of this tree; the
// decode path below is unchanged, just fed from this literal instead.
const productsJSON = `
[
  {
    "vid": 1,
    "name": "LIFX",
    "defaults": {
      "hev": false,
      "color": true,
      "matrix": false,
      "multizone": false,
      "extended_multizone": false
    },
    "products": [
      {
        "pid": 1,
        "name": "LIFX Original 1000",
        "features": { "temperature_range": [2500, 9000] }
      },
      {
        "pid": 10,
        "name": "LIFX White 800 (Low Voltage)",
        "features": { "color": false, "temperature_range": [2700, 6500] }
      },
      {
        "pid": 27,
        "name": "LIFX A19",
        "features": { "temperature_range": [2500, 9000] }
      },
      {
        "pid": 32,
        "name": "LIFX Z",
        "features": {
          "multizone": true,
          "temperature_range": [2500, 9000]
        },
        "upgrades": [
          {
            "major": 2,
            "minor": 77,
            "features": { "extended_multizone": true }
          },
          {
            "major": 2,
            "minor": 80,
            "features": { "temperature_range": [1500, 9000] }
          }
        ]
      },
      {
        "pid": 38,
        "name": "LIFX Beam",
        "features": {
          "multizone": true,
          "extended_multizone": true,
          "temperature_range": [2500, 9000]
        }
      },
      {
        "pid": 55,
        "name": "LIFX Tile",
        "features": { "matrix": true, "chain": true, "temperature_range": [2500, 9000] }
      },
      {
        "pid": 57,
        "name": "LIFX Candle",
        "features": { "matrix": true, "temperature_range": [1500, 9000] }
      },
      {
        "pid": 90,
        "name": "LIFX Clean",
        "features": { "hev": true, "temperature_range": [1500, 9000] }
      },
      {
        "pid": 89,
        "name": "LIFX Switch",
        "features": { "color": false, "relays": true, "buttons": true }
      }
    ]
  }
]
`

// ProductsFile represents the data decoded from productsJSON.
var ProductsFile []VendorProducts

func init() {
	if err := json.Unmarshal([]byte(productsJSON), &ProductsFile); err != nil {
		panic("internal error decoding products catalogue: " + err.Error())
	}
}

// VendorProducts represents a vendor and all their products.
type VendorProducts struct {
	VID  uint32 `json:"vid"`  // 1 == LIFX
	Name string `json:"name"` // e.g. "LIFX"

	Defaults ProductCapabilities `json:"defaults"`
	Products []Product           `json:"products"`
}

// ProductCapabilities represents the functional capabilities of a product.
//
// The fields in this structure are nullable because the data file has a
// default layering semantic. Any Product returned through DetermineProduct is
// guaranteed to set all boolean fields, except where otherwise specified.
type ProductCapabilities struct {
	HEV    *bool `json:"hev,omitempty"`
	Color  *bool `json:"color,omitempty"`
	Matrix *bool `json:"matrix,omitempty"`

	Multizone         *bool    `json:"multizone,omitempty"`
	TemperatureRange  []uint16 `json:"temperature_range,omitempty"` // should be two values (min and max); may be nil from DetermineProduct
	ExtendedMultizone *bool    `json:"extended_multizone,omitempty"`

	Infrared *bool `json:"infrared,omitempty"`
	Chain    *bool `json:"chain,omitempty"`
	Relays   *bool `json:"relays,omitempty"`
	Buttons  *bool `json:"buttons,omitempty"`
}

func (pc ProductCapabilities) String() string {
	var s []string
	checkBool := func(b *bool, name string) {
		if b != nil && *b {
			s = append(s, name)
		}
	}
	checkBool(pc.HEV, "hev")
	checkBool(pc.Color, "color")
	checkBool(pc.Matrix, "matrix")
	checkBool(pc.Multizone, "multizone")
	if tr := pc.TemperatureRange; len(tr) > 0 {
		s = append(s, fmt.Sprintf("temperature_range=[%d,%d]", tr[0], tr[1]))
	}
	checkBool(pc.ExtendedMultizone, "extended_multizone")
	checkBool(pc.Infrared, "infrared")
	checkBool(pc.Chain, "chain")
	checkBool(pc.Relays, "relays")
	checkBool(pc.Buttons, "buttons")
	return "{" + strings.Join(s, ",") + "}"
}

// merge applies values set in o.
func (pc *ProductCapabilities) merge(o ProductCapabilities) {
	copyBool := func(dst **bool, src *bool) {
		if src == nil {
			return
		}
		if *dst == nil {
			*dst = boolPtr(false) // will be immediately overwritten
		}
		**dst = *src
	}

	copyBool(&pc.HEV, o.HEV)
	copyBool(&pc.Color, o.Color)
	copyBool(&pc.Matrix, o.Matrix)

	copyBool(&pc.Multizone, o.Multizone)
	if tr := o.TemperatureRange; len(tr) > 0 {
		pc.TemperatureRange = []uint16{tr[0], tr[1]}
	}
	copyBool(&pc.ExtendedMultizone, o.ExtendedMultizone)
	copyBool(&pc.Infrared, o.Infrared)
	copyBool(&pc.Chain, o.Chain)
	copyBool(&pc.Relays, o.Relays)
	copyBool(&pc.Buttons, o.Buttons)
}

// Product represents information about a product.
type Product struct {
	PID      uint32              `json:"pid"`
	Name     string              `json:"name"`
	Features ProductCapabilities `json:"features"`
	Upgrades []struct {
		Major    uint16              `json:"major"`
		Minor    uint16              `json:"minor"`
		Features ProductCapabilities `json:"features"`
	} `json:"upgrades"`
}

// DetermineProduct determines the product and its derived capabilities.
// Use this rather than manually inspecting ProductsFile, which should be
// passed as the first argument.
//
// vendorID and productID arguments can be obtained with GetVersion,
// and firmwareVersion can be obtained with GetHostFirmware.
func DetermineProduct(file []VendorProducts, vendorID, productID uint32, firmwareVersion HostFirmware) (Product, error) {
	var vp *VendorProducts
	for i := range file {
		if file[i].VID == vendorID {
			vp = &file[i]
			break
		}
	}
	if vp == nil {
		return Product{}, fmt.Errorf("%w: %d", ErrUnknownVendor, vendorID)
	}

	var product Product
	var found bool
	for _, p := range vp.Products {
		if p.PID == productID {
			product, found = p, true
			break
		}
	}
	if !found {
		return Product{}, fmt.Errorf("%w: %d for vendor %d (%s)", ErrUnknownProduct, productID, vendorID, vp.Name)
	}

	// Start with the default capabilities, then copy over the product capabilities.
	// Finally, apply specific version upgrades.
	cap := ProductCapabilities{
		HEV:    boolPtr(false),
		Color:  boolPtr(false),
		Matrix: boolPtr(false),

		Multizone: boolPtr(false),
		// no TemperatureRange default
		ExtendedMultizone: boolPtr(false),

		Infrared: boolPtr(false),
		Chain:    boolPtr(false),
		Relays:   boolPtr(false),
		Buttons:  boolPtr(false),
	}
	cap.merge(vp.Defaults)
	cap.merge(product.Features)
	for _, u := range product.Upgrades {
		// This logic seems wrong (majorX > majorY should ignore minorX and minorY),
		// but this is what is documented.
		if firmwareVersion.Major >= u.Major && firmwareVersion.Minor >= u.Minor {
			cap.merge(u.Features)
		}
	}
	product.Features = cap

	return product, nil
}

func boolPtr(b bool) *bool { return &b }
