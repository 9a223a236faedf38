package mapfacade

import (
	"github.com/GrainArc/vtscore/convert"
	"github.com/GrainArc/vtscore/models"
)

// newConvertorFromWire builds the runtime convertor from a map
// configuration's srs list, classifying each entry against the reference
// frame's declared navigation/physical ids; anything else is a per-node
// local srs (spec.md §4.1's "PerNodeSrs").
func newConvertorFromWire(cfg *models.MapConfig) *convert.Convertor {
	defs := make([]convert.Definition, 0, len(cfg.Srs))
	for _, s := range cfg.Srs {
		d := convert.Definition{
			Id:          s.Id,
			Proj:        s.Definition,
			MajorRadius: convert.DefaultEarth.MajorRadius,
			Flattening:  convert.DefaultEarth.Flattening,
		}
		switch s.Id {
		case cfg.ReferenceFrame.NavigationSrs:
			d.Kind = convert.KindGeodetic
		case cfg.ReferenceFrame.PhysicalSrs:
			d.Kind = convert.KindGeocentric
		default:
			d.Kind = convert.KindLocal
		}
		defs = append(defs, d)
	}

	// alias the frame's declared navigation/physical srs under the
	// Convertor's well-known "navigation"/"physical" ids, so callers can
	// convert(p, nodeSrs, convert.Physical) without knowing the wire
	// config's actual srs id strings.
	for _, d := range defs {
		if d.Id == cfg.ReferenceFrame.NavigationSrs {
			alias := d
			alias.Id = string(convert.Navigation)
			defs = append(defs, alias)
		}
		if d.Id == cfg.ReferenceFrame.PhysicalSrs {
			alias := d
			alias.Id = string(convert.Physical)
			defs = append(defs, alias)
		}
	}

	return convert.NewConvertor(defs)
}
