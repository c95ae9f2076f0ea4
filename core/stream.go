package core

import (
	"fmt"

	"github.com/tsawler/marginalia/internal/filters"
)

// Decode applies the stream's filter chain and returns the decoded data.
// The raw data is left untouched so the original bytes can be written back
// verbatim during an incremental update.
func (s *Stream) Decode() ([]byte, error) {
	filterNames, parms, err := s.filterChain()
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, name := range filterNames {
		var parm Dict
		if i < len(parms) {
			parm = parms[i]
		}
		data, err = applyFilter(name, data, parm)
		if err != nil {
			return nil, fmt.Errorf("applying filter %s: %w", name, err)
		}
	}
	return data, nil
}

// filterChain normalizes /Filter and /DecodeParms into parallel slices.
// Both keys accept either a single value or an array.
func (s *Stream) filterChain() ([]string, []Dict, error) {
	var names []string
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
	case Name:
		names = []string{string(f)}
	case Array:
		for i := 0; i < f.Len(); i++ {
			name, ok := f.Get(i).(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter array entry %d is not a name", i)
			}
			names = append(names, string(name))
		}
	default:
		return nil, nil, fmt.Errorf("invalid /Filter value of type %s", f.Type())
	}

	var parms []Dict
	switch p := s.Dict.Get("DecodeParms").(type) {
	case nil:
	case Dict:
		parms = []Dict{p}
	case Null:
		parms = []Dict{nil}
	case Array:
		for i := 0; i < p.Len(); i++ {
			switch e := p.Get(i).(type) {
			case Dict:
				parms = append(parms, e)
			case Null, nil:
				parms = append(parms, nil)
			default:
				return nil, nil, fmt.Errorf("decode parms entry %d is not a dictionary", i)
			}
		}
	default:
		return nil, nil, fmt.Errorf("invalid /DecodeParms value of type %s", p.Type())
	}

	return names, parms, nil
}

func applyFilter(name string, data []byte, parm Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, flateParams(parm))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	default:
		return nil, fmt.Errorf("unsupported filter %q", name)
	}
}

// flateParams extracts the predictor parameters from a /DecodeParms dict
func flateParams(parm Dict) filters.FlateParams {
	p := filters.FlateParams{Predictor: 1, Colors: 1, BitsPerComponent: 8, Columns: 1}
	if parm == nil {
		return p
	}
	if v, ok := parm.GetInt("Predictor"); ok {
		p.Predictor = int(v)
	}
	if v, ok := parm.GetInt("Colors"); ok {
		p.Colors = int(v)
	}
	if v, ok := parm.GetInt("BitsPerComponent"); ok {
		p.BitsPerComponent = int(v)
	}
	if v, ok := parm.GetInt("Columns"); ok {
		p.Columns = int(v)
	}
	return p
}
