package synth

import "fmt"

// A result shape applies a fixed, named field layout to one or more
// output buffers instead of the generic result construction.
type shapeFunc func(cb *CodeBuilder, outs []outParam) error

var shapes = map[string]shapeFunc{
	"body-position": shapeBodyPosition,
	"houses":        shapeHouses,
	"azalt":         shapeAzalt,
}

// shapeBodyPosition lays out a six-element position vector as
// coordinates plus their rates of change.
func shapeBodyPosition(cb *CodeBuilder, outs []outParam) error {
	buf, err := singleArray(outs, 6, "body-position")
	if err != nil {
		return err
	}
	cb.Linef(`return {`)
	cb.Indent++
	for i, field := range []string{
		"longitude", "latitude", "distance",
		"longitudeSpeed", "latitudeSpeed", "distanceSpeed",
	} {
		cb.Linef(`%v: this._readDouble(%v),`, field, offsetExpr(buf, i*8))
	}
	cb.Indent--
	cb.Linef(`};`)
	return nil
}

// shapeHouses lays out a 13-element cusp buffer (slot 0 is
// conventionally unused and dropped) and a 10-element angle buffer.
func shapeHouses(cb *CodeBuilder, outs []outParam) error {
	if len(outs) != 2 || outs[0].out.Count != 13 || outs[1].out.Count != 10 ||
		outs[0].out.Type != "double" || outs[1].out.Type != "double" {
		return fmt.Errorf("houses shape requires a double[13] cusp output followed by a double[10] angle output")
	}
	cusps, ascmc := outs[0].param, outs[1].param
	cb.Linef(`return {`)
	cb.Indent++
	cb.Linef(`houses: this._readDoubleArray(%v, 12),`, offsetExpr(cusps, 8))
	for i, field := range []string{
		"ascendant", "mc", "armc", "vertex", "equatorialAscendant",
		"coAscendantKoch", "coAscendantMunkasey", "polarAscendant",
	} {
		cb.Linef(`%v: this._readDouble(%v),`, field, offsetExpr(ascmc, i*8))
	}
	cb.Indent--
	cb.Linef(`};`)
	return nil
}

// shapeAzalt lays out the three-element horizontal coordinate vector.
func shapeAzalt(cb *CodeBuilder, outs []outParam) error {
	buf, err := singleArray(outs, 3, "azalt")
	if err != nil {
		return err
	}
	cb.Linef(`return {`)
	cb.Indent++
	for i, field := range []string{"azimuth", "trueAltitude", "apparentAltitude"} {
		cb.Linef(`%v: this._readDouble(%v),`, field, offsetExpr(buf, i*8))
	}
	cb.Indent--
	cb.Linef(`};`)
	return nil
}

func singleArray(outs []outParam, count int, shape string) (string, error) {
	if len(outs) != 1 || outs[0].out.Type != "double" || outs[0].out.Count != count {
		return "", fmt.Errorf("%v shape requires exactly one double[%v] output", shape, count)
	}
	return outs[0].param, nil
}

func offsetExpr(buf string, offset int) string {
	if offset == 0 {
		return buf
	}
	return fmt.Sprintf("%v + %v", buf, offset)
}
