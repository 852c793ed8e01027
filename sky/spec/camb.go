package spec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCAMB parses a CAMB-style table with columns "L TT EE BB TE" in
// D_ℓ = ℓ(ℓ+1)C_ℓ/2π units and returns C_ℓ for ℓ = 0..lmax. Lines starting
// with '#' are skipped. Multipoles absent from the table (typically 0 and 1)
// are zero.
func ReadCAMB(r io.Reader, lmax int) (*ClMatTEB, error) {
	if err := validateLMax(lmax); err != nil {
		return nil, err
	}

	cls := Cls{
		TT: make([]float64, lmax+1),
		EE: make([]float64, lmax+1),
		BB: make([]float64, lmax+1),
		TE: make([]float64, lmax+1),
	}
	dst := [][]float64{cls.TT, cls.EE, cls.BB, cls.TE}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 5 {
			return nil, fmt.Errorf("%w: line %d has %d columns, want 5", ErrMalformedCAMB, line, len(fields))
		}

		lf, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || lf != math.Trunc(lf) || lf < 0 {
			return nil, fmt.Errorf("%w: line %d: bad multipole %q", ErrMalformedCAMB, line, fields[0])
		}
		l := int(lf)
		if l > lmax {
			continue
		}

		scale := 0.0
		if l > 0 {
			scale = 2 * math.Pi / (lf * (lf + 1))
		}
		for k, col := range dst {
			v, err := strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %v", ErrMalformedCAMB, line, k+2, err)
			}
			col[l] = v * scale
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("spec: reading CAMB table: %w", err)
	}

	return FromCls(lmax, cls)
}
