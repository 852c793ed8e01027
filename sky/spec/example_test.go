package spec_test

import (
	"fmt"

	"github.com/cwbudde/algo-cmb/sky/maps"
	"github.com/cwbudde/algo-cmb/sky/spec"
)

func ExampleWhiteNoise() {
	nl, _ := spec.WhiteNoise(3000, 1, 1.414)
	fmt.Printf("%.3e %.3e\n", nl.Diag(maps.IndexT)[100], nl.Diag(maps.IndexB)[100])
	// Output:
	// 8.462e-08 1.692e-07
}
