package maps_test

import (
	"fmt"

	"github.com/cwbudde/algo-cmb/sky/maps"
)

func ExampleLBounds_Keep() {
	b := maps.LBounds{LMin: maps.Bound(100), LMax: maps.Bound(3000)}
	fmt.Println(b.Keep(50, 0), b.Keep(100, 0), b.Keep(0, 2999), b.Keep(3000, 0))
	// Output:
	// false true true false
}

func ExampleOnes() {
	pix := maps.NewPix(4, 0.001)
	mask := maps.Ones(pix)
	fmt.Println(len(mask.W), mask.W[0])
	// Output:
	// 16 1
}
