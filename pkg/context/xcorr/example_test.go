package xcorr_test

import (
	"fmt"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
)

func ExampleWrap() {
	var slot xcorr.Slot

	a := xcorr.NewContext("GET", "/a")
	slot.Set(a)
	later := slot.Bind(func() {
		fmt.Println("running under", slot.Get())
	})

	slot.Set(xcorr.NewContext("GET", "/b"))
	later()
	fmt.Println("after:", slot.Get())
	// Output:
	// running under GET /a
	// after: GET /b
}
