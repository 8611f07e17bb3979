package xcorrlog_test

import (
	"os"

	"github.com/omeyang/xcorr/pkg/context/xcorr"
	"github.com/omeyang/xcorr/pkg/observability/xcorrlog"
)

func ExampleEmitter() {
	var slot xcorr.Slot
	e, err := xcorrlog.New(&slot, xcorrlog.WithOutput(os.Stdout), xcorrlog.WithPID(1))
	if err != nil {
		panic(err)
	}

	e.Log("startup")
	c := xcorr.NewContext("GET", "/a")
	slot.Run(c, func() {
		e.Logf("id is %d", c.ID())
	})
}
