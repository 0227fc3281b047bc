//go:build !gocv

package detection

import "errors"

func newGoCVTracer() (Tracer, error) {
	return nil, errors.New("gocv tracer unavailable: build with -tags gocv")
}
