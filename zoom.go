package main

import "math"

const (
	// zoomStep is the ratio between two neighbouring rungs of the zoom ladder.
	zoomStep = 1.05

	// minShrinkWidth stops zooming out once the reference width is this small.
	minShrinkWidth = 25
)

type ZoomInput struct {
	Native    int     // width stored in the PNG header
	Current   int     // width the image is rendered at
	Annotated bool    // document already carries ![|W](uri) for the image
	DeltaY    float64 // wheel delta; negative zooms in
}

// impliedPower returns the ladder rung closest to current.
func impliedPower(native, current int) int {
	if native <= 0 || current <= 0 {
		return 0
	}
	return int(math.Floor(math.Log(float64(current)/float64(native))/math.Log(zoomStep) + 0.5))
}

// ladderWidth returns the width of rung power for an image of the given
// native width.
func ladderWidth(native, power int) int {
	return int(math.Floor(math.Pow(zoomStep, float64(power)) * float64(native)))
}

// calcZoom returns the width one wheel tick moves the image to. Results always
// sit on the ladder floor(1.05^p * native).
func calcZoom(in ZoomInput) int {
	power := impliedPower(in.Native, in.Current)

	// A bare embed renders at native width as far as the document knows.
	ref := in.Native
	if in.Annotated {
		ref = in.Current
	}

	if in.DeltaY < 0 {
		power++
	} else if ref > minShrinkWidth {
		power--
	}
	return ladderWidth(in.Native, power)
}
