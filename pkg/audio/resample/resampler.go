// ABOUTME: Linear resampler for converting mono audio between sample rates
// ABOUTME: Used by decoders to bring source material to the engine rate
package resample

// Linear converts mono samples from one rate to another using linear
// interpolation. With equal rates the input is returned unchanged.
func Linear(input []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate || len(input) == 0 {
		return input
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputFrames := int(float64(len(input)) / ratio)
	if outputFrames == 0 {
		return nil
	}

	output := make([]float32, outputFrames)
	for i := 0; i < outputFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		if idx >= len(input)-1 {
			output[i] = input[len(input)-1]
			continue
		}
		output[i] = input[idx] + (input[idx+1]-input[idx])*frac
	}

	return output
}
