// Package morphology implements the mask-shaping operators of the crop
// pipeline: inversion, grey dilation growth, hole filling and Gaussian blur.
//
// All operators take a soft [0,1] mask, return a new mask and clamp the
// output back into [0,1]. The operators are direct, allocation-conscious
// implementations (separable passes, explicit flood-fill queue) rather than
// bindings to an array-processing library.
package morphology
