package speech

// NewOratorWithDecoder exposes the decoder seam to tests.
var NewOratorWithDecoder = newOrator
