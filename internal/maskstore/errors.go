package maskstore

import "errors"

var errShortMaskPayload = errors.New("maskstore: truncated mask payload")
