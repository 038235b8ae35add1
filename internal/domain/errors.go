package domain

import "errors"

var errPeerIDLength = errors.New("domain: peer id must decode to 8 bytes")
