package store

import (
	"crypto/md5"
	"encoding/hex"
)

func hashBytes(content []byte) hash {
	sum := md5.Sum(content)
	return hash(hex.EncodeToString(sum[:]))
}
