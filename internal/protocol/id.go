package protocol

import (
	"fmt"
	"math/rand/v2"
)

// Prefixos dos códigos de acompanhamento.
const (
	PrefixAprendiz = "APR"
	PrefixAnonimo  = "ANO"
)

const (
	idMin         = 100000
	idSpan        = 900000
	maxIDAttempts = 5
)

func randomSuffix() int {
	return idMin + rand.IntN(idSpan)
}

func formatID(prefix string, n int) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}
