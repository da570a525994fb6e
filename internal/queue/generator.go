package queue

import (
	"math/rand"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	minSuffix = 10
	maxSuffix = 99
)

// Generator derives queue numbers like "D42": the upper-cased first letter of the
// service type followed by a random number in [10, 99]. Numbers are not checked
// for uniqueness here.
type Generator struct {
	intN func(n int) int
}

// NewGenerator uses intN as its random source; nil means math/rand.
func NewGenerator(intN func(n int) int) *Generator {
	if intN == nil {
		intN = rand.Intn
	}
	return &Generator{intN: intN}
}

// Next returns the queue number and the numeric suffix it was built from.
func (g *Generator) Next(serviceType string) (string, int) {
	suffix := minSuffix + g.intN(maxSuffix-minSuffix+1)
	return Prefix(serviceType) + strconv.Itoa(suffix), suffix
}

// Generate returns only the queue number.
func (g *Generator) Generate(serviceType string) string {
	code, _ := g.Next(serviceType)
	return code
}

// Prefix is the upper-cased first character of the service type.
func Prefix(serviceType string) string {
	r, size := utf8.DecodeRuneInString(serviceType)
	if size == 0 {
		return ""
	}
	return strings.ToUpper(string(r))
}
