package elgamal

import (
	"errors"
	"math"

	"github.com/gtank/ristretto255"
	lru "github.com/hashicorp/golang-lru"
)

// ErrDecryptionBound indicates that the plaintext is not in [0, bound].
var ErrDecryptionBound = errors.New("elgamal: plaintext outside decryption bound")

// tableCacheSize is the number of baby-step tables kept. Clients usually
// decode with one or two bounds, so a handful is plenty.
const tableCacheSize = 4

var babyStepTables *lru.Cache

func init() {
	cache, err := lru.New(tableCacheSize)
	if err != nil {
		panic(err)
	}
	babyStepTables = cache
}

type babyStepTable struct {
	step    uint64
	giant   *ristretto255.Element // step*G
	entries map[[PointSize]byte]uint64
}

func babyStepsFor(step uint64) *babyStepTable {
	if cached, ok := babyStepTables.Get(step); ok {
		return cached.(*babyStepTable)
	}
	table := &babyStepTable{
		step:    step,
		entries: make(map[[PointSize]byte]uint64, step),
	}
	g := G()
	cur := ristretto255.NewElement()
	for i := uint64(0); i < step; i++ {
		table.entries[EncodePoint(cur)] = i
		cur = ristretto255.NewElement().Add(cur, g)
	}
	table.giant = cur
	babyStepTables.Add(step, table)
	return table
}

// SolveDiscreteLog finds m in [0, bound] with m*G == point using
// baby-step giant-step in O(sqrt(bound)) time and memory. The baby-step
// table is cached per bound.
func SolveDiscreteLog(point *ristretto255.Element, bound uint64) (uint64, bool) {
	step := uint64(math.Sqrt(float64(bound))) + 1
	table := babyStepsFor(step)

	cur := ristretto255.NewElement().Add(ristretto255.NewElement(), point)
	for j := uint64(0); j <= bound/step; j++ {
		if i, ok := table.entries[EncodePoint(cur)]; ok {
			if v := j*step + i; v <= bound {
				return v, true
			}
			return 0, false
		}
		cur = ristretto255.NewElement().Subtract(cur, table.giant)
	}
	return 0, false
}

// Decrypt strips the handle and returns x*G.
func (k *SecretKey) Decrypt(ct Ciphertext) (*ristretto255.Element, error) {
	c, h, err := ct.points()
	if err != nil {
		return nil, err
	}
	sD := ristretto255.NewElement().ScalarMult(k.s, h)
	return ristretto255.NewElement().Subtract(c, sD), nil
}

// DecryptAmount recovers the plaintext of ct if it is at most bound.
func (k *SecretKey) DecryptAmount(ct Ciphertext, bound uint64) (uint64, error) {
	point, err := k.Decrypt(ct)
	if err != nil {
		return 0, err
	}
	v, ok := SolveDiscreteLog(point, bound)
	if !ok {
		return 0, ErrDecryptionBound
	}
	return v, nil
}
