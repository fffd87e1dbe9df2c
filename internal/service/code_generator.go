package service

import (
	"crypto/rand"
	"math/big"

	"github.com/pquerna/otp"
)

const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// RandomCodeGenerator draws codes uniformly from 000000-999999.
type RandomCodeGenerator struct{}

func (RandomCodeGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return otp.DigitsSix.Format(int32(n.Int64())), nil
}
